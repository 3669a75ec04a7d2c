// Package semantic decides whether fetched text is actually about the
// subject under ingestion, and what kind of coverage it is. Runs after the
// structural quality rules, which handle everything cheap and deterministic.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/pkg/anthropic"
	"github.com/marquee-data/marquee-cli/pkg/perplexity"
)

// Labels the classifier may assign. Anything else in a response fails
// validation.
const (
	LabelReview       = "review"
	LabelNews         = "news"
	LabelInterview    = "interview"
	LabelFeature      = "feature"
	LabelListing      = "listing"
	LabelPressRelease = "press_release"
	LabelForum        = "forum"
	LabelOther        = "other"
)

var validLabels = map[string]bool{
	LabelReview:       true,
	LabelNews:         true,
	LabelInterview:    true,
	LabelFeature:      true,
	LabelListing:      true,
	LabelPressRelease: true,
	LabelForum:        true,
	LabelOther:        true,
}

// Result is the classifier verdict. The zero value means every provider and
// retry was exhausted without a valid response; callers treat it as
// not-relevant and move on.
type Result struct {
	Relevant   bool    `json:"relevant"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Context carries what the classifier knows about the expected subject.
type Context struct {
	SubjectID string
	Title     string
	SourceURL string
}

const systemPrompt = `You classify theatre-industry web content. Decide whether the text substantially discusses the named production, and what kind of coverage it is. Respond with ONLY a JSON object: {"relevant": <bool>, "label": "<review|news|interview|feature|listing|press_release|forum|other>", "confidence": <0.0-1.0>}`

const strictSystemPrompt = systemPrompt + ` Your previous answer was not valid JSON matching that schema. Output the JSON object alone, no prose, no code fences.`

const userPrompt = `Production: %s (id: %s)
Source URL: %s

Text (first %d chars):
%s`

const maxExcerptChars = 4000

// Classifier runs the prompt against Anthropic first and falls back to
// Perplexity. Either client may be nil when unconfigured.
type Classifier struct {
	primary  anthropic.Client
	fallback perplexity.Client
	model    string
}

// New creates a Classifier. model is the Anthropic model ID for primary
// calls.
func New(primary anthropic.Client, fallback perplexity.Client, model string) *Classifier {
	return &Classifier{primary: primary, fallback: fallback, model: model}
}

// Classify labels the text. Returns the zero Result with a nil error when
// all providers are exhausted: an unclassifiable document is a normal
// low-signal outcome, not a pipeline failure.
func (c *Classifier) Classify(ctx context.Context, text string, cctx Context) (Result, error) {
	if len(text) > maxExcerptChars {
		text = text[:maxExcerptChars]
	}
	prompt := fmt.Sprintf(userPrompt, cctx.Title, cctx.SubjectID, cctx.SourceURL, maxExcerptChars, text)

	if c.primary != nil {
		// One stricter-prompt retry when the model answers off-schema.
		for _, system := range []string{systemPrompt, strictSystemPrompt} {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			resp, err := c.primary.CreateMessage(ctx, anthropic.MessageRequest{
				Model:     c.model,
				MaxTokens: 128,
				System:    system,
				Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
			})
			if err != nil {
				zap.L().Warn("semantic: primary provider failed",
					zap.String("subject", cctx.SubjectID), zap.Error(err))
				break
			}
			resp.Usage.LogCost(c.model, "semantic-classify")
			if res, ok := parseResult(extractText(resp)); ok {
				return res, nil
			}
			zap.L().Debug("semantic: off-schema response, retrying with strict prompt",
				zap.String("subject", cctx.SubjectID))
		}
	}

	if c.fallback != nil {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		resp, err := c.fallback.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Messages: []perplexity.Message{
				{Role: "system", Content: strictSystemPrompt},
				{Role: "user", Content: prompt},
			},
		})
		if err != nil {
			zap.L().Warn("semantic: fallback provider failed",
				zap.String("subject", cctx.SubjectID), zap.Error(err))
		} else if len(resp.Choices) > 0 {
			if res, ok := parseResult(resp.Choices[0].Message.Content); ok {
				return res, nil
			}
		}
	}

	zap.L().Info("semantic: all providers exhausted, returning empty result",
		zap.String("subject", cctx.SubjectID),
		zap.String("url", cctx.SourceURL),
	)
	return Result{}, nil
}

// parseResult validates the response against the expected schema: required
// keys, known label, confidence in range.
func parseResult(text string) (Result, bool) {
	text = cleanJSON(text)

	var raw struct {
		Relevant   *bool    `json:"relevant"`
		Label      string   `json:"label"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Result{}, false
	}
	if raw.Relevant == nil || raw.Confidence == nil {
		return Result{}, false
	}
	label := strings.ToLower(strings.TrimSpace(raw.Label))
	if !validLabels[label] {
		return Result{}, false
	}
	if *raw.Confidence < 0 || *raw.Confidence > 1 {
		return Result{}, false
	}
	return Result{Relevant: *raw.Relevant, Label: label, Confidence: *raw.Confidence}, true
}

func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON extracts a JSON object from text that may carry markdown code
// fences or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
