package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/gateway"
	"github.com/marquee-data/marquee-cli/internal/guardian"
	"github.com/marquee-data/marquee-cli/internal/pipeline"
	"github.com/marquee-data/marquee-cli/internal/quality"
	"github.com/marquee-data/marquee-cli/internal/refdata"
	"github.com/marquee-data/marquee-cli/internal/semantic"
	"github.com/marquee-data/marquee-cli/internal/store"
	anthropicpkg "github.com/marquee-data/marquee-cli/pkg/anthropic"
	"github.com/marquee-data/marquee-cli/pkg/browserless"
	"github.com/marquee-data/marquee-cli/pkg/firecrawl"
	"github.com/marquee-data/marquee-cli/pkg/jina"
	"github.com/marquee-data/marquee-cli/pkg/perplexity"
)

// initStore opens the configured backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		st, err = store.NewSQLite(cfg.Store.SQLitePath)
	}
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initGateway builds the provider chain in priority order: direct first,
// rendering last. Providers without credentials are left out.
func initGateway() *gateway.Gateway {
	var providers []gateway.Provider

	if !cfg.Gateway.DisableDirect {
		providers = append(providers, gateway.NewDirectProvider())
	}
	if cfg.Jina.Key != "" {
		providers = append(providers, gateway.NewJinaProvider(
			jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))))
	}
	if cfg.Firecrawl.Key != "" {
		providers = append(providers, gateway.NewFirecrawlProvider(
			firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))))
	}
	if cfg.Browserless.Token != "" {
		providers = append(providers, gateway.NewBrowserlessProvider(
			browserless.NewClient(cfg.Browserless.Token, browserless.WithBaseURL(cfg.Browserless.BaseURL))))
	}

	return gateway.New(gatewayOptions(), providers...)
}

func gatewayOptions() gateway.Options {
	return gateway.Options{
		BaseDelay: time.Duration(cfg.Gateway.BaseDelaySecs) * time.Second,
		Cooldown:  time.Duration(cfg.Gateway.CooldownMins) * time.Minute,
	}
}

// qualityConfig applies configured thresholds over the defaults.
func qualityConfig() quality.Config {
	qc := quality.DefaultConfig()
	if cfg.Quality.MinChars > 0 {
		qc.MinChars = cfg.Quality.MinChars
	}
	if cfg.Quality.BodyChars > 0 {
		qc.BodyChars = cfg.Quality.BodyChars
	}
	if cfg.Quality.TruncationWordFloor > 0 {
		qc.TruncationWordFloor = cfg.Quality.TruncationWordFloor
	}
	return qc
}

// loadRefdata loads the reference dictionary. A missing file is not fatal;
// title hints and the subject-mismatch rule are simply disabled.
func loadRefdata() *refdata.Dictionary {
	dict, err := refdata.Load(cfg.Refdata.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			zap.L().Warn("refdata file not found, subject lookups disabled",
				zap.String("path", cfg.Refdata.Path))
			return nil
		}
		zap.L().Warn("refdata load failed, subject lookups disabled",
			zap.String("path", cfg.Refdata.Path),
			zap.Error(err))
		return nil
	}
	return dict
}

// subjectTitles adapts the dictionary to the pipeline's title lookup.
type subjectTitles struct {
	dict *refdata.Dictionary
}

func (s subjectTitles) SubjectTitle(id string) string {
	title, _ := s.dict.SubjectTitle(id)
	return title
}

// pipelineEnv bundles the shared dependencies of the ingest-side commands.
type pipelineEnv struct {
	Store    store.Store
	Gateway  *gateway.Gateway
	Refdata  *refdata.Dictionary
	Pipeline *pipeline.Pipeline
}

// initPipeline wires the full ingestion stack from configuration.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("ingest"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	gw := initGateway()
	dict := loadRefdata()

	var qualityLookup quality.SubjectLookup
	var titles pipeline.SubjectLookup
	if dict != nil {
		qualityLookup = dict
		titles = subjectTitles{dict: dict}
	}

	var sem pipeline.SemanticClassifier
	if cfg.Anthropic.Key != "" || cfg.Perplexity.Key != "" {
		var primary anthropicpkg.Client
		if cfg.Anthropic.Key != "" {
			primary = anthropicpkg.NewClient(cfg.Anthropic.Key)
		}
		var fallback perplexity.Client
		if cfg.Perplexity.Key != "" {
			fallback = perplexity.NewClient(cfg.Perplexity.Key,
				perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
				perplexity.WithModel(cfg.Perplexity.Model))
		}
		sem = semantic.New(primary, fallback, cfg.Anthropic.HaikuModel)
	} else {
		zap.L().Warn("no LLM credentials configured, semantic relevance stage disabled")
	}

	p := pipeline.New(
		gw,
		quality.New(qualityConfig(), qualityLookup),
		sem,
		guardian.New(cfg.Guardian.Overrides),
		st,
		titles,
	)

	return &pipelineEnv{
		Store:    st,
		Gateway:  gw,
		Refdata:  dict,
		Pipeline: p,
	}, nil
}

// Close releases the environment's resources.
func (e *pipelineEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}
