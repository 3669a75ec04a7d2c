package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/gateway"
)

var (
	fetchURL      string
	fetchProvider string
	fetchRender   bool
	fetchStats    bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a single URL through the provider chain",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		gw := initGateway()

		req := gateway.FetchRequest{
			URL:           fetchURL,
			RequireRender: fetchRender,
		}
		if fetchProvider != "" {
			kind, err := parseProviderKind(fetchProvider)
			if err != nil {
				return err
			}
			req.Provider = &kind
		}

		res, err := gw.Fetch(ctx, req)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		zap.L().Info("fetch complete",
			zap.Stringer("provider", res.Provider),
			zap.String("format", string(res.Format)),
			zap.Int("chars", len(res.Content)),
		)

		if fetchStats {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"sessions": gw.SessionStats(),
				"counters": gw.Counters(),
			})
		}

		fmt.Println(res.Content)
		return nil
	},
}

func parseProviderKind(name string) (gateway.Kind, error) {
	switch name {
	case "direct":
		return gateway.KindDirect, nil
	case "jina":
		return gateway.KindJina, nil
	case "firecrawl":
		return gateway.KindFirecrawl, nil
	case "browserless":
		return gateway.KindBrowserless, nil
	default:
		return 0, eris.Errorf("unknown provider %q", name)
	}
}

func init() {
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "URL to fetch (required)")
	fetchCmd.Flags().StringVar(&fetchProvider, "provider", "", "restrict to one provider: direct, jina, firecrawl, browserless")
	fetchCmd.Flags().BoolVar(&fetchRender, "render", false, "require the headless rendering provider")
	fetchCmd.Flags().BoolVar(&fetchStats, "stats", false, "print session stats instead of content")
	_ = fetchCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(fetchCmd)
}
