// File: cmd/ready.go
package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wildmooseai/pageprep/internal/engine/poller"
	"github.com/wildmooseai/pageprep/internal/observability"
	"github.com/wildmooseai/pageprep/internal/runner"
)

// newReadyCmd creates the `ready` command: one bounded wait for the
// configured selector to appear.
func newReadyCmd() *cobra.Command {
	var (
		url      string
		htmlFile string
	)

	readyCmd := &cobra.Command{
		Use:   "ready",
		Short: "Wait for an element to appear on a page",
		Long: `Polls the page at a fixed interval until the configured CSS selector
matches, applies the settle delay, and prints the outcome. Exits
non-zero when the element never appears within the budget.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("readiness.selector", cmd.Flags().Lookup("selector")); err != nil {
				return err
			}
			if err := viper.BindPFlag("readiness.timeout", cmd.Flags().Lookup("timeout")); err != nil {
				return err
			}
			return viper.BindPFlag("readiness.settle", cmd.Flags().Lookup("settle"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			doc, err := openPage(ctx, cfg, logger, url, htmlFile)
			if err != nil {
				return err
			}
			defer doc.Close()

			r, err := runner.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			result, err := r.RunReady(ctx, doc)
			if poller.IsNotFound(err) {
				logger.Warn("Element did not appear.",
					zap.String("selector", result.Selector),
					zap.Duration("elapsed", result.Elapsed))
				return err
			}
			if err != nil {
				return err
			}

			out, merr := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(result, "", "  ")
			if merr != nil {
				return merr
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	readyCmd.Flags().StringVar(&url, "url", "", "page URL to attach to")
	readyCmd.Flags().StringVar(&htmlFile, "html", "", "saved HTML file to analyze offline")
	readyCmd.Flags().String("selector", "", "CSS selector to wait for (overrides config)")
	readyCmd.Flags().Duration("timeout", 0, "total wait budget (overrides config)")
	readyCmd.Flags().Duration("settle", 0, "delay applied after detection (overrides config)")

	return readyCmd
}
