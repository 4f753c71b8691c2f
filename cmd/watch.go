// File: cmd/watch.go
package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wildmooseai/pageprep/internal/engine/poller"
	"github.com/wildmooseai/pageprep/internal/observability"
	"github.com/wildmooseai/pageprep/internal/runner"
)

// newWatchCmd creates the `watch` command: install the mutation watcher
// and the navigation interceptor and hold the page until interrupted.
func newWatchCmd() *cobra.Command {
	var (
		url       string
		htmlFile  string
		duration  time.Duration
		skipReady bool
	)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a page, removing configured elements as they appear",
		Long: `Attaches to a page, waits for it to become ready, then keeps watching:
elements matching the configured class-prefix rules are removed the
moment they appear, and clicks on new-window anchors are rewritten into
in-place navigation. Runs until interrupted or --duration elapses.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("readiness.selector", cmd.Flags().Lookup("selector"))
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

			if !skipReady {
				if _, err := r.RunReady(ctx, doc); err != nil {
					if !poller.IsNotFound(err) {
						return err
					}
					// A page that never settles still gets watched.
					logger.Warn("Proceeding without readiness confirmation.", zap.Error(err))
				}
			}

			watchCtx := ctx
			if duration > 0 {
				var cancel context.CancelFunc
				watchCtx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			logger.Info("Watching page.",
				zap.String("url", doc.URL()),
				zap.String("session", r.SessionID()))
			return r.RunWatch(watchCtx, doc)
		},
	}

	watchCmd.Flags().StringVar(&url, "url", "", "page URL to attach to")
	watchCmd.Flags().StringVar(&htmlFile, "html", "", "saved HTML file to analyze offline")
	watchCmd.Flags().DurationVar(&duration, "duration", 0, "stop watching after this long (0 = until interrupted)")
	watchCmd.Flags().BoolVar(&skipReady, "skip-ready", false, "start watching without the readiness wait")
	watchCmd.Flags().String("selector", "", "readiness CSS selector (overrides config)")

	return watchCmd
}
