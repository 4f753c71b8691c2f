// File: cmd/session.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/wildmooseai/pageprep/internal/browser/cdp"
	"github.com/wildmooseai/pageprep/internal/browser/memdom"
	"github.com/wildmooseai/pageprep/internal/browser/page"
	"github.com/wildmooseai/pageprep/internal/config"
)

// openPage acquires the document the command operates on: a saved HTML
// file loads into the in-memory backend, a URL attaches a live browser.
func openPage(ctx context.Context, cfg *config.Config, logger *zap.Logger, url, htmlFile string) (page.Page, error) {
	if htmlFile != "" {
		raw, err := os.ReadFile(htmlFile)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", htmlFile, err)
		}
		p, err := memdom.New(string(raw),
			memdom.WithURL("file://"+htmlFile),
			memdom.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", htmlFile, err)
		}
		return p, nil
	}

	if url == "" {
		return nil, fmt.Errorf("either --url or --html is required")
	}

	p, err := cdp.Attach(ctx, cfg.Browser,
		cdp.WithLogger(logger),
		cdp.WithSentinel(cfg.Navigation.NewTabSentinel),
	)
	if err != nil {
		return nil, err
	}
	if err := p.Navigate(ctx, url); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}
