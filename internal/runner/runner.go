// File: internal/runner/runner.go

// Package runner wires the engine components together for a session:
// it builds the sink pipeline from configuration, runs readiness waits,
// and supervises the long-lived watcher and navigation interceptor.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/browser/page"
	"github.com/wildmooseai/pageprep/internal/config"
	"github.com/wildmooseai/pageprep/internal/engine/clickpolicy"
	"github.com/wildmooseai/pageprep/internal/engine/navguard"
	"github.com/wildmooseai/pageprep/internal/engine/poller"
	"github.com/wildmooseai/pageprep/internal/engine/watcher"
	"github.com/wildmooseai/pageprep/internal/journal"
	"github.com/wildmooseai/pageprep/internal/sink"
)

// Runner drives engine sessions against a page.
type Runner struct {
	cfg        *config.Config
	logger     *zap.Logger
	router     *sink.Router
	classifier *clickpolicy.Classifier
	sessionID  string
}

// New builds a runner and its sink pipeline from configuration.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, extra ...sink.Sink) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var sinks []sink.Sink
	if cfg.Sinks.Stdout {
		sinks = append(sinks, sink.NewStdoutSink())
	}
	if cfg.Sinks.Webhook.URL != "" {
		wh, err := sink.NewWebhookSink(cfg.Sinks.Webhook)
		if err != nil {
			return nil, fmt.Errorf("building webhook sink: %w", err)
		}
		sinks = append(sinks, wh)
	}
	if cfg.Journal.Enabled {
		j, err := journal.Open(ctx, cfg.Journal.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		sinks = append(sinks, j)
	}
	sinks = append(sinks, extra...)

	return &Runner{
		cfg:        cfg,
		logger:     logger.Named("runner"),
		router:     sink.NewRouter(logger, sinks...),
		classifier: clickpolicy.FromConfig(cfg.ClickPolicy),
		sessionID:  uuid.NewString(),
	}, nil
}

// SessionID returns the identifier stamped on every emitted event.
func (r *Runner) SessionID() string { return r.sessionID }

// Close releases the sink pipeline.
func (r *Runner) Close() error {
	return r.router.Close()
}

// ReadyDocument is the page surface a readiness wait needs.
type ReadyDocument interface {
	page.Querier
	URL() string
}

// RunReady performs one readiness wait using the configured selector,
// budget, and settle delay. The outcome is emitted as an event whether
// the element appeared or the budget ran out; a typed not-found error
// accompanies the negative result.
func (r *Runner) RunReady(ctx context.Context, doc ReadyDocument) (schemas.ReadinessResult, error) {
	p := poller.New(doc,
		poller.WithInterval(r.cfg.Readiness.PollInterval),
		poller.WithLogger(r.logger),
	)
	query := schemas.ReadinessQuery{
		Selector: r.cfg.Readiness.Selector,
		Timeout:  r.cfg.Readiness.Timeout,
		Settle:   r.cfg.Readiness.Settle,
	}

	start := time.Now()
	el, err := p.Await(ctx, query)
	if err != nil && !poller.IsNotFound(err) {
		// Selector and transport failures carry no result.
		return schemas.ReadinessResult{}, err
	}

	result := schemas.ReadinessResult{
		PageURL:  doc.URL(),
		Selector: query.Selector,
		Found:    el != nil,
		Elapsed:  time.Since(start),
	}
	if el != nil {
		result.Element = el.Summary()
	}
	r.emit(ctx, schemas.Event{Kind: schemas.EventReadiness, Readiness: &result})
	return result, err
}

// RunWatch installs the mutation watcher and the navigation interceptor
// and supervises them until ctx is canceled or the page closes. Removals
// and rewritten gestures are emitted as events.
func (r *Runner) RunWatch(ctx context.Context, doc page.Page) error {
	w, err := watcher.New(doc, r.cfg.Watcher.WatchRules(),
		watcher.WithLogger(r.logger),
		watcher.WithReadyTimeout(r.cfg.Watcher.ReadyTimeout),
		watcher.WithRemovalFunc(func(ev schemas.RemovalEvent) {
			r.emit(ctx, schemas.Event{Kind: schemas.EventRemoval, Removal: &ev})
		}),
	)
	if err != nil {
		return fmt.Errorf("building watcher: %w", err)
	}

	interceptor := navguard.New(doc,
		navguard.WithSentinel(r.cfg.Navigation.NewTabSentinel),
		navguard.WithLogger(r.logger),
		navguard.WithRedirectFunc(func(g schemas.NavigationGesture) {
			r.emit(ctx, schemas.Event{Kind: schemas.EventGesture, Gesture: &g})
		}),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := w.Install(gctx)
		if err != nil {
			return err
		}
		defer h.Dispose()
		<-gctx.Done()
		r.logger.Info("Watcher stopping.", zap.Int("removed", h.Removed()))
		return gctx.Err()
	})
	g.Go(func() error {
		h := interceptor.Install(gctx)
		defer h.Dispose()
		<-gctx.Done()
		return gctx.Err()
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// Classify runs the click-override classifier over element snapshots.
func (r *Runner) Classify(infos []schemas.ElementInfo) []schemas.Verdict {
	verdicts := make([]schemas.Verdict, 0, len(infos))
	for _, info := range infos {
		verdicts = append(verdicts, r.classifier.Classify(info))
	}
	return verdicts
}

func (r *Runner) emit(ctx context.Context, ev schemas.Event) {
	ev.SessionID = r.sessionID
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	// Delivery must survive the session winding down.
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := r.router.Emit(ctx, ev); err != nil {
		r.logger.Warn("Event delivery incomplete.",
			zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}
