// File: internal/engine/poller/poller.go

// Package poller implements the bounded readiness wait: a fixed-interval
// retry loop that resolves once a CSS selector matches, applies a settle
// delay, and reports a typed not-found failure when the budget runs out.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/browser/page"
)

// DefaultInterval is the fixed delay between consecutive queries.
const DefaultInterval = 100 * time.Millisecond

// ErrAwaitInProgress reports a second Await on a poller whose previous
// wait has not resolved. Each wait needs its own poller.
var ErrAwaitInProgress = errors.New("await already in progress")

// NotFoundError reports that the selector never matched within the
// budget. The selector and budget are carried for diagnostics.
type NotFoundError struct {
	Selector string
	Timeout  time.Duration
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("element %q not found within %s", e.Selector, e.Timeout)
}

// IsNotFound reports whether err is a readiness timeout.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Poller runs readiness waits against a document.
type Poller struct {
	querier  page.Querier
	interval time.Duration
	logger   *zap.Logger
	busy     atomic.Bool
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval overrides the query interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the poller logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// New creates a poller over the given querier.
func New(querier page.Querier, opts ...Option) *Poller {
	p := &Poller{
		querier:  querier,
		interval: DefaultInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("poller")
	return p
}

// Await blocks until the query's selector matches, the budget expires,
// or ctx is canceled. On a match the configured settle delay elapses
// before the handle is returned; the handle reflects the document state
// at detection time, not after the settle.
//
// The query runs once more after the budget expires, so a match landing
// exactly on the boundary still resolves successfully. A malformed
// selector fails immediately. Await is non-reentrant.
func (p *Poller) Await(ctx context.Context, query schemas.ReadinessQuery) (*page.Element, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrAwaitInProgress
	}
	defer p.busy.Store(false)

	start := time.Now()
	deadline := start.Add(query.Timeout)

	p.logger.Debug("Readiness wait started.",
		zap.String("selector", query.Selector),
		zap.Duration("timeout", query.Timeout))

	for attempt := 1; ; attempt++ {
		el, err := p.querier.QueryFirst(ctx, query.Selector)
		if err != nil {
			return nil, fmt.Errorf("readiness query: %w", err)
		}
		if el != nil {
			p.logger.Debug("Element found; settling.",
				zap.String("selector", query.Selector),
				zap.Int("attempt", attempt),
				zap.Duration("elapsed", time.Since(start)))
			if err := sleep(ctx, query.Settle); err != nil {
				return nil, err
			}
			return el, nil
		}

		// The found path is checked first, so a match landing exactly
		// at the deadline still wins.
		if !time.Now().Before(deadline) {
			p.logger.Debug("Readiness wait timed out.",
				zap.String("selector", query.Selector),
				zap.Int("attempts", attempt))
			return nil, &NotFoundError{Selector: query.Selector, Timeout: query.Timeout}
		}

		if err := sleep(ctx, p.interval); err != nil {
			return nil, err
		}
	}
}

// sleep blocks for d unless ctx is canceled first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
