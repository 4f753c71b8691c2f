// File: internal/engine/watcher/watcher.go

// Package watcher implements the persistent DOM cleanup observer: it
// reacts to mutation batches for a page's lifetime and detaches elements
// matching the configured rules, e.g. onboarding billboards injected
// after load.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/browser/page"
)

// Document is the page surface the watcher needs.
type Document interface {
	page.Querier
	page.Remover
	page.MutationSource
	URL() string
}

// RemovalFunc observes every element the watcher detaches.
type RemovalFunc func(schemas.RemovalEvent)

// rootProbeInterval paces the bounded wait for the document's
// structural root during installation.
const rootProbeInterval = 50 * time.Millisecond

// Watcher enforces cleanup rules against a document.
type Watcher struct {
	doc          Document
	rules        []schemas.WatchRule
	onRemoval    RemovalFunc
	readyTimeout time.Duration
	logger       *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithRemovalFunc installs a callback invoked for each removed element.
func WithRemovalFunc(fn RemovalFunc) Option {
	return func(w *Watcher) { w.onRemoval = fn }
}

// WithLogger sets the watcher logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithReadyTimeout bounds how long Install waits for the document's
// structural root to appear before the initial sweep. Zero disables the
// wait entirely.
func WithReadyTimeout(d time.Duration) Option {
	return func(w *Watcher) { w.readyTimeout = d }
}

// New creates a watcher. Rules are validated up front so malformed
// configuration fails at construction rather than mid-observation.
func New(doc Document, rules []schemas.WatchRule, opts ...Option) (*Watcher, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	w := &Watcher{
		doc:    doc,
		rules:  rules,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("watcher")
	return w, nil
}

// Handle controls an installed watcher's lifetime.
type Handle struct {
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	removed *removalCounter
}

// Dispose detaches the watcher and waits for its goroutine to exit.
// Idempotent; further mutations are ignored after return.
func (h *Handle) Dispose() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
	})
}

// Removed reports how many elements the watcher has detached so far.
func (h *Handle) Removed() int { return h.removed.load() }

type removalCounter struct {
	mu sync.Mutex
	n  int
}

func (c *removalCounter) add(n int) {
	c.mu.Lock()
	c.n += n
	c.mu.Unlock()
}

func (c *removalCounter) load() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Install sweeps the current document once, then reacts to mutation
// batches until Dispose is called, ctx is canceled, or the page closes.
// A failing initial sweep aborts installation.
func (w *Watcher) Install(ctx context.Context) (*Handle, error) {
	if err := w.awaitRoot(ctx); err != nil {
		return nil, err
	}

	counter := &removalCounter{}
	if n, err := w.sweep(ctx); err != nil {
		return nil, fmt.Errorf("initial sweep: %w", err)
	} else {
		counter.add(n)
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{}), removed: counter}

	go func() {
		defer close(h.done)
		for {
			select {
			case <-runCtx.Done():
				return
			case batch, ok := <-w.doc.Mutations():
				if !ok {
					return
				}
				if !relevant(batch) {
					continue
				}
				n, err := w.sweep(runCtx)
				if err != nil {
					if runCtx.Err() != nil {
						return
					}
					w.logger.Error("Sweep after mutation batch failed.", zap.Error(err))
					continue
				}
				counter.add(n)
			}
		}
	}()

	w.logger.Info("Watcher installed.",
		zap.Int("rules", len(w.rules)),
		zap.String("url", w.doc.URL()))
	return h, nil
}

// awaitRoot blocks until the document has a structural root element,
// bounded by the configured ready timeout. Pages constructed from a
// parsed tree resolve on the first probe.
func (w *Watcher) awaitRoot(ctx context.Context) error {
	if w.readyTimeout <= 0 {
		return nil
	}
	deadline := time.Now().Add(w.readyTimeout)
	for {
		el, err := w.doc.QueryFirst(ctx, "html")
		if err != nil {
			return fmt.Errorf("probing document root: %w", err)
		}
		if el != nil {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("document root not ready after %s", w.readyTimeout)
		}
		timer := time.NewTimer(rootProbeInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// sweep applies every rule against the current document and returns the
// number of removals. Removal of already-detached elements is a no-op
// inside the page, so overlapping sweeps stay idempotent.
func (w *Watcher) sweep(ctx context.Context) (int, error) {
	removed := 0
	for _, rule := range w.rules {
		els, err := w.doc.QueryAll(ctx, rule.Selector())
		if err != nil {
			return removed, fmt.Errorf("rule %q: %w", rule.ClassPrefix, err)
		}
		for _, el := range els {
			if err := w.doc.Remove(ctx, el); err != nil {
				return removed, fmt.Errorf("removing %q: %w", el.XPath, err)
			}
			removed++
			w.logger.Debug("Removed element.",
				zap.String("class_prefix", rule.ClassPrefix),
				zap.String("xpath", el.XPath))
			if w.onRemoval != nil {
				w.onRemoval(schemas.RemovalEvent{
					Rule:    rule,
					Element: el.Summary(),
					PageURL: w.doc.URL(),
					At:      time.Now(),
				})
			}
		}
	}
	return removed, nil
}

// relevant filters out batches that cannot introduce new rule matches:
// pure removal batches, including the echoes of the watcher's own
// removals, never warrant a sweep.
func relevant(batch schemas.MutationBatch) bool {
	for _, r := range batch.Records {
		if r.Op == schemas.OpInsert || r.Op == schemas.OpAttr {
			return true
		}
	}
	return false
}
