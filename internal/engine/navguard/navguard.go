// File: internal/engine/navguard/navguard.go

// Package navguard keeps navigation in the current browsing context:
// clicks on anchors that would open a new window (target "_blank" by
// default) are rewritten into an in-place navigation to the anchor's
// href. Backends suppress the browser's default handling for matching
// anchors; the redirect decision itself lives here.
package navguard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/browser/page"
)

// DefaultSentinel is the anchor target value treated as a new-window
// request.
const DefaultSentinel = "_blank"

// Decision is the outcome of classifying one gesture.
type Decision struct {
	// Redirect is true when the gesture must be rewritten into an
	// in-place navigation.
	Redirect bool
	// Href is the navigation destination when Redirect is true.
	Href string
}

// Decide classifies a navigation gesture against the sentinel. Gestures
// without an anchor ancestor, with a non-sentinel target, or with an
// empty href are left to the page's default handling.
func Decide(g schemas.NavigationGesture, sentinel string) Decision {
	if !g.Anchor || g.Target != sentinel || g.Href == "" {
		return Decision{}
	}
	return Decision{Redirect: true, Href: g.Href}
}

// Browser is the page surface the interceptor needs.
type Browser interface {
	page.Navigator
	page.GestureSource
}

// RedirectFunc observes every gesture the interceptor rewrote.
type RedirectFunc func(schemas.NavigationGesture)

// Interceptor consumes click gestures and performs in-place redirects.
type Interceptor struct {
	browser    Browser
	sentinel   string
	onRedirect RedirectFunc
	logger     *zap.Logger
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithSentinel overrides the new-window target value.
func WithSentinel(sentinel string) Option {
	return func(i *Interceptor) {
		if sentinel != "" {
			i.sentinel = sentinel
		}
	}
}

// WithRedirectFunc installs a callback invoked after each rewrite.
func WithRedirectFunc(fn RedirectFunc) Option {
	return func(i *Interceptor) { i.onRedirect = fn }
}

// WithLogger sets the interceptor logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Interceptor) { i.logger = logger }
}

// New creates an interceptor over the given browser surface.
func New(browser Browser, opts ...Option) *Interceptor {
	i := &Interceptor{
		browser:  browser,
		sentinel: DefaultSentinel,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.Named("navguard")
	return i
}

// Handle controls an installed interceptor's lifetime.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Dispose detaches the interceptor and waits for its goroutine to exit.
// Idempotent.
func (h *Handle) Dispose() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
	})
}

// Install starts consuming gestures until Dispose is called, ctx is
// canceled, or the page closes.
func (i *Interceptor) Install(ctx context.Context) *Handle {
	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		for {
			select {
			case <-runCtx.Done():
				return
			case g, ok := <-i.browser.Gestures():
				if !ok {
					return
				}
				i.handle(runCtx, g)
			}
		}
	}()

	i.logger.Info("Navigation interceptor installed.",
		zap.String("sentinel", i.sentinel))
	return h
}

func (i *Interceptor) handle(ctx context.Context, g schemas.NavigationGesture) {
	d := Decide(g, i.sentinel)
	if !d.Redirect {
		return
	}

	i.logger.Info("Rewriting new-window navigation in place.",
		zap.String("href", d.Href))
	if err := i.browser.Navigate(ctx, d.Href); err != nil {
		if ctx.Err() != nil {
			return
		}
		i.logger.Error("In-place navigation failed.",
			zap.String("href", d.Href), zap.Error(err))
		return
	}
	if i.onRedirect != nil {
		i.onRedirect(g)
	}
}
