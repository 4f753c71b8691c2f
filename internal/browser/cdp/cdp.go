// File: internal/browser/cdp/cdp.go

// Package cdp implements page.Page over a live Chrome tab driven through
// the DevTools protocol. A persistent script relays mutation batches and
// click gestures through a runtime binding; queries and removals run as
// evaluated snippets against the current document.
package cdp

import (
	"context"
	"fmt"
	"sync"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/browser/page"
	"github.com/wildmooseai/pageprep/internal/browser/scripts"
	"github.com/wildmooseai/pageprep/internal/config"
	"github.com/wildmooseai/pageprep/internal/engine/navguard"
)

// BindingName is the runtime binding the injected relays post through.
const BindingName = "pageprepEmit"

// eventBuffer bounds the relay channels; overflow drops with a warning.
const eventBuffer = 256

// Page is a CDP-attached page.Page implementation.
type Page struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	cfg      config.BrowserConfig
	sentinel string
	logger   *zap.Logger

	mu        sync.Mutex
	url       string
	closed    bool
	mutations chan schemas.MutationBatch
	gestures  chan schemas.NavigationGesture
	closeOnce sync.Once
}

// Option configures an attached page.
type Option func(*Page)

// WithLogger sets the page logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Page) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSentinel sets the new-window target value baked into the click
// relay.
func WithSentinel(sentinel string) Option {
	return func(p *Page) {
		if sentinel != "" {
			p.sentinel = sentinel
		}
	}
}

// Attach launches a browser tab, installs the relays, and returns the
// live page. The returned page must be closed to release the browser.
func Attach(parent context.Context, cfg config.BrowserConfig, opts ...Option) (*Page, error) {
	p := &Page{
		cfg:       cfg,
		sentinel:  navguard.DefaultSentinel,
		logger:    zap.NewNop(),
		url:       "about:blank",
		mutations: make(chan schemas.MutationBatch, eventBuffer),
		gestures:  make(chan schemas.NavigationGesture, eventBuffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("cdp")

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
	)
	if cfg.IgnoreTLSErrors {
		allocOpts = append(allocOpts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if cfg.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	p.tabCtx = tabCtx
	p.tabCancel = tabCancel
	p.allocCancel = allocCancel

	// Starting with an empty task list launches the browser eagerly so
	// attach failures surface here, not on first use.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	bootstrap := scripts.Bootstrap(BindingName, p.sentinel)
	err := chromedp.Run(tabCtx,
		runtime.AddBinding(BindingName),
		chromedp.ActionFunc(func(c context.Context) error {
			_, err := cdppage.AddScriptToEvaluateOnNewDocument(bootstrap).Do(c)
			return err
		}),
	)
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("installing relays: %w", err)
	}

	chromedp.ListenTarget(tabCtx, p.onTargetEvent)
	p.logger.Info("Browser attached.", zap.Bool("headless", cfg.Headless))
	return p, nil
}

func (p *Page) onTargetEvent(ev any) {
	switch ev := ev.(type) {
	case *runtime.EventBindingCalled:
		if ev.Name != BindingName {
			return
		}
		p.dispatch([]byte(ev.Payload))
	case *cdppage.EventFrameNavigated:
		// Only the main frame updates the page URL.
		if ev.Frame.ParentID == "" {
			p.mu.Lock()
			p.url = ev.Frame.URL
			p.mu.Unlock()
		}
	}
}

func (p *Page) dispatch(raw []byte) {
	payload, err := decodePayload(raw)
	if err != nil {
		p.logger.Warn("Dropping malformed relay payload.", zap.Error(err))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	switch payload.Kind {
	case kindMutations:
		batch := schemas.MutationBatch{Records: payload.records(), At: time.Now()}
		select {
		case p.mutations <- batch:
		default:
			p.logger.Warn("Mutation channel full; dropping batch.",
				zap.Int("records", len(batch.Records)))
		}
	case kindGesture:
		select {
		case p.gestures <- payload.gesture():
		default:
			p.logger.Warn("Gesture channel full; dropping gesture.")
		}
	}
}

// -- page.Page --

// QueryFirst evaluates a selector probe in the page and returns the
// first match, or (nil, nil) when nothing matches.
func (p *Page) QueryFirst(ctx context.Context, selector string) (*page.Element, error) {
	var res queryResult
	if err := p.run(ctx, chromedp.Evaluate(scripts.QueryFirst(selector), &res)); err != nil {
		return nil, fmt.Errorf("evaluating query: %w", err)
	}
	if err := res.err(selector); err != nil {
		return nil, err
	}
	if res.Element == nil {
		return nil, nil
	}
	return res.Element.element(), nil
}

// QueryAll evaluates a selector probe and returns every match.
func (p *Page) QueryAll(ctx context.Context, selector string) ([]*page.Element, error) {
	var res queryResult
	if err := p.run(ctx, chromedp.Evaluate(scripts.QueryAll(selector), &res)); err != nil {
		return nil, fmt.Errorf("evaluating query: %w", err)
	}
	if err := res.err(selector); err != nil {
		return nil, err
	}
	els := make([]*page.Element, 0, len(res.Elements))
	for _, e := range res.Elements {
		els = append(els, e.element())
	}
	return els, nil
}

// Remove detaches the node the handle resolves to. Handles that no
// longer resolve are a no-op.
func (p *Page) Remove(ctx context.Context, el *page.Element) error {
	if el == nil || el.XPath == "" {
		return nil
	}
	var removed bool
	if err := p.run(ctx, chromedp.Evaluate(scripts.RemoveByXPath(el.XPath), &removed)); err != nil {
		return fmt.Errorf("evaluating removal: %w", err)
	}
	if !removed {
		p.logger.Debug("Removal was a no-op; node already detached.",
			zap.String("xpath", el.XPath))
	}
	return nil
}

// Navigate drives the tab to url and waits for the load to commit.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if p.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.NavigationTimeout)
		defer cancel()
	}
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %q: %w", url, err)
	}
	// Late-running page scripts keep rewriting the DOM after load
	// commits; give them a fixed window before the caller starts
	// querying.
	if p.cfg.ActionEffectWait > 0 {
		if err := p.run(ctx, chromedp.Sleep(p.cfg.ActionEffectWait)); err != nil {
			return fmt.Errorf("settling after navigation: %w", err)
		}
	}
	return nil
}

// URL returns the main frame's current URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Mutations returns the mutation batch channel.
func (p *Page) Mutations() <-chan schemas.MutationBatch { return p.mutations }

// Gestures returns the navigation gesture channel.
func (p *Page) Gestures() <-chan schemas.NavigationGesture { return p.gestures }

// Close tears down the tab and the browser. Idempotent.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		p.tabCancel()
		p.allocCancel()
		close(p.mutations)
		close(p.gestures)
		p.logger.Info("Browser detached.")
	})
	return nil
}

// run executes actions against the tab, honoring the caller's context
// alongside the tab's own lifetime.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return page.ErrPageClosed
	}

	runCtx, cancel := combineContext(p.tabCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// combineContext derives a context from the tab context (keeping the
// chromedp session values) that is also canceled when the caller's
// context ends.
func combineContext(tab, caller context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(tab)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
