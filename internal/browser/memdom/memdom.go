// File: internal/browser/memdom/memdom.go

// Package memdom implements page.Page over an in-memory HTML document.
// It backs tests and offline analysis of saved pages, and mirrors the
// event semantics of the live CDP backend: DOM changes surface as
// coalesced mutation batches and simulated clicks surface as navigation
// gestures.
package memdom

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/browser/page"
)

// eventBuffer bounds the mutation and gesture channels. Overflowing
// events are dropped with a warning rather than blocking the document
// mutators.
const eventBuffer = 64

// NavigateFunc loads the document body for a URL during Navigate.
type NavigateFunc func(ctx context.Context, url string) (string, error)

// Page is an in-memory page.Page implementation.
type Page struct {
	mu       sync.Mutex
	doc      *html.Node
	url      string
	closed   bool
	navigate NavigateFunc
	logger   *zap.Logger

	mutations chan schemas.MutationBatch
	gestures  chan schemas.NavigationGesture
	closeOnce sync.Once
}

// Option configures a Page.
type Option func(*Page)

// WithURL sets the page's initial URL.
func WithURL(url string) Option {
	return func(p *Page) { p.url = url }
}

// WithLogger sets the page logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Page) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithNavigateFunc installs a document loader invoked by Navigate.
// Without one, Navigate only records the new URL.
func WithNavigateFunc(fn NavigateFunc) Option {
	return func(p *Page) { p.navigate = fn }
}

// New parses rawHTML into a page.
func New(rawHTML string, opts ...Option) (*Page, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	p := &Page{
		doc:       doc,
		logger:    zap.NewNop(),
		mutations: make(chan schemas.MutationBatch, eventBuffer),
		gestures:  make(chan schemas.NavigationGesture, eventBuffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("memdom")
	return p, nil
}

// -- page.Page --

// QueryFirst returns the first element matching the CSS selector, or
// (nil, nil) when nothing matches.
func (p *Page) QueryFirst(ctx context.Context, selector string) (*page.Element, error) {
	els, err := p.query(ctx, selector, true)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

// QueryAll returns every element matching the CSS selector.
func (p *Page) QueryAll(ctx context.Context, selector string) ([]*page.Element, error) {
	return p.query(ctx, selector, false)
}

func (p *Page) query(ctx context.Context, selector string, firstOnly bool) ([]*page.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	expr, err := translateCSSToXPath(selector)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, page.ErrPageClosed
	}

	nodes, err := htmlquery.QueryAll(p.doc, expr)
	if err != nil {
		// The translator emits well-formed XPath; reaching here means
		// the selector smuggled in something the translator passed
		// through.
		return nil, fmt.Errorf("%w: %q: %v", page.ErrInvalidSelector, selector, err)
	}

	var els []*page.Element
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		els = append(els, elementFromNode(n))
		if firstOnly {
			break
		}
	}
	return els, nil
}

// Remove detaches the element from its parent. Detached or stale handles
// are a no-op.
func (p *Page) Remove(ctx context.Context, el *page.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if el == nil || el.XPath == "" {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return page.ErrPageClosed
	}

	node, err := htmlquery.Query(p.doc, el.XPath)
	if err != nil {
		return fmt.Errorf("resolving element %q: %w", el.XPath, err)
	}
	if node == nil || node.Parent == nil {
		// Already gone; removal is idempotent.
		return nil
	}

	node.Parent.RemoveChild(node)
	p.emitLocked(schemas.MutationBatch{
		Records: []schemas.MutationRecord{{
			Op:    schemas.OpRemove,
			XPath: el.XPath,
			Tag:   el.Tag,
			Class: el.Class,
		}},
		At: time.Now(),
	})
	return nil
}

// Navigate records the new URL and, when a loader is installed, replaces
// the document with the loaded content.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body string
	if p.navigate != nil {
		loaded, err := p.navigate(ctx, url)
		if err != nil {
			return fmt.Errorf("loading %q: %w", url, err)
		}
		body = loaded
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return page.ErrPageClosed
	}

	p.url = url
	if body != "" {
		doc, err := html.Parse(strings.NewReader(body))
		if err != nil {
			return fmt.Errorf("parsing %q: %w", url, err)
		}
		p.doc = doc
		p.emitLocked(schemas.MutationBatch{
			Records: []schemas.MutationRecord{{Op: schemas.OpInsert, XPath: "/html[1]", Tag: "html"}},
			At:      time.Now(),
		})
	}
	return nil
}

// URL returns the page's current URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Mutations returns the mutation batch channel.
func (p *Page) Mutations() <-chan schemas.MutationBatch { return p.mutations }

// Gestures returns the navigation gesture channel.
func (p *Page) Gestures() <-chan schemas.NavigationGesture { return p.gestures }

// Close marks the page closed and closes the event channels. Idempotent.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.mutations)
		close(p.gestures)
	})
	return nil
}

// -- Simulation surface --

// InsertHTML parses fragment in the context of the node at parentXPath
// and appends the resulting children, emitting one coalesced batch.
func (p *Page) InsertHTML(ctx context.Context, parentXPath, fragment string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return page.ErrPageClosed
	}

	parent, err := htmlquery.Query(p.doc, parentXPath)
	if err != nil || parent == nil {
		return fmt.Errorf("no node at %q", parentXPath)
	}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}

	records := make([]schemas.MutationRecord, 0, len(nodes))
	for _, n := range nodes {
		parent.AppendChild(n)
		if n.Type != html.ElementNode {
			continue
		}
		records = append(records, schemas.MutationRecord{
			Op:    schemas.OpInsert,
			XPath: GenerateUniqueXPath(n),
			Tag:   strings.ToLower(n.Data),
			Class: htmlquery.SelectAttr(n, "class"),
		})
	}
	if len(records) > 0 {
		p.emitLocked(schemas.MutationBatch{Records: records, At: time.Now()})
	}
	return nil
}

// SetAttr sets an attribute on the node at xpath and emits an attribute
// mutation record.
func (p *Page) SetAttr(ctx context.Context, xpathExpr, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return page.ErrPageClosed
	}

	node, err := htmlquery.Query(p.doc, xpathExpr)
	if err != nil || node == nil {
		return fmt.Errorf("no node at %q", xpathExpr)
	}

	setAttr(node, key, value)
	p.emitLocked(schemas.MutationBatch{
		Records: []schemas.MutationRecord{{
			Op:    schemas.OpAttr,
			XPath: GenerateUniqueXPath(node),
			Tag:   strings.ToLower(node.Data),
			Class: htmlquery.SelectAttr(node, "class"),
		}},
		At: time.Now(),
	})
	return nil
}

// Click simulates a click on the node at xpath: the nearest ancestor
// anchor (the node included) determines the emitted gesture, mirroring
// event bubbling to a document-level listener.
func (p *Page) Click(ctx context.Context, xpathExpr string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return page.ErrPageClosed
	}

	node, err := htmlquery.Query(p.doc, xpathExpr)
	if err != nil || node == nil {
		return fmt.Errorf("no node at %q", xpathExpr)
	}

	gesture := schemas.NavigationGesture{}
	for n := node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "a") {
			gesture.Anchor = true
			gesture.Target = htmlquery.SelectAttr(n, "target")
			gesture.Href = htmlquery.SelectAttr(n, "href")
			break
		}
	}

	select {
	case p.gestures <- gesture:
	default:
		p.logger.Warn("Gesture channel full; dropping click gesture.")
	}
	return nil
}

// -- internals --

func (p *Page) emitLocked(batch schemas.MutationBatch) {
	select {
	case p.mutations <- batch:
	default:
		p.logger.Warn("Mutation channel full; dropping batch.",
			zap.Int("records", len(batch.Records)))
	}
}

func elementFromNode(n *html.Node) *page.Element {
	return &page.Element{
		Tag:       strings.ToLower(n.Data),
		ID:        htmlquery.SelectAttr(n, "id"),
		Class:     htmlquery.SelectAttr(n, "class"),
		AriaLabel: htmlquery.SelectAttr(n, "aria-label"),
		XPath:     GenerateUniqueXPath(n),
	}
}

func setAttr(n *html.Node, key, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}
