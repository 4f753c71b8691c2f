// File: internal/browser/page/page.go

// Package page defines the narrow surface the observation engine needs
// from a document, decoupling the engine from any particular backend.
// Two implementations exist: an in-memory DOM for tests and offline
// analysis, and a CDP-attached live page.
package page

import (
	"context"
	"errors"

	"github.com/wildmooseai/pageprep/api/schemas"
)

// ErrInvalidSelector reports a malformed CSS selector. It is always
// propagated to the caller, never swallowed, so selector typos surface
// as failures rather than silent timeouts.
var ErrInvalidSelector = errors.New("invalid selector")

// ErrPageClosed reports an operation against a page whose session has
// already been torn down.
var ErrPageClosed = errors.New("page closed")

// Element is a stable handle to a node in the document. The XPath is the
// identity: backends resolve it on every use, so a handle held across a
// mutation simply stops resolving instead of dangling.
type Element struct {
	Tag       string
	ID        string
	Class     string
	AriaLabel string
	XPath     string
}

// Summary converts the handle into its host-facing form.
func (e *Element) Summary() schemas.ElementSummary {
	return schemas.ElementSummary{
		Tag:   e.Tag,
		ID:    e.ID,
		Class: e.Class,
		XPath: e.XPath,
	}
}

// Info converts the handle into the shape the click-override classifier
// inspects.
func (e *Element) Info() schemas.ElementInfo {
	return schemas.ElementInfo{
		Tag:       e.Tag,
		ID:        e.ID,
		Class:     e.Class,
		AriaLabel: e.AriaLabel,
	}
}

// Querier resolves CSS selectors against the current document state.
type Querier interface {
	// QueryFirst returns the first element matching the selector, or
	// (nil, nil) when nothing matches. A malformed selector yields an
	// error wrapping ErrInvalidSelector.
	QueryFirst(ctx context.Context, selector string) (*Element, error)
	// QueryAll returns every element matching the selector, possibly
	// empty.
	QueryAll(ctx context.Context, selector string) ([]*Element, error)
}

// Remover detaches elements from the document.
type Remover interface {
	// Remove detaches the element from its parent. Removing an element
	// that is no longer attached is a no-op, not an error.
	Remove(ctx context.Context, el *Element) error
}

// Navigator drives and reports top-level navigation.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
	URL() string
}

// MutationSource delivers browser-coalesced DOM change batches. The
// channel closes when the page is closed.
type MutationSource interface {
	Mutations() <-chan schemas.MutationBatch
}

// GestureSource delivers navigation gestures derived from click events.
// The channel closes when the page is closed.
type GestureSource interface {
	Gestures() <-chan schemas.NavigationGesture
}

// Page is the full surface a live document exposes to the engine.
type Page interface {
	Querier
	Remover
	Navigator
	MutationSource
	GestureSource

	// Close tears the page down and closes the event channels. Safe to
	// call more than once.
	Close() error
}
