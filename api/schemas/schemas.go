// api/schemas/schemas.go
package schemas

import (
	"fmt"
	"time"
)

// ReadinessQuery describes a single bounded wait for an element to appear.
// Immutable; constructed per invocation and discarded after resolution.
type ReadinessQuery struct {
	// Selector is a CSS selector. Validity is not checked here; the DOM
	// query facility rejects malformed selectors.
	Selector string `json:"selector"`
	// Timeout is the total budget for the element to appear. Zero means
	// the element must already be present.
	Timeout time.Duration `json:"timeout"`
	// Settle is the fixed delay applied after the element is first
	// detected, letting transient rendering finish before the caller
	// acts on it.
	Settle time.Duration `json:"settle"`
}

// ElementSummary is the host-facing description of a matched element.
type ElementSummary struct {
	Tag   string `json:"tag"`
	ID    string `json:"id,omitempty"`
	Class string `json:"class,omitempty"`
	XPath string `json:"xpath"`
}

// ReadinessResult records the outcome of a readiness wait for sinks and
// the journal.
type ReadinessResult struct {
	PageURL  string         `json:"page_url"`
	Selector string         `json:"selector"`
	Found    bool           `json:"found"`
	Elapsed  time.Duration  `json:"elapsed"`
	Element  ElementSummary `json:"element,omitempty"`
}

// RuleAction enumerates what a watch rule does to a matching element.
type RuleAction string

const (
	// ActionRemove detaches matching elements from their parent.
	ActionRemove RuleAction = "remove"
)

// WatchRule is a single cleanup rule enforced for the page's lifetime.
// The current rule shape matches elements whose class attribute starts
// with ClassPrefix.
type WatchRule struct {
	ClassPrefix string     `json:"class_prefix"`
	Action      RuleAction `json:"action"`
}

// Selector renders the rule as a CSS attribute-prefix selector.
func (r WatchRule) Selector() string {
	return fmt.Sprintf(`[class^=%q]`, r.ClassPrefix)
}

// Validate checks the rule for the supported shapes.
func (r WatchRule) Validate() error {
	if r.ClassPrefix == "" {
		return fmt.Errorf("watch rule: class_prefix must not be empty")
	}
	if r.Action != ActionRemove {
		return fmt.Errorf("watch rule: unsupported action %q", r.Action)
	}
	return nil
}

// RemovalEvent describes one element detached by the mutation watcher.
type RemovalEvent struct {
	Rule    WatchRule      `json:"rule"`
	Element ElementSummary `json:"element"`
	PageURL string         `json:"page_url"`
	At      time.Time      `json:"at"`
}

// MutationOp enumerates the DOM change kinds the engine reacts to.
type MutationOp string

const (
	OpInsert MutationOp = "insert"
	OpRemove MutationOp = "remove"
	OpAttr   MutationOp = "attr"
)

// MutationRecord is one DOM change within a batch.
type MutationRecord struct {
	Op    MutationOp `json:"op"`
	XPath string     `json:"xpath,omitempty"`
	Tag   string     `json:"tag,omitempty"`
	Class string     `json:"class,omitempty"`
}

// MutationBatch is a browser-coalesced set of change records, delivered
// asynchronously. Coalescing happens in the browser (or the in-memory
// page), never in the engine.
type MutationBatch struct {
	Records []MutationRecord `json:"records"`
	At      time.Time        `json:"at"`
}

// NavigationGesture is derived transiently from a click event. Not
// persisted.
type NavigationGesture struct {
	// Anchor is false when no ancestor anchor element (including the
	// click target itself) exists.
	Anchor bool `json:"anchor"`
	// Target is the anchor's resolved target attribute.
	Target string `json:"target,omitempty"`
	// Href is the anchor's resolved href.
	Href string `json:"href,omitempty"`
}

// ElementInfo carries the attributes the click-override classifier rules
// inspect. The host framework fills this from its own element handle.
type ElementInfo struct {
	Tag       string `json:"tag,omitempty"`
	ID        string `json:"id,omitempty"`
	Class     string `json:"class,omitempty"`
	AriaLabel string `json:"aria_label,omitempty"`
}

// Verdict is the tri-state result of classifying an element. The zero
// value defers to the caller's own clickability logic.
type Verdict int

const (
	VerdictDefer Verdict = iota
	VerdictAllow
	VerdictDeny
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictDeny:
		return "deny"
	default:
		return "defer"
	}
}

// Nullable renders the verdict in the host convention: true for allow,
// false for deny, nil for defer-to-default.
func (v Verdict) Nullable() *bool {
	switch v {
	case VerdictAllow:
		t := true
		return &t
	case VerdictDeny:
		f := false
		return &f
	default:
		return nil
	}
}

// EventKind tags engine events for sinks and the journal.
type EventKind string

const (
	EventReadiness EventKind = "readiness"
	EventRemoval   EventKind = "removal"
	EventGesture   EventKind = "gesture"
)

// Event is the envelope emitted to sinks. Exactly one payload field is
// set, matching Kind.
type Event struct {
	Kind      EventKind          `json:"kind"`
	SessionID string             `json:"session_id,omitempty"`
	At        time.Time          `json:"at"`
	Readiness *ReadinessResult   `json:"readiness,omitempty"`
	Removal   *RemovalEvent      `json:"removal,omitempty"`
	Gesture   *NavigationGesture `json:"gesture,omitempty"`
}
