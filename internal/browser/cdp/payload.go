// File: internal/browser/cdp/payload.go
package cdp

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/browser/page"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// relayPayload is the envelope the injected relays post through the
// binding.
type relayPayload struct {
	Kind    string           `json:"kind"`
	Records []mutationRecord `json:"records"`
	Gesture *gesturePayload  `json:"gesture"`
}

const (
	kindMutations = "mutations"
	kindGesture   = "gesture"
)

type mutationRecord struct {
	Op    string `json:"op"`
	XPath string `json:"xpath"`
	Tag   string `json:"tag"`
	Class string `json:"class"`
}

type gesturePayload struct {
	Anchor bool   `json:"anchor"`
	Target string `json:"target"`
	Href   string `json:"href"`
}

func decodePayload(raw []byte) (relayPayload, error) {
	var p relayPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return relayPayload{}, fmt.Errorf("decoding relay payload: %w", err)
	}
	switch p.Kind {
	case kindMutations, kindGesture:
		return p, nil
	default:
		return relayPayload{}, fmt.Errorf("unknown relay payload kind %q", p.Kind)
	}
}

func (p relayPayload) records() []schemas.MutationRecord {
	records := make([]schemas.MutationRecord, 0, len(p.Records))
	for _, r := range p.Records {
		records = append(records, schemas.MutationRecord{
			Op:    schemas.MutationOp(r.Op),
			XPath: r.XPath,
			Tag:   r.Tag,
			Class: r.Class,
		})
	}
	return records
}

func (p relayPayload) gesture() schemas.NavigationGesture {
	if p.Gesture == nil {
		return schemas.NavigationGesture{}
	}
	return schemas.NavigationGesture{
		Anchor: p.Gesture.Anchor,
		Target: p.Gesture.Target,
		Href:   p.Gesture.Href,
	}
}

// elementPayload mirrors the describe() shape in the injected scripts.
type elementPayload struct {
	Tag       string `json:"tag"`
	ID        string `json:"id"`
	Class     string `json:"class"`
	AriaLabel string `json:"ariaLabel"`
	XPath     string `json:"xpath"`
}

func (e elementPayload) element() *page.Element {
	return &page.Element{
		Tag:       e.Tag,
		ID:        e.ID,
		Class:     e.Class,
		AriaLabel: e.AriaLabel,
		XPath:     e.XPath,
	}
}

// queryResult is the return shape of the query scripts.
type queryResult struct {
	Error    string           `json:"error"`
	Detail   string           `json:"detail"`
	Element  *elementPayload  `json:"element"`
	Elements []elementPayload `json:"elements"`
}

const errInvalidSelector = "invalid-selector"

func (r queryResult) err(selector string) error {
	if r.Error == "" {
		return nil
	}
	if r.Error == errInvalidSelector {
		return fmt.Errorf("%w: %q: %s", page.ErrInvalidSelector, selector, r.Detail)
	}
	return fmt.Errorf("query %q: %s: %s", selector, r.Error, r.Detail)
}
