// File: internal/engine/clickpolicy/clickpolicy.go

// Package clickpolicy decides whether an element's click handling may be
// overridden by the host automation framework. The classifier is a pure
// ordered rule list: the first matching rule wins and elements matching
// no rule defer to the host's own heuristics.
package clickpolicy

import (
	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/config"
)

// Predicate reports whether a rule applies to an element.
type Predicate func(schemas.ElementInfo) bool

// Rule pairs a predicate with the verdict it yields on match.
type Rule struct {
	Name    string
	Match   Predicate
	Verdict schemas.Verdict
}

// Classifier evaluates rules in order.
type Classifier struct {
	rules []Rule
}

// New creates a classifier with the given ordered rules.
func New(rules ...Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the verdict of the first matching rule, or
// VerdictDefer when nothing matches. Evaluation has no side effects and
// depends only on the element snapshot passed in.
func (c *Classifier) Classify(info schemas.ElementInfo) schemas.Verdict {
	for _, r := range c.rules {
		if r.Match(info) {
			return r.Verdict
		}
	}
	return schemas.VerdictDefer
}

// ClassifyNullable adapts the verdict for hosts expecting a nullable
// boolean: true to force, false to forbid, nil to fall through.
func (c *Classifier) ClassifyNullable(info schemas.ElementInfo) *bool {
	return c.Classify(info).Nullable()
}

// Rules returns a copy of the rule list, in evaluation order.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// -- Predicates --

// IDEquals matches elements whose id attribute equals id exactly.
func IDEquals(id string) Predicate {
	return func(info schemas.ElementInfo) bool {
		return id != "" && info.ID == id
	}
}

// AriaLabelIn matches elements whose aria-label equals any of labels,
// case-sensitively.
func AriaLabelIn(labels ...string) Predicate {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return func(info schemas.ElementInfo) bool {
		if info.AriaLabel == "" {
			return false
		}
		_, ok := set[info.AriaLabel]
		return ok
	}
}

// TagIs matches elements by tag name.
func TagIs(tag string) Predicate {
	return func(info schemas.ElementInfo) bool {
		return info.Tag == tag
	}
}

// FromConfig builds the standard classifier: the captcha checkbox anchor
// and the allow-listed accessibility labels force the override; all
// other elements defer.
func FromConfig(cfg config.ClickPolicyConfig) *Classifier {
	var rules []Rule
	if cfg.CaptchaAnchorID != "" {
		rules = append(rules, Rule{
			Name:    "captcha-anchor",
			Match:   IDEquals(cfg.CaptchaAnchorID),
			Verdict: schemas.VerdictAllow,
		})
	}
	if len(cfg.AllowAriaLabels) > 0 {
		rules = append(rules, Rule{
			Name:    "aria-allow-list",
			Match:   AriaLabelIn(cfg.AllowAriaLabels...),
			Verdict: schemas.VerdictAllow,
		})
	}
	return New(rules...)
}
