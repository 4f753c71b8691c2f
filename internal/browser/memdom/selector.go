// File: internal/browser/memdom/selector.go
package memdom

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/wildmooseai/pageprep/internal/browser/page"
)

// translateCSSToXPath converts the supported CSS selector subset into an
// XPath expression. Supported: tag, #id and .class simple selectors and
// their compounds, attribute selectors with the =, ^=, $= and *=
// operators, the descendant (space) and child (>) combinators, and
// comma-separated selector groups. Anything else is rejected with an
// error wrapping page.ErrInvalidSelector.
func translateCSSToXPath(selector string) (string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return "", fmt.Errorf("%w: empty selector", page.ErrInvalidSelector)
	}

	var groups []string
	for _, part := range splitTopLevel(selector, ',') {
		expr, err := translateComplex(strings.TrimSpace(part))
		if err != nil {
			return "", err
		}
		groups = append(groups, expr)
	}
	return strings.Join(groups, " | "), nil
}

// translateComplex handles one combinator chain.
func translateComplex(selector string) (string, error) {
	if selector == "" {
		return "", fmt.Errorf("%w: empty selector group", page.ErrInvalidSelector)
	}

	var b strings.Builder
	axis := "//"
	for _, token := range tokenizeCombinators(selector) {
		switch token {
		case ">":
			axis = "/"
			continue
		case "":
			continue
		}
		step, err := translateCompound(token)
		if err != nil {
			return "", err
		}
		b.WriteString(axis)
		b.WriteString(step)
		axis = "//"
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: %q", page.ErrInvalidSelector, selector)
	}
	return b.String(), nil
}

// translateCompound handles one compound selector like a#id.cls[attr^="v"].
func translateCompound(compound string) (string, error) {
	tag := "*"
	var predicates []string

	rest := compound
	// Leading tag name.
	if i := strings.IndexAny(rest, "#.["); i != 0 {
		if i < 0 {
			i = len(rest)
		}
		tag = strings.ToLower(rest[:i])
		if !isName(tag) && tag != "*" {
			return "", fmt.Errorf("%w: bad tag in %q", page.ErrInvalidSelector, compound)
		}
		rest = rest[i:]
	}

	for rest != "" {
		switch rest[0] {
		case '#':
			name, tail := takeName(rest[1:])
			if name == "" {
				return "", fmt.Errorf("%w: bad id in %q", page.ErrInvalidSelector, compound)
			}
			predicates = append(predicates, fmt.Sprintf("@id=%s", xpathLiteral(name)))
			rest = tail
		case '.':
			name, tail := takeName(rest[1:])
			if name == "" {
				return "", fmt.Errorf("%w: bad class in %q", page.ErrInvalidSelector, compound)
			}
			predicates = append(predicates, fmt.Sprintf(
				"contains(concat(' ', normalize-space(@class), ' '), %s)",
				xpathLiteral(" "+name+" ")))
			rest = tail
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unterminated attribute selector in %q", page.ErrInvalidSelector, compound)
			}
			pred, err := translateAttribute(rest[1:end])
			if err != nil {
				return "", err
			}
			predicates = append(predicates, pred)
			rest = rest[end+1:]
		default:
			return "", fmt.Errorf("%w: unexpected %q in %q", page.ErrInvalidSelector, rest[0], compound)
		}
	}

	if len(predicates) == 0 {
		return tag, nil
	}
	return fmt.Sprintf("%s[%s]", tag, strings.Join(predicates, " and ")), nil
}

// translateAttribute handles the inside of one [attr op "value"] selector.
func translateAttribute(body string) (string, error) {
	body = strings.TrimSpace(body)

	opIdx := strings.IndexAny(body, "^$*=")
	if opIdx < 0 {
		// Bare presence test, e.g. [disabled].
		if !isName(body) {
			return "", fmt.Errorf("%w: bad attribute name %q", page.ErrInvalidSelector, body)
		}
		return "@" + body, nil
	}

	attr := strings.TrimSpace(body[:opIdx])
	if !isName(attr) {
		return "", fmt.Errorf("%w: bad attribute name %q", page.ErrInvalidSelector, attr)
	}

	op := "="
	valStart := opIdx + 1
	if body[opIdx] != '=' {
		if valStart >= len(body) || body[valStart] != '=' {
			return "", fmt.Errorf("%w: bad attribute operator in %q", page.ErrInvalidSelector, body)
		}
		op = string(body[opIdx]) + "="
		valStart++
	}

	val := strings.TrimSpace(body[valStart:])
	val = trimQuotes(val)

	switch op {
	case "=":
		return fmt.Sprintf("@%s=%s", attr, xpathLiteral(val)), nil
	case "^=":
		return fmt.Sprintf("starts-with(@%s, %s)", attr, xpathLiteral(val)), nil
	case "$=":
		return fmt.Sprintf("ends-with(@%s, %s)", attr, xpathLiteral(val)), nil
	case "*=":
		return fmt.Sprintf("contains(@%s, %s)", attr, xpathLiteral(val)), nil
	}
	return "", fmt.Errorf("%w: unsupported attribute operator %q", page.ErrInvalidSelector, op)
}

// tokenizeCombinators splits "div > span a" into {"div", ">", "span", "a"}.
func tokenizeCombinators(s string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	inBracket := false
	for _, r := range s {
		switch {
		case r == '[':
			inBracket = true
			cur.WriteRune(r)
		case r == ']':
			inBracket = false
			cur.WriteRune(r)
		case !inBracket && unicode.IsSpace(r):
			flush()
		case !inBracket && r == '>':
			flush()
			tokens = append(tokens, ">")
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// splitTopLevel splits on sep outside attribute brackets.
func splitTopLevel(s string, sep rune) []string {
	var parts []string
	var cur strings.Builder
	inBracket := false
	for _, r := range s {
		switch {
		case r == '[':
			inBracket = true
			cur.WriteRune(r)
		case r == ']':
			inBracket = false
			cur.WriteRune(r)
		case r == sep && !inBracket:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, cur.String())
	return parts
}

// takeName consumes a leading CSS identifier and returns it with the tail.
func takeName(s string) (string, string) {
	for i, r := range s {
		if !isNameRune(r) {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isNameRune(r) {
			return false
		}
	}
	return true
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// xpathLiteral quotes a string for embedding in an XPath expression,
// falling back to concat() when it mixes quote characters.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	var parts []string
	for _, chunk := range strings.SplitAfter(s, "'") {
		if rest := strings.TrimSuffix(chunk, "'"); rest != chunk {
			if rest != "" {
				parts = append(parts, "'"+rest+"'")
			}
			parts = append(parts, `"'"`)
		} else if chunk != "" {
			parts = append(parts, "'"+chunk+"'")
		}
	}
	return "concat(" + strings.Join(parts, ", ") + ")"
}
