// File: internal/browser/memdom/xpath_test.go
package memdom

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseDoc(t *testing.T, raw string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(raw))
	require.NoError(t, err)
	return doc
}

func TestGenerateUniqueXPath(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div><p>first</p><p>second</p></div>
		<div id="anchor"><span>inner</span></div>
	</body></html>`)

	t.Run("positional path without ids", func(t *testing.T) {
		node := htmlquery.FindOne(doc, "//div[1]/p[2]")
		require.NotNil(t, node)
		assert.Equal(t, "/html[1]/body[1]/div[1]/p[2]", GenerateUniqueXPath(node))
	})

	t.Run("id ancestor anchors the path", func(t *testing.T) {
		node := htmlquery.FindOne(doc, "//span")
		require.NotNil(t, node)
		assert.Equal(t, "//*[@id='anchor']/span[1]", GenerateUniqueXPath(node))
	})

	t.Run("generated path resolves back to the node", func(t *testing.T) {
		node := htmlquery.FindOne(doc, "//div[1]/p[1]")
		require.NotNil(t, node)
		resolved := htmlquery.FindOne(doc, GenerateUniqueXPath(node))
		assert.Same(t, node, resolved)
	})

	t.Run("nil node", func(t *testing.T) {
		assert.Equal(t, "", GenerateUniqueXPath(nil))
	})
}
