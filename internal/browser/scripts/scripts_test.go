// File: internal/browser/scripts/scripts_test.go
package scripts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBootstrapTemplating(t *testing.T) {
	script := Bootstrap("pageprepEmit", "_blank")

	assert.Contains(t, script, `window["pageprepEmit"]`)
	assert.Contains(t, script, `const sentinel = "_blank";`)
	assert.Contains(t, script, "MutationObserver")
	assert.Contains(t, script, "preventDefault")
	// The guard must keep double installation from stacking observers.
	assert.Contains(t, script, "__pageprepInstalled")
}

func TestQueryFirstEscapesSelector(t *testing.T) {
	script := QueryFirst(`button[aria-label="Log in"]`)

	assert.Contains(t, script, `document.querySelector("button[aria-label=\"Log in\"]")`)
	assert.Contains(t, script, "invalid-selector")
}

func TestQueryAllEscapesSelector(t *testing.T) {
	script := QueryAll(`[class^="druids_onboarding_billboard"]`)
	assert.Contains(t, script, `querySelectorAll("[class^=\"druids_onboarding_billboard\"]")`)
}

func TestRemoveByXPathEscapes(t *testing.T) {
	script := RemoveByXPath(`//*[@id='content']/div[1]`)
	assert.Contains(t, script, `document.evaluate("//*[@id='content']/div[1]"`)
	assert.True(t, strings.HasPrefix(script, "(() => {"))
}

func TestJSEncode(t *testing.T) {
	assert.Equal(t, `"plain"`, jsEncode("plain"))
	assert.Equal(t, `"with \"quotes\""`, jsEncode(`with "quotes"`))
}
