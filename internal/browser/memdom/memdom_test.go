// File: internal/browser/memdom/memdom_test.go
package memdom

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/browser/page"
)

const sampleHTML = `<!DOCTYPE html>
<html>
<head><title>Dashboard</title></head>
<body>
  <header><h2>Overview</h2></header>
  <div id="content">
    <div class="druids_onboarding_billboard_hero">Welcome tour</div>
    <a id="docs-link" href="/docs" target="_blank">Docs</a>
    <a href="/settings"><span id="settings-label">Settings</span></a>
    <button aria-label="Log in">Log in</button>
  </div>
</body>
</html>`

func newTestPage(t *testing.T) *Page {
	t.Helper()
	p, err := New(sampleHTML, WithURL("https://app.example.com/dash"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestQueryFirst(t *testing.T) {
	p := newTestPage(t)
	ctx := context.Background()

	t.Run("matches and fills the handle", func(t *testing.T) {
		el, err := p.QueryFirst(ctx, "header h2")
		require.NoError(t, err)
		require.NotNil(t, el)
		assert.Equal(t, "h2", el.Tag)
		assert.Equal(t, "/html[1]/body[1]/header[1]/h2[1]", el.XPath)
	})

	t.Run("no match yields nil without error", func(t *testing.T) {
		el, err := p.QueryFirst(ctx, "video")
		require.NoError(t, err)
		assert.Nil(t, el)
	})

	t.Run("malformed selector propagates ErrInvalidSelector", func(t *testing.T) {
		_, err := p.QueryFirst(ctx, "div[")
		assert.ErrorIs(t, err, page.ErrInvalidSelector)
	})

	t.Run("id anchors the generated xpath", func(t *testing.T) {
		el, err := p.QueryFirst(ctx, "#docs-link")
		require.NoError(t, err)
		require.NotNil(t, el)
		assert.Equal(t, "//*[@id='docs-link']", el.XPath)
		assert.Equal(t, "a", el.Tag)
	})
}

func TestQueryAll(t *testing.T) {
	p := newTestPage(t)

	els, err := p.QueryAll(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, "docs-link", els[0].ID)
}

func TestRemove(t *testing.T) {
	p := newTestPage(t)
	ctx := context.Background()

	el, err := p.QueryFirst(ctx, `[class^="druids_onboarding_billboard"]`)
	require.NoError(t, err)
	require.NotNil(t, el)

	require.NoError(t, p.Remove(ctx, el))

	gone, err := p.QueryFirst(ctx, `[class^="druids_onboarding_billboard"]`)
	require.NoError(t, err)
	assert.Nil(t, gone, "element should be detached")

	// A removal batch must have been emitted.
	select {
	case batch := <-p.Mutations():
		want := []schemas.MutationRecord{{
			Op:    schemas.OpRemove,
			XPath: el.XPath,
			Tag:   "div",
			Class: "druids_onboarding_billboard_hero",
		}}
		if diff := cmp.Diff(want, batch.Records); diff != "" {
			t.Errorf("unexpected batch (-want +got):\n%s", diff)
		}
	default:
		t.Fatal("expected a mutation batch after removal")
	}

	// Removing the same stale handle again is a silent no-op.
	require.NoError(t, p.Remove(ctx, el))
	select {
	case <-p.Mutations():
		t.Fatal("no batch expected for a no-op removal")
	default:
	}
}

func TestInsertHTMLEmitsBatch(t *testing.T) {
	p := newTestPage(t)
	ctx := context.Background()

	err := p.InsertHTML(ctx, "//*[@id='content']",
		`<div class="druids_onboarding_billboard_footer">Tip</div>`)
	require.NoError(t, err)

	select {
	case batch := <-p.Mutations():
		require.Len(t, batch.Records, 1)
		assert.Equal(t, schemas.OpInsert, batch.Records[0].Op)
		assert.Equal(t, "druids_onboarding_billboard_footer", batch.Records[0].Class)
	case <-time.After(time.Second):
		t.Fatal("expected a mutation batch after insert")
	}

	el, err := p.QueryFirst(ctx, ".druids_onboarding_billboard_footer")
	require.NoError(t, err)
	assert.NotNil(t, el)
}

func TestClickEmitsGesture(t *testing.T) {
	p := newTestPage(t)
	ctx := context.Background()

	t.Run("direct anchor click", func(t *testing.T) {
		require.NoError(t, p.Click(ctx, "//*[@id='docs-link']"))
		g := <-p.Gestures()
		assert.True(t, g.Anchor)
		assert.Equal(t, "_blank", g.Target)
		assert.Equal(t, "/docs", g.Href)
	})

	t.Run("click bubbles to enclosing anchor", func(t *testing.T) {
		require.NoError(t, p.Click(ctx, "//*[@id='settings-label']"))
		g := <-p.Gestures()
		assert.True(t, g.Anchor)
		assert.Equal(t, "", g.Target)
		assert.Equal(t, "/settings", g.Href)
	})

	t.Run("click outside any anchor", func(t *testing.T) {
		require.NoError(t, p.Click(ctx, "//header/h2"))
		g := <-p.Gestures()
		assert.False(t, g.Anchor)
	})
}

func TestNavigate(t *testing.T) {
	t.Run("records URL without a loader", func(t *testing.T) {
		p := newTestPage(t)
		require.NoError(t, p.Navigate(context.Background(), "https://app.example.com/docs"))
		assert.Equal(t, "https://app.example.com/docs", p.URL())
	})

	t.Run("loader replaces the document", func(t *testing.T) {
		loader := func(ctx context.Context, url string) (string, error) {
			return `<html><body><h1 id="loaded">Docs</h1></body></html>`, nil
		}
		p, err := New(sampleHTML, WithNavigateFunc(loader))
		require.NoError(t, err)
		defer p.Close()

		require.NoError(t, p.Navigate(context.Background(), "https://app.example.com/docs"))

		el, err := p.QueryFirst(context.Background(), "#loaded")
		require.NoError(t, err)
		assert.NotNil(t, el)

		old, err := p.QueryFirst(context.Background(), "header h2")
		require.NoError(t, err)
		assert.Nil(t, old)
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	p, err := New(sampleHTML)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, ok := <-p.Mutations()
	assert.False(t, ok, "mutation channel should be closed")

	_, queryErr := p.QueryFirst(context.Background(), "div")
	assert.ErrorIs(t, queryErr, page.ErrPageClosed)
}
