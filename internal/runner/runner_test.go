// File: internal/runner/runner_test.go
package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/browser/memdom"
	"github.com/wildmooseai/pageprep/internal/config"
	"github.com/wildmooseai/pageprep/internal/engine/poller"
	"github.com/wildmooseai/pageprep/internal/sink"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// collector is a test sink capturing every emitted event.
type collector struct {
	mu     sync.Mutex
	events []schemas.Event
}

func (c *collector) sink() sink.Sink {
	return sink.NewCallbackSink(func(ctx context.Context, ev schemas.Event) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.events = append(c.events, ev)
		return nil
	})
}

func (c *collector) byKind(kind schemas.EventKind) []schemas.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []schemas.Event
	for _, ev := range c.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Sinks.Stdout = false
	cfg.Readiness.PollInterval = 5 * time.Millisecond
	cfg.Readiness.Settle = 0
	cfg.Readiness.Timeout = 100 * time.Millisecond
	return cfg
}

func newRunner(t *testing.T, cfg *config.Config, c *collector) *Runner {
	t.Helper()
	r, err := New(context.Background(), cfg, nil, c.sink())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

const runnerHTML = `<html><body>
	<header><h2>Overview</h2></header>
	<div id="app">
		<div class="druids_onboarding_billboard_hero">Tour</div>
		<a id="ext" href="https://example.com/docs" target="_blank">Docs</a>
	</div>
</body></html>`

func newRunnerPage(t *testing.T) *memdom.Page {
	t.Helper()
	p, err := memdom.New(runnerHTML, memdom.WithURL("https://app.example.com"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestRunReadyFound(t *testing.T) {
	c := &collector{}
	r := newRunner(t, testConfig(), c)
	p := newRunnerPage(t)

	result, err := r.RunReady(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "header h2", result.Selector)
	assert.Equal(t, "https://app.example.com", result.PageURL)
	assert.Equal(t, "h2", result.Element.Tag)

	events := c.byKind(schemas.EventReadiness)
	require.Len(t, events, 1)
	assert.Equal(t, r.SessionID(), events[0].SessionID)
	require.NotNil(t, events[0].Readiness)
	assert.True(t, events[0].Readiness.Found)
}

func TestRunReadyNotFound(t *testing.T) {
	cfg := testConfig()
	cfg.Readiness.Selector = "#never-there"
	c := &collector{}
	r := newRunner(t, cfg, c)
	p := newRunnerPage(t)

	result, err := r.RunReady(context.Background(), p)
	require.Error(t, err)
	assert.True(t, poller.IsNotFound(err))
	assert.False(t, result.Found)

	// The negative outcome is still emitted.
	events := c.byKind(schemas.EventReadiness)
	require.Len(t, events, 1)
	assert.False(t, events[0].Readiness.Found)
}

func TestRunReadyInvalidSelectorEmitsNothing(t *testing.T) {
	cfg := testConfig()
	cfg.Readiness.Selector = "div["
	c := &collector{}
	r := newRunner(t, cfg, c)
	p := newRunnerPage(t)

	_, err := r.RunReady(context.Background(), p)
	require.Error(t, err)
	assert.False(t, poller.IsNotFound(err))
	assert.Empty(t, c.byKind(schemas.EventReadiness))
}

func TestRunWatchRemovesAndRedirects(t *testing.T) {
	c := &collector{}
	r := newRunner(t, testConfig(), c)
	p := newRunnerPage(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.RunWatch(ctx, p) }()

	// The pre-existing billboard is swept on installation.
	require.Eventually(t, func() bool {
		el, err := p.QueryFirst(context.Background(), ".druids_onboarding_billboard_hero")
		return err == nil && el == nil
	}, time.Second, 5*time.Millisecond)

	// A click on the new-window anchor is rewritten in place.
	require.NoError(t, p.Click(context.Background(), "//*[@id='ext']"))
	require.Eventually(t, func() bool {
		return p.URL() == "https://example.com/docs"
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	removals := c.byKind(schemas.EventRemoval)
	require.Len(t, removals, 1)
	assert.Equal(t, "druids_onboarding_billboard_hero", removals[0].Removal.Element.Class)

	gestures := c.byKind(schemas.EventGesture)
	require.Len(t, gestures, 1)
	assert.Equal(t, "_blank", gestures[0].Gesture.Target)
}

func TestRunWatchRejectsBadRules(t *testing.T) {
	cfg := testConfig()
	cfg.Watcher.Rules = []config.RuleConfig{{ClassPrefix: "", Action: "remove"}}
	r := newRunner(t, cfg, &collector{})
	p := newRunnerPage(t)

	assert.Error(t, r.RunWatch(context.Background(), p))
}

func TestClassify(t *testing.T) {
	r := newRunner(t, testConfig(), &collector{})

	verdicts := r.Classify([]schemas.ElementInfo{
		{ID: "recaptcha-anchor"},
		{AriaLabel: "Log in"},
		{Tag: "button"},
	})
	assert.Equal(t, []schemas.Verdict{
		schemas.VerdictAllow,
		schemas.VerdictAllow,
		schemas.VerdictDefer,
	}, verdicts)
}
