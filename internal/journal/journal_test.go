// File: internal/journal/journal_test.go
package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmooseai/pageprep/api/schemas"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	j, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func newEvent(sessionID string, kind schemas.EventKind) schemas.Event {
	ev := schemas.Event{
		Kind:      kind,
		SessionID: sessionID,
		At:        time.Now().UTC(),
	}
	switch kind {
	case schemas.EventRemoval:
		ev.Removal = &schemas.RemovalEvent{
			Rule:    schemas.WatchRule{ClassPrefix: "druids_onboarding_billboard", Action: schemas.ActionRemove},
			Element: schemas.ElementSummary{Tag: "div", XPath: "/html[1]/body[1]/div[1]"},
			PageURL: "https://app.example.com",
		}
	case schemas.EventReadiness:
		ev.Readiness = &schemas.ReadinessResult{
			PageURL:  "https://app.example.com",
			Selector: "header h2",
			Found:    true,
			Elapsed:  120 * time.Millisecond,
		}
	}
	return ev
}

func TestEmitAndRecent(t *testing.T) {
	j := openTestJournal(t)
	session := uuid.NewString()
	ctx := context.Background()

	require.NoError(t, j.Emit(ctx, newEvent(session, schemas.EventReadiness)))
	require.NoError(t, j.Emit(ctx, newEvent(session, schemas.EventRemoval)))

	events, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, schemas.EventRemoval, events[0].Kind)
	require.NotNil(t, events[0].Removal)
	assert.Equal(t, "druids_onboarding_billboard", events[0].Removal.Rule.ClassPrefix)

	assert.Equal(t, schemas.EventReadiness, events[1].Kind)
	require.NotNil(t, events[1].Readiness)
	assert.True(t, events[1].Readiness.Found)
}

func TestRecentHonorsLimit(t *testing.T) {
	j := openTestJournal(t)
	session := uuid.NewString()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Emit(ctx, newEvent(session, schemas.EventRemoval)))
	}

	events, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestCountByKind(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()

	require.NoError(t, j.Emit(ctx, newEvent(a, schemas.EventReadiness)))
	require.NoError(t, j.Emit(ctx, newEvent(a, schemas.EventRemoval)))
	require.NoError(t, j.Emit(ctx, newEvent(a, schemas.EventRemoval)))
	require.NoError(t, j.Emit(ctx, newEvent(b, schemas.EventRemoval)))

	counts, err := j.CountByKind(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[schemas.EventReadiness])
	assert.Equal(t, 2, counts[schemas.EventRemoval])

	all, err := j.CountByKind(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, all[schemas.EventRemoval])
}

func TestOpenIsIdempotentOnSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	j1, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	require.NoError(t, j1.Emit(context.Background(), newEvent(uuid.NewString(), schemas.EventRemoval)))
	require.NoError(t, j1.Close())

	// Reopening an existing journal keeps prior events.
	j2, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	defer j2.Close()

	events, err := j2.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
