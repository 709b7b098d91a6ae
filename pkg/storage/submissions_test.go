package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/snaplist/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndListSubmissions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &Submission{
		SessionID:     "alice",
		InstanceID:    "01hx",
		Title:         "Oak desk",
		Price:         120,
		Description:   "Solid oak",
		Category:      "Furniture",
		ImageURL:      "https://img.example/desk.jpg",
		Success:       true,
		ListingURL:    "https://www.facebook.com/marketplace/item/1/",
		ImageAttached: true,
		Duration:      1500 * time.Millisecond,
		CreatedAt:     base,
	}
	second := &Submission{
		SessionID:   "alice",
		Title:       "Lamp",
		Price:       12.5,
		Error:       "selector not found",
		ErrorCode:   "SELECTOR_NOT_FOUND",
		FailedPhase: "description",
		CreatedAt:   base.Add(time.Minute),
	}
	other := &Submission{SessionID: "bob", Title: "Bike", Price: 80, CreatedAt: base.Add(2 * time.Minute)}

	for _, sub := range []*Submission{first, second, other} {
		require.NoError(t, store.RecordSubmission(ctx, sub))
		assert.NotEmpty(t, sub.ID)
	}

	got, err := store.ListSubmissions(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, second.ID, got[0].ID, "newest first")
	assert.False(t, got[0].Success)
	assert.Equal(t, "SELECTOR_NOT_FOUND", got[0].ErrorCode)
	assert.Equal(t, "description", got[0].FailedPhase)

	assert.Equal(t, first.ID, got[1].ID)
	assert.True(t, got[1].Success)
	assert.True(t, got[1].ImageAttached)
	assert.Equal(t, "Solid oak", got[1].Description)
	assert.Equal(t, 1500*time.Millisecond, got[1].Duration)
	assert.True(t, base.Equal(got[1].CreatedAt))

	all, err := store.ListSubmissions(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := store.ListSubmissions(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, other.ID, limited[0].ID)
}

func TestRecordSubmissionRejectsNil(t *testing.T) {
	store := newTestStore(t)
	err := store.RecordSubmission(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestRecordSubmissionCanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.RecordSubmission(ctx, &Submission{SessionID: "s", Title: "t"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageWrite))
}

func TestRecordSubmissionAfterClose(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.RecordSubmission(context.Background(), &Submission{SessionID: "s", Title: "t"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageWrite))
}

func TestSessionEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordSessionEvent(ctx, &SessionEvent{SessionID: "alice", Event: "created", CreatedAt: base}))
	require.NoError(t, store.RecordSessionEvent(ctx, &SessionEvent{SessionID: "alice", Event: "closed", Reason: "replaced", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, store.RecordSessionEvent(ctx, &SessionEvent{SessionID: "bob", Event: "launch_failed", Error: "chrome missing", CreatedAt: base.Add(2 * time.Second)}))

	events, err := store.ListSessionEvents(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "closed", events[0].Event)
	assert.Equal(t, "replaced", events[0].Reason)
	assert.Equal(t, "created", events[1].Event)

	all, err := store.ListSessionEvents(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "chrome missing", all[0].Error)
}

func TestObserversReceiveEvents(t *testing.T) {
	store := newTestStore(t)
	received := make(chan Event, 2)
	store.AddObserver(ObserverFunc(func(e Event) { received <- e }))

	sub := &Submission{SessionID: "alice", Title: "Desk", Price: 10}
	require.NoError(t, store.RecordSubmission(context.Background(), sub))

	select {
	case ev := <-received:
		assert.Equal(t, EventSubmissionRecorded, ev.Type)
		assert.Equal(t, "alice", ev.SessionID)
		assert.Equal(t, sub.ID, ev.EntityID)
		data, ok := ev.Data.(Submission)
		require.True(t, ok)
		assert.Equal(t, "Desk", data.Title)
	case <-time.After(time.Second):
		t.Fatal("observer was not notified")
	}

	require.NoError(t, store.RecordSessionEvent(context.Background(), &SessionEvent{SessionID: "alice", Event: "created"}))
	select {
	case ev := <-received:
		assert.Equal(t, EventSessionRecorded, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("observer was not notified of session event")
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, clampLimit(0))
	assert.Equal(t, defaultListLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, maxListLimit, clampLimit(maxListLimit+1))
}

func TestSubmissionJSONDurationMilliseconds(t *testing.T) {
	sub := Submission{ID: "01", SessionID: "alice", Title: "Desk", Duration: 1500 * time.Millisecond}

	data, err := json.Marshal(sub)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(1500), raw["durationMs"])
	assert.NotContains(t, raw, "Duration")

	var back Submission
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 1500*time.Millisecond, back.Duration)
	assert.Equal(t, "Desk", back.Title)
	assert.Equal(t, "alice", back.SessionID)
}
