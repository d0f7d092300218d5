package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestMemoryStoreSetGetRemove(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "config", map[string]any{"version": "1.0.0"}))
	snap, err := s.Get(ctx, "config/version")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", snap.Value)

	require.NoError(t, s.Remove(ctx, "config"))
	snap, err = s.Get(ctx, "config")
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestMemoryStoreGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "a", map[string]any{"b": "c"}))

	snap, err := s.Get(ctx, "a")
	require.NoError(t, err)
	snap.Value.(map[string]any)["b"] = "mutated"

	again, err := s.Get(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "c", again.Value)
}

func TestMemoryStoreUpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore().WithClock(fixedClock(5000))
	require.NoError(t, s.Set(ctx, "notes/s1/n1", map[string]any{"title": "Old", "link": "https://x.io", "timestamp": ServerTimestamp}))

	require.NoError(t, s.Update(ctx, "notes/s1/n1", map[string]any{"title": "New", "lastUpdated": ServerTimestamp}))

	var note struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Timestamp   int64  `json:"timestamp"`
		LastUpdated int64  `json:"lastUpdated"`
	}
	snap, err := s.Get(ctx, "notes/s1/n1")
	require.NoError(t, err)
	require.NoError(t, snap.Decode(&note))
	assert.Equal(t, "New", note.Title)
	assert.Equal(t, "https://x.io", note.Link)
	assert.Equal(t, int64(5000), note.Timestamp)
	assert.Equal(t, int64(5000), note.LastUpdated)
}

func TestMemoryStorePushKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	keys := []string{}
	for i := 0; i < 5; i++ {
		key, err := s.Push(ctx, "notes/s1", map[string]any{"title": fmt.Sprintf("n%d", i)})
		require.NoError(t, err)
		keys = append(keys, key)
	}
	snap, err := s.Get(ctx, "notes/s1")
	require.NoError(t, err)
	children := snap.Children()
	require.Len(t, children, 5)
	for i, child := range children {
		assert.Equal(t, keys[i], child.Key)
	}
}

func TestMemoryStoreOffline(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.GoOffline()

	_, err := s.Get(ctx, "config")
	assert.True(t, errors.Is(err, ErrOffline))
	assert.True(t, errors.Is(s.Set(ctx, "config", 1), ErrOffline))

	s.GoOnline()
	_, err = s.Get(ctx, "config")
	assert.NoError(t, err)
}

func TestMemoryStoreRejectsInvalidPaths(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	assert.True(t, errors.Is(s.Set(ctx, "notes/a.b", 1), ErrInvalidPath))
	assert.True(t, errors.Is(s.Update(ctx, "notes", map[string]any{"x$": 1}), ErrInvalidPath))
}

func TestMemoryStoreSubscribeDeliversInitialAndChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewMemoryStore()

	got := make(chan Snapshot, 8)
	unsubscribe, err := s.Subscribe(ctx, "chat", Query{OrderByChild: "timestamp", LimitToLast: 2}, func(snap Snapshot) {
		got <- snap
	})
	require.NoError(t, err)
	defer unsubscribe()

	first := <-got
	assert.False(t, first.Exists())

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("chat/m%d", i), map[string]any{"timestamp": i}))
	}
	var last Snapshot
	for i := 0; i < 3; i++ {
		select {
		case last = <-got:
		case <-time.After(time.Second):
			t.Fatal("subscription did not fire")
		}
	}
	children := last.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "m2", children[0].Key)
	assert.Equal(t, "m3", children[1].Key)

	// Unrelated writes do not fire.
	require.NoError(t, s.Set(ctx, "config/version", "2"))
	select {
	case snap := <-got:
		t.Fatalf("unexpected snapshot %v", snap.Path)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStoreUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	got := make(chan Snapshot, 8)
	unsubscribe, err := s.Subscribe(ctx, "notes", Query{}, func(snap Snapshot) { got <- snap })
	require.NoError(t, err)
	<-got
	unsubscribe()

	require.NoError(t, s.Set(ctx, "notes/s1/x", "y"))
	select {
	case <-got:
		t.Fatal("delivery after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStorePausedSyncKeepsWritesAndResyncs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewMemoryStore()
	got := make(chan Snapshot, 8)
	unsubscribe, err := s.Subscribe(ctx, "chat", Query{}, func(snap Snapshot) { got <- snap })
	require.NoError(t, err)
	defer unsubscribe()
	<-got

	s.PauseSync()
	require.NoError(t, s.Set(ctx, "chat/m1", map[string]any{"text": "hi"}))
	snap, err := s.Get(ctx, "chat/m1/text")
	require.NoError(t, err)
	assert.Equal(t, "hi", snap.Value)
	select {
	case <-got:
		t.Fatal("delivery while paused")
	case <-time.After(50 * time.Millisecond):
	}

	s.ResumeSync()
	select {
	case snap := <-got:
		require.Len(t, snap.Children(), 1)
		assert.Equal(t, "m1", snap.Children()[0].Key)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after resume")
	}
}
