package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kknotes-backend-go/internal/store"
)

func newTestMonitor(s store.Store) *ReadMonitor {
	return NewReadMonitor(s, 20*time.Millisecond, time.Millisecond, 10*time.Millisecond)
}

func TestReconnectIsSingleFlight(t *testing.T) {
	s := store.NewMemoryStore()
	monitor := newTestMonitor(s)

	assert.True(t, monitor.Reconnect())
	assert.False(t, monitor.Reconnect())
	monitor.Wait()
	assert.EqualValues(t, 1, monitor.Cycles())

	_, err := s.Get(context.Background(), "")
	require.NoError(t, err)

	assert.True(t, monitor.Reconnect())
	monitor.Wait()
	assert.EqualValues(t, 2, monitor.Cycles())
}

func TestSlowReadTriggersOneCycle(t *testing.T) {
	s := store.NewMemoryStore()
	monitor := newTestMonitor(s)

	err := monitor.Watch(context.Background(), "slow", func(ctx context.Context) error {
		time.Sleep(60 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	monitor.Wait()
	assert.EqualValues(t, 1, monitor.Cycles())

	err = monitor.Watch(context.Background(), "fast", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	monitor.Wait()
	assert.EqualValues(t, 1, monitor.Cycles())
}

func TestFailedReadTriggersCycle(t *testing.T) {
	s := store.NewMemoryStore()
	monitor := newTestMonitor(s)

	err := monitor.Watch(context.Background(), "fail", func(ctx context.Context) error { return store.ErrOffline })
	assert.ErrorIs(t, err, store.ErrOffline)
	monitor.Wait()
	assert.EqualValues(t, 1, monitor.Cycles())

	_ = monitor.Watch(context.Background(), "invalid", func(ctx context.Context) error { return store.ErrInvalidPath })
	_ = monitor.Watch(context.Background(), "canceled", func(ctx context.Context) error { return context.Canceled })
	_ = monitor.Watch(context.Background(), "validation", func(ctx context.Context) error { return ErrValidation("bad") })
	monitor.Wait()
	assert.EqualValues(t, 1, monitor.Cycles())
}

func TestCatalogRecoversAfterCycle(t *testing.T) {
	flaky := &flakyStore{MemoryStore: store.NewMemoryStore()}
	monitor := newTestMonitor(flaky)
	catalog := &Catalog{Store: flaky, Monitor: monitor}
	ctx := context.Background()
	require.NoError(t, flaky.Set(ctx, "subjects/s1", []any{map[string]any{"id": 1, "name": "Calculus"}}))

	flaky.setFailing(true)
	_, err := catalog.Subjects(ctx, "s1")
	assert.True(t, IsKind(err, KindRemoteUnavailable))
	monitor.Wait()
	assert.EqualValues(t, 1, monitor.Cycles())

	flaky.setFailing(false)
	subjects, err := catalog.Subjects(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, subjects, 1)
}

func TestNilMonitorRunsReads(t *testing.T) {
	var monitor *ReadMonitor
	called := false
	require.NoError(t, monitor.Watch(context.Background(), "x", func(ctx context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
	assert.False(t, monitor.Reconnect())
	monitor.Wait()
}

// cycleStore reports when a reconnect cycle detaches the change feed.
type cycleStore struct {
	*store.MemoryStore
	paused chan struct{}
}

func (c *cycleStore) PauseSync() {
	c.MemoryStore.PauseSync()
	c.paused <- struct{}{}
}

func TestCycleLeavesOtherOperationsWorking(t *testing.T) {
	cs := &cycleStore{MemoryStore: store.NewMemoryStore(), paused: make(chan struct{}, 1)}
	monitor := NewReadMonitor(cs, 10*time.Millisecond, time.Millisecond, 100*time.Millisecond)
	navigator := NewNavigator(cs, monitor)
	mutator := NewMutator(cs, navigator)
	ctx := context.Background()

	got := make(chan store.Snapshot, 8)
	unsubscribe, err := cs.Subscribe(ctx, "notes/s2", store.Query{}, func(snap store.Snapshot) { got <- snap })
	require.NoError(t, err)
	defer unsubscribe()
	<-got

	err = monitor.Watch(ctx, "slow", func(ctx context.Context) error {
		time.Sleep(40 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	select {
	case <-cs.paused:
	case <-time.After(time.Second):
		t.Fatal("cycle did not start")
	}

	res, err := mutator.AddNote(ctx, adminSession(), EntryInput{Semester: "s2", Title: "Graphs", Link: "https://drive.example.com/graphs"})
	require.NoError(t, err)
	notes, err := navigator.Catalog.Entries(ctx, CollectionNotes, "s2", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Graphs"}, titles(notes))

	monitor.Wait()
	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-got:
			for _, child := range snap.Children() {
				if child.Key == res.ID {
					return
				}
			}
		case <-deadline:
			t.Fatal("subscriber never saw the note")
		}
	}
}
