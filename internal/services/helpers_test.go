package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/store"
)

const testPermanentAdmin = "owner@kknotes.dev"

type testEnv struct {
	ctx       context.Context
	store     *store.MemoryStore
	navigator *Navigator
	mutator   *Mutator
	roles     *RoleResolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := store.NewMemoryStore()
	navigator := NewNavigator(s, nil)
	env := &testEnv{
		ctx:       context.Background(),
		store:     s,
		navigator: navigator,
		mutator:   NewMutator(s, navigator),
		roles:     &RoleResolver{Store: s},
	}
	require.NoError(t, s.Set(env.ctx, "config/permanentAdmin", testPermanentAdmin))
	return env
}

func adminSession() models.Session {
	return models.Session{
		ID:       "sess-admin",
		Identity: models.Identity{UID: "u-admin", Email: "admin@kknotes.dev", DisplayName: "Admin"},
		Role:     models.RoleAdmin,
	}
}

func superAdminSession() models.Session {
	return models.Session{
		ID:       "sess-super",
		Identity: models.Identity{UID: "u-super", Email: testPermanentAdmin, DisplayName: "Owner"},
		Role:     models.RoleSuperAdmin,
	}
}

func guestSession() models.Session {
	return models.Session{
		ID:       "sess-guest",
		Identity: models.Identity{UID: "u-guest", Email: "student@kknotes.dev", DisplayName: "Student"},
		Role:     models.RoleGuest,
	}
}

// fakeConn records JSON frames written by a hub.
type fakeConn struct {
	mu     sync.Mutex
	frames []any
	closed bool
	fail   bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return context.DeadlineExceeded
	}
	c.frames = append(c.frames, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) Frames() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.frames...)
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// flakyStore fails reads while failing is set.
type flakyStore struct {
	*store.MemoryStore
	mu      sync.Mutex
	failing bool
	delay   time.Duration
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *flakyStore) Get(ctx context.Context, path string) (store.Snapshot, error) {
	return f.Query(ctx, path, store.Query{})
}

func (f *flakyStore) Query(ctx context.Context, path string, q store.Query) (store.Snapshot, error) {
	f.mu.Lock()
	failing, delay := f.failing, f.delay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if failing {
		return store.Snapshot{}, store.ErrOffline
	}
	return f.MemoryStore.Query(ctx, path, q)
}
