package store

import (
	"context"
	"sync"
	"time"
)

type subscription struct {
	path  string
	query Query
	ch    chan Snapshot
	done  chan struct{}
	once  sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// MemoryStore keeps the whole tree in process.
type MemoryStore struct {
	mu         sync.RWMutex
	dispatchMu sync.Mutex
	root       any
	offline    bool
	paused     bool
	now        func() time.Time
	nextSub    int
	subs       map[int]*subscription
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:  time.Now,
		subs: map[int]*subscription{},
	}
}

// WithClock replaces the clock used for server timestamps.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Get(ctx context.Context, path string) (Snapshot, error) {
	return m.Query(ctx, path, Query{})
}

func (m *MemoryStore) Query(ctx context.Context, path string, q Query) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	segs, err := SplitPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.offline {
		return Snapshot{}, ErrOffline
	}
	return applyQuery(JoinPath(segs...), cloneValue(getAt(m.root, segs)), q)
}

func (m *MemoryStore) Set(ctx context.Context, path string, value any) error {
	return m.write(ctx, path, func(now int64) (map[string]any, error) {
		normalized, err := normalize(value, now)
		if err != nil {
			return nil, err
		}
		return map[string]any{"": normalized}, nil
	})
}

func (m *MemoryStore) Update(ctx context.Context, path string, fields map[string]any) error {
	return m.write(ctx, path, func(now int64) (map[string]any, error) {
		writes := make(map[string]any, len(fields))
		for key, value := range fields {
			if _, err := SplitPath(key); err != nil {
				return nil, err
			}
			normalized, err := normalize(value, now)
			if err != nil {
				return nil, err
			}
			writes[key] = normalized
		}
		return writes, nil
	})
}

func (m *MemoryStore) Push(ctx context.Context, path string, value any) (string, error) {
	key, err := NewPushID()
	if err != nil {
		return "", err
	}
	if err := m.Set(ctx, JoinPath(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (m *MemoryStore) Remove(ctx context.Context, path string) error {
	return m.Set(ctx, path, nil)
}

// write applies relative path -> value pairs below base atomically and
// notifies affected subscribers in commit order.
func (m *MemoryStore) write(ctx context.Context, base string, build func(now int64) (map[string]any, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	baseSegs, err := SplitPath(base)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.offline {
		m.mu.Unlock()
		return ErrOffline
	}
	writes, err := build(m.now().UnixMilli())
	if err != nil {
		m.mu.Unlock()
		return err
	}
	changed := make([]string, 0, len(writes))
	for rel, value := range writes {
		relSegs, _ := SplitPath(rel)
		segs := append(append([]string{}, baseSegs...), relSegs...)
		m.root = setAt(m.root, segs, value)
		changed = append(changed, JoinPath(segs...))
	}
	var pending []pendingSnapshot
	if !m.paused {
		pending = m.collectLocked(changed)
	}
	m.dispatchLocked(pending)
	return nil
}

// dispatchLocked releases m.mu and delivers pending in order. Holding
// dispatchMu across the handover keeps deliveries in commit order.
func (m *MemoryStore) dispatchLocked(pending []pendingSnapshot) {
	m.dispatchMu.Lock()
	m.mu.Unlock()
	defer m.dispatchMu.Unlock()
	for _, p := range pending {
		select {
		case p.sub.ch <- p.snap:
		case <-p.sub.done:
		}
	}
}

type pendingSnapshot struct {
	sub  *subscription
	snap Snapshot
}

func (m *MemoryStore) collectLocked(changed []string) []pendingSnapshot {
	pending := []pendingSnapshot{}
	for _, sub := range m.subs {
		hit := false
		for _, path := range changed {
			if related(sub.path, path) {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		if p, ok := m.snapshotLocked(sub); ok {
			pending = append(pending, p)
		}
	}
	return pending
}

func (m *MemoryStore) snapshotLocked(sub *subscription) (pendingSnapshot, bool) {
	segs, _ := SplitPath(sub.path)
	snap, err := applyQuery(sub.path, cloneValue(getAt(m.root, segs)), sub.query)
	if err != nil {
		return pendingSnapshot{}, false
	}
	return pendingSnapshot{sub: sub, snap: snap}, true
}

// Subscribe delivers the current value and every later change below path.
func (m *MemoryStore) Subscribe(ctx context.Context, path string, q Query, fn func(Snapshot)) (func(), error) {
	segs, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	sub := &subscription{
		path:  JoinPath(segs...),
		query: q,
		ch:    make(chan Snapshot, 64),
		done:  make(chan struct{}),
	}
	m.mu.Lock()
	if m.offline {
		m.mu.Unlock()
		return nil, ErrOffline
	}
	initial, err := applyQuery(sub.path, cloneValue(getAt(m.root, segs)), q)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = sub
	sub.ch <- initial
	m.mu.Unlock()

	go func() {
		for {
			select {
			case snap := <-sub.ch:
				fn(snap)
			case <-sub.done:
				return
			case <-ctx.Done():
				sub.stop()
				m.unsubscribe(id)
				return
			}
		}
	}()

	return func() {
		sub.stop()
		m.unsubscribe(id)
	}, nil
}

func (m *MemoryStore) unsubscribe(id int) {
	m.mu.Lock()
	delete(m.subs, id)
	m.mu.Unlock()
}

func (m *MemoryStore) GoOffline() {
	m.mu.Lock()
	m.offline = true
	m.mu.Unlock()
}

func (m *MemoryStore) GoOnline() {
	m.mu.Lock()
	m.offline = false
	m.mu.Unlock()
}

// PauseSync stops change delivery. Writes made while paused reach
// subscribers only through the snapshot ResumeSync hands out.
func (m *MemoryStore) PauseSync() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
}

func (m *MemoryStore) ResumeSync() {
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return
	}
	m.paused = false
	pending := make([]pendingSnapshot, 0, len(m.subs))
	for _, sub := range m.subs {
		if p, ok := m.snapshotLocked(sub); ok {
			pending = append(pending, p)
		}
	}
	m.dispatchLocked(pending)
}
