package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
)

const notifyChannel = "tree_changes"

type nodeRow struct {
	Path  string `db:"path"`
	Value string `db:"value"`
}

// PostgresStore flattens the tree into tree_nodes rows, one per leaf.
// Objects are implied by their leaves; scalars and arrays are stored whole.
// Writes NOTIFY the changed path so every instance can feed its subscribers.
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time

	mu      sync.Mutex
	offline bool
	live    *liveQueries
}

func NewPostgresStore(db *sqlx.DB, dsn string) *PostgresStore {
	return newPostgresStore(db, pgFeed{dsn: dsn})
}

func newPostgresStore(db *sqlx.DB, feed ChangeFeed) *PostgresStore {
	p := &PostgresStore{db: db, now: time.Now}
	p.live = newLiveQueries(feed, p.Query)
	return p
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresStore) isOffline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offline
}

func (p *PostgresStore) Get(ctx context.Context, path string) (Snapshot, error) {
	return p.Query(ctx, path, Query{})
}

func (p *PostgresStore) Query(ctx context.Context, path string, q Query) (Snapshot, error) {
	if p.isOffline() {
		return Snapshot{}, ErrOffline
	}
	segs, err := SplitPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	value, err := p.read(ctx, segs)
	if err != nil {
		return Snapshot{}, err
	}
	return applyQuery(JoinPath(segs...), value, q)
}

func (p *PostgresStore) read(ctx context.Context, segs []string) (any, error) {
	path := JoinPath(segs...)
	rows := []nodeRow{}
	var err error
	if path == "" {
		err = p.db.SelectContext(ctx, &rows, `SELECT path, value::text AS value FROM tree_nodes ORDER BY path`)
	} else {
		err = p.db.SelectContext(ctx, &rows, `
SELECT path, value::text AS value
FROM tree_nodes
WHERE path = $1 OR path LIKE $2 ESCAPE '\'
ORDER BY path
`, path, subtreePattern(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) > 0 {
		return assemble(path, rows)
	}
	// The path may point inside a stored array or scalar.
	ancestors := ancestorPaths(path)
	for i := len(ancestors) - 1; i >= 0; i-- {
		leaf := []nodeRow{}
		if err := p.db.SelectContext(ctx, &leaf, `SELECT path, value::text AS value FROM tree_nodes WHERE path = $1`, ancestors[i]); err != nil {
			return nil, fmt.Errorf("read %s: %w", ancestors[i], err)
		}
		if len(leaf) == 0 {
			continue
		}
		var value any
		if err := json.Unmarshal([]byte(leaf[0].Value), &value); err != nil {
			return nil, fmt.Errorf("decode %s: %w", leaf[0].Path, err)
		}
		return getAt(value, segs[i+1:]), nil
	}
	return nil, nil
}

func (p *PostgresStore) Set(ctx context.Context, path string, value any) error {
	return p.write(ctx, path, func(now int64) (map[string]any, error) {
		normalized, err := normalize(value, now)
		if err != nil {
			return nil, err
		}
		return map[string]any{"": normalized}, nil
	})
}

func (p *PostgresStore) Update(ctx context.Context, path string, fields map[string]any) error {
	return p.write(ctx, path, func(now int64) (map[string]any, error) {
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

func (p *PostgresStore) Push(ctx context.Context, path string, value any) (string, error) {
	key, err := NewPushID()
	if err != nil {
		return "", err
	}
	if err := p.Set(ctx, JoinPath(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (p *PostgresStore) Remove(ctx context.Context, path string) error {
	return p.Set(ctx, path, nil)
}

func (p *PostgresStore) write(ctx context.Context, base string, build func(now int64) (map[string]any, error)) error {
	if p.isOffline() {
		return ErrOffline
	}
	baseSegs, err := SplitPath(base)
	if err != nil {
		return err
	}
	writes, err := build(p.now().UnixMilli())
	if err != nil {
		return err
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for rel, value := range writes {
		relSegs, _ := SplitPath(rel)
		path := JoinPath(append(append([]string{}, baseSegs...), relSegs...)...)
		if err := replaceSubtree(ctx, tx, path, value); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, path); err != nil {
			return fmt.Errorf("notify %s: %w", path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write: %w", err)
	}
	return nil
}

func replaceSubtree(ctx context.Context, tx *sqlx.Tx, path string, value any) error {
	if path == "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tree_nodes`); err != nil {
			return fmt.Errorf("clear tree: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tree_nodes WHERE path = $1 OR path LIKE $2 ESCAPE '\'`, path, subtreePattern(path)); err != nil {
			return fmt.Errorf("clear %s: %w", path, err)
		}
		for _, ancestor := range ancestorPaths(path) {
			if _, err := tx.ExecContext(ctx, `DELETE FROM tree_nodes WHERE path = $1`, ancestor); err != nil {
				return fmt.Errorf("clear %s: %w", ancestor, err)
			}
		}
	}
	leaves := map[string]string{}
	if err := flatten(path, value, leaves); err != nil {
		return err
	}
	for leafPath, raw := range leaves {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO tree_nodes (path, value, updated_at)
VALUES ($1, $2::jsonb, now())
`, leafPath, raw); err != nil {
			return fmt.Errorf("insert %s: %w", leafPath, err)
		}
	}
	return nil
}

// Subscribe delivers the current value, then a fresh read after every
// notification touching path.
func (p *PostgresStore) Subscribe(ctx context.Context, path string, q Query, fn func(Snapshot)) (func(), error) {
	initial, err := p.Query(ctx, path, q)
	if err != nil {
		return nil, err
	}
	return p.live.add(ctx, initial, q, fn), nil
}

func (p *PostgresStore) PauseSync() {
	p.live.pause()
}

func (p *PostgresStore) ResumeSync() {
	p.live.resume()
}

func (p *PostgresStore) GoOffline() {
	p.mu.Lock()
	p.offline = true
	p.mu.Unlock()
	p.live.pause()
}

func (p *PostgresStore) GoOnline() {
	p.mu.Lock()
	p.offline = false
	p.mu.Unlock()
	p.live.resume()
}

// pgFeed LISTENs on a dedicated connection for paths written by any instance.
type pgFeed struct {
	dsn string
}

func (f pgFeed) Listen(ctx context.Context, ready func(), changed func(path string)) error {
	conn, err := pgx.Connect(ctx, f.dsn)
	if err != nil {
		return fmt.Errorf("listener connect: %w", err)
	}
	defer conn.Close(context.Background())
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	ready()
	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		changed(notification.Payload)
	}
}

// flatten turns a tree value into leaf path -> JSON text.
func flatten(path string, value any, out map[string]string) error {
	switch typed := value.(type) {
	case nil:
		return nil
	case map[string]any:
		for key, child := range typed {
			if err := flatten(JoinPath(path, key), child, out); err != nil {
				return err
			}
		}
		return nil
	default:
		raw, err := json.Marshal(typed)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		out[path] = string(raw)
		return nil
	}
}

// assemble rebuilds the value at base from its leaf rows.
func assemble(base string, rows []nodeRow) (any, error) {
	var root any
	for _, row := range rows {
		var value any
		if err := json.Unmarshal([]byte(row.Value), &value); err != nil {
			return nil, fmt.Errorf("decode %s: %w", row.Path, err)
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(row.Path, base), "/")
		relSegs, err := SplitPath(rel)
		if err != nil {
			return nil, err
		}
		root = setAt(root, relSegs, value)
	}
	return root, nil
}

func ancestorPaths(path string) []string {
	segs, _ := SplitPath(path)
	ancestors := make([]string, 0, len(segs))
	for i := 1; i < len(segs); i++ {
		ancestors = append(ancestors, JoinPath(segs[:i]...))
	}
	return ancestors
}

func subtreePattern(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(path) + "/%"
}
