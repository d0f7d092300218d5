// Package store is the hierarchical document store the service persists into.
//
// Data is a JSON-shaped tree addressed by slash separated paths such as
// "notes/s1/<id>". Backends support point and subtree reads, ordered range
// queries, push-generated child keys, partial updates, removal and live
// subscriptions.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
)

var (
	ErrOffline     = errors.New("store is offline")
	ErrInvalidPath = errors.New("invalid store path")
)

// ServerTimestamp is replaced by the store clock (Unix milliseconds) when written.
var ServerTimestamp = map[string]any{".sv": "timestamp"}

type Query struct {
	OrderByChild string
	EqualTo      any
	LimitToLast  int
}

func (q Query) IsZero() bool {
	return q.OrderByChild == "" && q.EqualTo == nil && q.LimitToLast == 0
}

type Child struct {
	Key   string
	Value any
}

func (c Child) Decode(target any) error {
	return decodeValue(c.Value, target)
}

type Snapshot struct {
	Path    string
	Value   any
	ordered []Child
}

func (s Snapshot) Exists() bool {
	return s.Value != nil
}

func (s Snapshot) Decode(target any) error {
	return decodeValue(s.Value, target)
}

// Children returns the direct children. Query results keep the query order;
// plain reads are ordered by key.
func (s Snapshot) Children() []Child {
	if s.ordered != nil {
		return s.ordered
	}
	node, ok := s.Value.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(node))
	for key := range node {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	children := make([]Child, 0, len(keys))
	for _, key := range keys {
		children = append(children, Child{Key: key, Value: node[key]})
	}
	return children
}

type Store interface {
	Get(ctx context.Context, path string) (Snapshot, error)
	Query(ctx context.Context, path string, q Query) (Snapshot, error)
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Push(ctx context.Context, path string, value any) (string, error)
	Remove(ctx context.Context, path string) error
	Subscribe(ctx context.Context, path string, q Query, fn func(Snapshot)) (func(), error)
	// PauseSync drops the live change feed. Reads and writes keep working;
	// subscribers stop hearing about changes.
	PauseSync()
	// ResumeSync reattaches the change feed and hands every subscriber a
	// fresh snapshot.
	ResumeSync()
	// GoOffline makes every read and write fail with ErrOffline.
	GoOffline()
	GoOnline()
}

func decodeValue(value any, target any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
