package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// SplitPath validates a path and returns its segments. The root is "".
func SplitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	segs := strings.Split(trimmed, "/")
	for _, seg := range segs {
		if seg == "" || strings.ContainsAny(seg, ".#$[]") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segs, nil
}

func JoinPath(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, "/")
		if part != "" {
			cleaned = append(cleaned, part)
		}
	}
	return strings.Join(cleaned, "/")
}

// NewPushID returns a unique child key that sorts in creation order.
func NewPushID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// related reports whether a change at one path is visible from the other.
func related(a, b string) bool {
	a = strings.Trim(a, "/")
	b = strings.Trim(b, "/")
	if a == "" || b == "" || a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// normalize converts a value to its JSON tree form, resolving server
// timestamps and dropping empty objects.
func normalize(value any, now int64) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return resolve(generic, float64(now)), nil
}

func resolve(value any, now float64) any {
	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 1 && typed[".sv"] == "timestamp" {
			return now
		}
		for key, child := range typed {
			resolved := resolve(child, now)
			if resolved == nil {
				delete(typed, key)
				continue
			}
			typed[key] = resolved
		}
		if len(typed) == 0 {
			return nil
		}
		return typed
	case []any:
		for i, child := range typed {
			typed[i] = resolve(child, now)
		}
		return typed
	default:
		return value
	}
}

func getAt(node any, segs []string) any {
	for _, seg := range segs {
		switch typed := node.(type) {
		case map[string]any:
			node = typed[seg]
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(typed) {
				return nil
			}
			node = typed[idx]
		default:
			return nil
		}
		if node == nil {
			return nil
		}
	}
	return node
}

// setAt writes value below node and returns the new node. Nil deletes.
func setAt(node any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}
	seg, rest := segs[0], segs[1:]
	if list, ok := node.([]any); ok {
		if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 && idx < len(list) {
			list[idx] = setAt(list[idx], rest, value)
			return list
		}
	}
	m, ok := node.(map[string]any)
	if !ok {
		if value == nil {
			return node
		}
		m = map[string]any{}
	}
	child := setAt(m[seg], rest, value)
	if child == nil {
		delete(m, seg)
	} else {
		m[seg] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, child := range typed {
			out[key] = cloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return value
	}
}

func childrenOf(value any) []Child {
	switch typed := value.(type) {
	case map[string]any:
		return Snapshot{Value: typed}.Children()
	case []any:
		children := make([]Child, 0, len(typed))
		for i, child := range typed {
			if child != nil {
				children = append(children, Child{Key: strconv.Itoa(i), Value: child})
			}
		}
		return children
	default:
		return nil
	}
}

func applyQuery(path string, value any, q Query) (Snapshot, error) {
	if q.IsZero() {
		return Snapshot{Path: path, Value: value}, nil
	}
	children := childrenOf(value)
	var want any
	if q.EqualTo != nil {
		normalized, err := normalize(q.EqualTo, 0)
		if err != nil {
			return Snapshot{}, err
		}
		want = normalized
	}
	filtered := make([]Child, 0, len(children))
	for _, child := range children {
		if want != nil && compareValues(fieldOf(child, q.OrderByChild), want) != 0 {
			continue
		}
		filtered = append(filtered, child)
	}
	if q.OrderByChild != "" {
		sort.SliceStable(filtered, func(i, j int) bool {
			cmp := compareValues(fieldOf(filtered[i], q.OrderByChild), fieldOf(filtered[j], q.OrderByChild))
			if cmp != 0 {
				return cmp < 0
			}
			return filtered[i].Key < filtered[j].Key
		})
	}
	if q.LimitToLast > 0 && len(filtered) > q.LimitToLast {
		filtered = filtered[len(filtered)-q.LimitToLast:]
	}
	var result any
	if len(filtered) > 0 {
		m := make(map[string]any, len(filtered))
		for _, child := range filtered {
			m[child.Key] = child.Value
		}
		result = m
	}
	return Snapshot{Path: path, Value: result, ordered: filtered}, nil
}

func fieldOf(child Child, field string) any {
	if field == "" {
		return child.Key
	}
	segs, err := SplitPath(field)
	if err != nil {
		return nil
	}
	return getAt(child.Value, segs)
}

// compareValues orders null < false < true < numbers < strings < objects.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		return strings.Compare(av, b.(string))
	}
	return 0
}

func rank(value any) int {
	switch typed := value.(type) {
	case nil:
		return 0
	case bool:
		if typed {
			return 2
		}
		return 1
	case float64:
		return 3
	case string:
		return 4
	default:
		return 5
	}
}
