package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPath(t *testing.T) {
	segs, err := SplitPath("/notes/s1/abc/")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "s1", "abc"}, segs)

	segs, err = SplitPath("")
	require.NoError(t, err)
	assert.Empty(t, segs)

	for _, bad := range []string{"notes//s1", "a.b", "chat/#1", "x/$y", "arr[0]"} {
		_, err := SplitPath(bad)
		assert.True(t, errors.Is(err, ErrInvalidPath), bad)
	}
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "notes/s1/x", JoinPath("notes", "/s1/", "", "x"))
	assert.Equal(t, "", JoinPath("", "/"))
}

func TestRelated(t *testing.T) {
	assert.True(t, related("notes/s1", "notes/s1/abc"))
	assert.True(t, related("notes/s1/abc", "notes"))
	assert.True(t, related("", "chat"))
	assert.False(t, related("notes/s1", "notes/s10"))
	assert.False(t, related("chat", "config"))
}

func TestNewPushIDSortsInCreationOrder(t *testing.T) {
	prev, err := NewPushID()
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		next, err := NewPushID()
		require.NoError(t, err)
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestNormalizeResolvesTimestampsAndDropsEmptyObjects(t *testing.T) {
	value := map[string]any{
		"title":     "Unit 1",
		"timestamp": ServerTimestamp,
		"meta":      map[string]any{},
	}
	out, err := normalize(value, 1700)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Unit 1", "timestamp": float64(1700)}, out)

	out, err = normalize(map[string]any{}, 1)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSetAtPrunesEmptyParents(t *testing.T) {
	var root any
	root = setAt(root, []string{"notes", "s1", "a"}, "x")
	root = setAt(root, []string{"notes", "s2", "b"}, "y")
	root = setAt(root, []string{"notes", "s1", "a"}, nil)
	assert.Equal(t, map[string]any{"notes": map[string]any{"s2": map[string]any{"b": "y"}}}, root)

	root = setAt(root, []string{"notes", "s2", "b"}, nil)
	assert.Nil(t, root)
}

func TestSetAtIndexesArrays(t *testing.T) {
	root := any(map[string]any{"subjects": []any{map[string]any{"id": float64(1), "name": "A"}}})
	root = setAt(root, []string{"subjects", "0", "name"}, "B")
	assert.Equal(t, "B", getAt(root, []string{"subjects", "0", "name"}))
	assert.Nil(t, getAt(root, []string{"subjects", "4"}))
}

func TestApplyQueryOrdersFiltersAndLimits(t *testing.T) {
	value := map[string]any{
		"m1": map[string]any{"timestamp": float64(30), "email": "b@x.io"},
		"m2": map[string]any{"timestamp": float64(10), "email": "a@x.io"},
		"m3": map[string]any{"timestamp": float64(20), "email": "a@x.io"},
	}

	snap, err := applyQuery("chat", value, Query{OrderByChild: "timestamp", LimitToLast: 2})
	require.NoError(t, err)
	keys := []string{}
	for _, child := range snap.Children() {
		keys = append(keys, child.Key)
	}
	assert.Equal(t, []string{"m3", "m1"}, keys)

	snap, err = applyQuery("admins", value, Query{OrderByChild: "email", EqualTo: "a@x.io"})
	require.NoError(t, err)
	assert.Len(t, snap.Children(), 2)

	snap, err = applyQuery("admins", value, Query{OrderByChild: "email", EqualTo: "zzz"})
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestCompareValuesRanksTypes(t *testing.T) {
	assert.Equal(t, -1, compareValues(nil, false))
	assert.Equal(t, -1, compareValues(true, float64(0)))
	assert.Equal(t, -1, compareValues(float64(9), "a"))
	assert.Equal(t, 1, compareValues(map[string]any{}, "z"))
	assert.Equal(t, 0, compareValues("a", "a"))
}
