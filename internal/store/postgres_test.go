package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenAndAssembleRoundTrip(t *testing.T) {
	value := map[string]any{
		"s1": []any{map[string]any{"id": float64(1), "name": "Calculus"}},
		"s2": map[string]any{"n1": map[string]any{"title": "T", "timestamp": float64(7)}},
	}
	leaves := map[string]string{}
	require.NoError(t, flatten("subjects", value, leaves))
	assert.Equal(t, `[{"id":1,"name":"Calculus"}]`, leaves["subjects/s1"])
	assert.Equal(t, `"T"`, leaves["subjects/s2/n1/title"])
	assert.Len(t, leaves, 3)

	rows := []nodeRow{}
	for path, raw := range leaves {
		rows = append(rows, nodeRow{Path: path, Value: raw})
	}
	out, err := assemble("subjects", rows)
	require.NoError(t, err)
	assert.Equal(t, value, out)
}

func TestAssembleScalarAtBase(t *testing.T) {
	out, err := assemble("config/version", []nodeRow{{Path: "config/version", Value: `"1.2"`}})
	require.NoError(t, err)
	assert.Equal(t, "1.2", out)
}

func TestAncestorPaths(t *testing.T) {
	assert.Equal(t, []string{"notes", "notes/s1"}, ancestorPaths("notes/s1/abc"))
	assert.Empty(t, ancestorPaths("notes"))
}

func TestSubtreePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `notes/s\_1/%`, subtreePattern("notes/s_1"))
	assert.Equal(t, `a\%b/%`, subtreePattern("a%b"))
}
