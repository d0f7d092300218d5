package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	assert.Equal(t, "12", parseVersion("V12__add_index.sql"))
	assert.Equal(t, "", parseVersion("seed.sql"))
	assert.Equal(t, "", parseVersion("V3.sql"))

	n, ok := parseVersionNumber("V2__x.sql")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	_, ok = parseVersionNumber("Vx__y.sql")
	assert.False(t, ok)
}

func TestListMigrationsSortsNumerically(t *testing.T) {
	source := fstest.MapFS{
		"sql/V10__ten.sql":  {Data: []byte("SELECT 10;")},
		"sql/V2__two.sql":   {Data: []byte("SELECT 2;")},
		"sql/extra.sql":     {Data: []byte("SELECT 0;")},
		"sql/README.md":     {Data: []byte("skip")},
		"sql/V1__first.sql": {Data: []byte("SELECT 1;")},
	}
	migs, err := listMigrations(source)
	require.NoError(t, err)
	names := []string{}
	for _, mig := range migs {
		names = append(names, mig.Name)
	}
	assert.Equal(t, []string{"V1__first.sql", "V2__two.sql", "V10__ten.sql", "extra.sql"}, names)
	assert.Equal(t, "SELECT 2;", migs[1].Body)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	migs, err := listMigrations(files)
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	assert.Equal(t, "V1__tree_nodes.sql", migs[0].Name)
	assert.Contains(t, migs[0].Body, "tree_nodes")
}
