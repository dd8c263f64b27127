package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_SortedByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_add_index.sql":      {Data: []byte("CREATE INDEX x ON t(a);")},
		"m/002_second.sql":         {Data: []byte("ALTER TABLE t ADD b TEXT;")},
		"m/001_initial_schema.sql": {Data: []byte("CREATE TABLE t (a TEXT);")},
		"m/README.md":              {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "initial_schema", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Equal(t, 10, migrations[2].Version)
	assert.Equal(t, "add_index", migrations[2].Name)
}

func TestLoadMigrations_RejectsDuplicates(t *testing.T) {
	fsys := fstest.MapFS{
		"m/001_a.sql": {Data: []byte("SELECT 1;")},
		"m/001_b.sql": {Data: []byte("SELECT 2;")},
	}

	_, err := LoadMigrations(fsys, "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate migration version 1")
}

func TestLoadMigrations_RejectsBadName(t *testing.T) {
	fsys := fstest.MapFS{"m/initial.sql": {Data: []byte("SELECT 1;")}}

	_, err := LoadMigrations(fsys, "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid migration filename")
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := LoadMigrations(Migrations, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS quotes")
	assert.Contains(t, migrations[0].SQL, "idx_hitl_reviews_one_open")
}
