package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644))
}

func TestLoadMigrationsOrder(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "002_loans.sql", "CREATE TABLE loans (id BIGSERIAL PRIMARY KEY);")
	writeMigration(t, dir, "001_core.sql", "CREATE TABLE users (id BIGSERIAL PRIMARY KEY);")
	writeMigration(t, dir, "010_extra.sql", "CREATE TABLE extra (id BIGSERIAL PRIMARY KEY);")

	runner := NewMigrationRunner(nil, dir, nil)
	migrations, err := runner.LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, "001_core.sql", migrations[0].Name)
	assert.Equal(t, "002_loans.sql", migrations[1].Name)
	assert.Equal(t, "010_extra.sql", migrations[2].Name)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.Len(t, m.Checksum, 64, "checksum should be hex-encoded SHA-256")
		assert.NotEmpty(t, m.SQL)
	}
}

func TestLoadMigrationsChecksumTracksContent(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "001_core.sql", "CREATE TABLE a (id INT);")

	runner := NewMigrationRunner(nil, dir, nil)
	before, err := runner.LoadMigrations()
	require.NoError(t, err)

	writeMigration(t, dir, "001_core.sql", "CREATE TABLE b (id INT);")
	after, err := runner.LoadMigrations()
	require.NoError(t, err)

	assert.NotEqual(t, before[0].Checksum, after[0].Checksum)
}

func TestLoadMigrationsEmptyDirectory(t *testing.T) {
	runner := NewMigrationRunner(nil, t.TempDir(), nil)

	_, err := runner.LoadMigrations()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no migration files")
}

func TestLoadMigrationsMissingPath(t *testing.T) {
	runner := NewMigrationRunner(nil, "", nil)

	_, err := runner.LoadMigrations()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema path not configured")
}

func TestShippedMigrationsLoad(t *testing.T) {
	// The repository's own migration files must load in order.
	runner := NewMigrationRunner(nil, filepath.Join("..", "..", "migrations"), nil)

	migrations, err := runner.LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "001_core_schema.sql", migrations[0].Name)
}
