package db

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestNewDB_AppliesAllMigrations(t *testing.T) {
	db := setupTestDB(t)
	migrationsFS, err := getMigrationsFS()
	require.NoError(t, err)

	latest, err := GetLatestMigrationVersion(migrationsFS)
	require.NoError(t, err)

	version, dirty, err := db.MigrateVersion(migrationsFS)
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.False(t, dirty)

	for _, table := range []string{"mouse", "box", "board", "arduino_protocol", "python_protocol", "session"} {
		assert.True(t, tableExists(t, db, table), "table %s", table)
	}
}

func TestMigrateDownThenUp(t *testing.T) {
	db := setupTestDB(t)
	migrationsFS, err := getMigrationsFS()
	require.NoError(t, err)

	require.NoError(t, db.MigrateDown(migrationsFS))
	assert.False(t, tableExists(t, db, "session"))

	require.NoError(t, db.MigrateUp(migrationsFS))
	assert.True(t, tableExists(t, db, "session"))

	// Already at latest.
	require.NoError(t, db.MigrateUp(migrationsFS))
}

func TestGetMigrationStatus(t *testing.T) {
	db := setupTestDB(t)
	migrationsFS, err := getMigrationsFS()
	require.NoError(t, err)

	status, err := db.GetMigrationStatus(migrationsFS)
	require.NoError(t, err)
	assert.True(t, status.SchemaMigrationsExists)
	assert.Equal(t, status.LatestVersion, status.CurrentVersion)
	assert.Zero(t, status.Pending())
	assert.NoError(t, db.CheckMigrations(migrationsFS))
}

func TestCheckMigrations_FreshDatabase(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer db.Close()

	migrationsFS, err := getMigrationsFS()
	require.NoError(t, err)

	status, err := db.GetMigrationStatus(migrationsFS)
	require.NoError(t, err)
	assert.False(t, status.SchemaMigrationsExists)
	assert.Equal(t, status.LatestVersion, status.Pending())

	err = db.CheckMigrations(migrationsFS)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of date")
}

func TestBaselineAtVersion(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.BaselineAtVersion(1))

	migrationsFS, err := getMigrationsFS()
	require.NoError(t, err)
	version, dirty, err := db.MigrateVersion(migrationsFS)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	err = db.BaselineAtVersion(1)
	assert.Error(t, err, "second baseline must be refused")
}

func TestGetLatestMigrationVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"000001_initial.up.sql":   {Data: []byte("SELECT 1;")},
		"000001_initial.down.sql": {Data: []byte("SELECT 1;")},
		"000003_more.up.sql":      {Data: []byte("SELECT 1;")},
		"000002_other.up.sql":     {Data: []byte("SELECT 1;")},
		"README.md":               {Data: []byte("docs")},
	}
	v, err := GetLatestMigrationVersion(fsys)
	require.NoError(t, err)
	assert.Equal(t, uint(3), v)

	_, err = GetLatestMigrationVersion(fstest.MapFS{})
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := &MigrateCommand{DBPath: path, Out: &out, In: strings.NewReader("n\n")}
		err := cmd.Run(args)
		return out.String(), err
	}

	out, err := run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 0")
	assert.Contains(t, out, "pending")

	_, err = run("up")
	require.NoError(t, err)

	out, err = run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")

	out, err = run("force", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted")

	_, err = run("version")
	assert.Error(t, err)

	out, err = run("bogus")
	assert.Error(t, err)
	assert.Contains(t, out, "Usage: runner migrate")

	out, err = run("help")
	require.NoError(t, err)
	assert.Contains(t, out, "baseline <N>")
}
