package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/erp/eca/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"add ledger index":     "add_ledger_index",
		"Add-Ledger--Index":    "add_ledger_index",
		"  trailing spaces  ":  "trailing_spaces",
		"drop eca_entities!!!": "drop_eca_entities",
		"***":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeName(in), in)
	}
}

func TestListMigrations_Embedded(t *testing.T) {
	list, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	for i, mf := range list {
		assert.Equal(t, uint(i+1), mf.Version, "versions are contiguous")
		assert.NotEmpty(t, mf.UpPath)
		assert.NotEmpty(t, mf.DownPath, "%s has no down migration", mf.Name)
	}
	assert.Equal(t, "create_organizations", list[0].Name)
}

func TestListMigrations_MissingDir(t *testing.T) {
	list, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "Add ledger index", "index processed events")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_ledger_index.up.sql"), first.UpPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add_ledger_index\n")
	assert.Contains(t, string(up), "-- Description: index processed events")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")

	second, err := CreateMigration(dir, "second", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	list, err := ListMigrations(os.DirFS(dir))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[1].Name)
}

func TestCreateMigration_InvalidName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	require.Error(t, err)
}
