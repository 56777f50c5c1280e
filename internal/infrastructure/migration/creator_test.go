package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/pass-culture/pass-culture-main-sub045/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add invoice documents", "add_invoice_documents"},
		{"Add-Cashflow-Index", "add_cashflow_index"},
		{"PRICING__LOGS", "pricing_logs"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_ledger_schema.up.sql"), []byte("--"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_ledger_schema.down.sql"), []byte("--"), 0o644))

	mf, err := CreateMigration(dir, "add invoice documents", "Store rendered invoice keys")
	require.NoError(t, err)

	assert.Equal(t, "000002", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000002_add_invoice_documents.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000002_add_invoice_documents.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add_invoice_documents")
	assert.Contains(t, string(up), "Store rendered invoice keys")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback of add_invoice_documents")
}

func TestCreateMigration_NewDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_add_index.up.sql":       {Data: []byte("--")},
		"000002_add_index.down.sql":     {Data: []byte("--")},
		"000001_ledger_schema.up.sql":   {Data: []byte("--")},
		"000001_ledger_schema.down.sql": {Data: []byte("--")},
		"README.md":                     {Data: []byte("docs")},
		"embed.go":                      {Data: []byte("package migrations")},
		"subdir.up.sql/keep":            {Data: []byte("")},
	}

	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_ledger_schema", "000002_add_index"}, names)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	names, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListMigrations_Embedded(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	assert.Contains(t, names, "000001_ledger_schema")
}

func TestSource_Files(t *testing.T) {
	embedded := Source{FS: migrations.FS, Dir: "ignored"}
	assert.Equal(t, migrations.FS, embedded.Files())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_a.up.sql"), []byte("--"), 0o644))
	names, err := ListMigrations(Source{Dir: dir}.Files())
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_a"}, names)
}
