package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestrow/internal/querysql"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nestrow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("driver", "", "")
	fs.String("dsn", "", "")
	fs.String("field-case", "", "")
	fs.String("column-case", "", "")
	fs.String("format", "text", "")
	fs.BoolP("verbose", "v", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Driver)
	assert.Equal(t, ":memory:", cfg.DSN)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, querysql.Dollar, cfg.PlaceholderStyle())
	assert.False(t, cfg.Verbose)
	assert.Empty(t, cfg.File)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
driver: pgx
dsn: postgres://file/db
field_case: camel
column_case: snake
format: json
`)

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "pgx", cfg.Driver)
		assert.Equal(t, "postgres://file/db", cfg.DSN)
		assert.Equal(t, "json", cfg.Format)
		assert.Equal(t, path, cfg.File)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("NESTROW_DSN", "postgres://env/db")
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "postgres://env/db", cfg.DSN)
		assert.Equal(t, "pgx", cfg.Driver)
	})

	t.Run("flags override env", func(t *testing.T) {
		t.Setenv("NESTROW_DSN", "postgres://env/db")
		fs := newFlags()
		require.NoError(t, fs.Parse([]string{"--dsn", "postgres://flag/db", "--column-case", "pascal"}))

		cfg, err := Load(path, fs)
		require.NoError(t, err)
		assert.Equal(t, "postgres://flag/db", cfg.DSN)
		assert.Equal(t, "pascal", cfg.ColumnCase)
		assert.Equal(t, "json", cfg.Format, "unset flags keep file values")
	})
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("placeholder: question\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultFile, cfg.File)
	assert.Equal(t, querysql.Question, cfg.PlaceholderStyle())
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"driver", "driver: mysql\n", "unknown driver"},
		{"format", "format: xml\n", "unknown format"},
		{"placeholder", "placeholder: colon\n", "placeholder"},
		{"case", "field_case: camel\ncolumn_case: kebab\n", "column_case"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestCaseTransform(t *testing.T) {
	cfg := &Config{FieldCase: "camel", ColumnCase: "snake"}
	f, err := cfg.CaseTransform()
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "some_col", f("someCol"))

	same := &Config{FieldCase: "snake", ColumnCase: "snake"}
	f, err = same.CaseTransform()
	require.NoError(t, err)
	assert.Nil(t, f)

	opts, err := cfg.StoreOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}
