package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func noEnv(string) string { return "" }

func TestLoadFromArgs_Defaults(t *testing.T) {
	cfg, err := LoadFromArgs(newFlagSet(), noEnv, nil)
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "fra_perfumes.csv", cfg.ReferenceCSV)
	assert.Equal(t, "fra_cleaned.csv", cfg.PrimaryCSV)
	assert.Equal(t, ",", cfg.ReferenceDelimiter)
	assert.Equal(t, ";", cfg.PrimaryDelimiter)
	assert.Equal(t, 0, cfg.MaxRows)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, 1000, cfg.ProgressEvery)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "perfumes", cfg.Table)
	assert.True(t, cfg.CreateTable)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, "none", cfg.MetricsBackend)
	assert.Equal(t, "catalog_seed", cfg.Job)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.ValidateOnly)

	assert.Empty(t, Validate(cfg), "defaults must validate cleanly")
}

func TestLoadFromArgs_EnvSeedsAndFlagsOverride(t *testing.T) {
	env := map[string]string{
		"DB_DRIVER":    "mssql",
		"DB_DSN":       "sqlserver://u:p@h:1433?database=d",
		"BATCH_SIZE":   "12",
		"MAX_ROWS":     "not-a-number",
		"CREATE_TABLE": "off",
		"DATA_DIR":     "/srv/in",
	}
	getenv := func(k string) string { return env[k] }

	cfg, err := LoadFromArgs(newFlagSet(), getenv, []string{"-batch_size=3", "-dry_run", "-validate"})
	require.NoError(t, err)

	assert.Equal(t, "mssql", cfg.DBDriver)
	assert.Equal(t, "sqlserver://u:p@h:1433?database=d", cfg.DSN)
	assert.Equal(t, 3, cfg.BatchSize, "flag beats env")
	assert.Equal(t, 0, cfg.MaxRows, "invalid env falls back to default")
	assert.False(t, cfg.CreateTable)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.ValidateOnly)
	assert.Equal(t, "/srv/in", cfg.DataDir)
}

func TestLoadFromArgs_UnknownFlag(t *testing.T) {
	_, err := LoadFromArgs(newFlagSet(), noEnv, []string{"-nope"})
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	cfg := &Config{DataDir: "data", ReferenceCSV: "ref.csv", PrimaryCSV: "/abs/primary.csv"}
	assert.Equal(t, filepath.Join("data", "ref.csv"), cfg.ReferencePath())
	assert.Equal(t, "/abs/primary.csv", cfg.PrimaryPath())
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "True", "YES", "On"} {
		assert.True(t, parseBool(v, false), v)
	}
	for _, v := range []string{"0", "false", "False", "no", "OFF"} {
		assert.False(t, parseBool(v, true), v)
	}
	assert.True(t, parseBool("", true))
	assert.False(t, parseBool("maybe", false))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	const key = "CATALOG_TEST_DOTENV_KEY"
	t.Setenv(key, "")
	os.Unsetenv(key)

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv(key))

	// A directory opens fine but cannot be read as a file.
	assert.Error(t, LoadDotEnv(dir))
}

func TestLoadDotEnv_DoesNotOverrideExisting(t *testing.T) {
	const key = "CATALOG_TEST_DOTENV_KEEP"
	t.Setenv(key, "from-shell")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-shell", os.Getenv(key))
}
