package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inkgraph.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "project", cfg.Project.Root)
	assert.Equal(t, ".trash", cfg.Project.TrashDir)
	assert.Equal(t, 1024, cfg.PageFile.DataSize)
	assert.Equal(t, 4096, cfg.Record.CompressOver)
	assert.Equal(t, 200, cfg.History.Depth)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.NoError(t, cfg.validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[project]
root = "/srv/anim"

[pagefile]
data_size = 256

[logging]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/anim", cfg.Project.Root)
	assert.Equal(t, ".trash", cfg.Project.TrashDir)
	assert.Equal(t, 256, cfg.PageFile.DataSize)
	assert.Equal(t, 4096, cfg.Record.CompressOver)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejects(t *testing.T) {
	for name, body := range map[string]string{
		"syntax":      "[project\nroot = 1",
		"empty root":  "[project]\nroot = \"\"",
		"empty trash": "[project]\ntrash_dir = \"\"",
		"tiny pages":  "[pagefile]\ndata_size = 8",
		"compress":    "[record]\ncompress_over = -1",
		"depth":       "[history]\ndepth = -5",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadOrDefault(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestZeroDataSizeAllowed(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[pagefile]\ndata_size = 0"))
	require.NoError(t, err)
	assert.Zero(t, cfg.PageFile.DataSize)
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, Path())
	t.Setenv(EnvPath, "/etc/inkgraph.toml")
	assert.Equal(t, "/etc/inkgraph.toml", Path())
}
