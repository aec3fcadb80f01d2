package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/", cfg.Shell.Cwd)
	assert.Equal(t, "> ", cfg.Shell.Prompt)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, filepath.Join(home, ".config", "pipeshell", "history.db"), cfg.History.Path)
	assert.Equal(t, 1000, cfg.History.Limit)
	assert.Equal(t, "127.0.0.1:7070", cfg.Observer.Addr)
	assert.Equal(t, "127.0.0.1:7071", cfg.Metrics.Addr)
}

func TestLoadDefaultFile(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".config", "pipeshell", "config.yaml"), `
shell:
  cwd: /srv
log:
  level: debug
history:
  path: ~/hist.db
`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv", cfg.Shell.Cwd)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join(home, "hist.db"), cfg.History.Path)
	assert.Equal(t, "console", cfg.Log.Format, "unset keys keep defaults")
}

func TestLoadExplicitFileAndEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "log:\n  format: json\nmetrics:\n  addr: :9100\n")

	t.Setenv("PIPESHELL_METRICS_ADDR", ":9200")
	t.Setenv("PIPESHELL_HISTORY_LIMIT", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9200", cfg.Metrics.Addr)
	assert.Equal(t, 5, cfg.History.Limit)
}

func TestLoadErrors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "log: [unclosed\n")
	_, err = Load(bad)
	assert.Error(t, err)

	tests := map[string]string{
		"level":  "log:\n  level: loud\n",
		"format": "log:\n  format: xml\n",
		"cwd":    "shell:\n  cwd: relative/dir\n",
		"limit":  "history:\n  limit: -1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(dir, name+".yaml")
			writeFile(t, p, content)
			_, err := Load(p)
			assert.Error(t, err)
		})
	}
}
