package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symverhdr/internal/provision"
	"symverhdr/internal/release"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[paths]
work_dir = "work"
output_dir = "/abs/out"
cache_dir = "cache"

[source]
url = "https://example.invalid/glibc.git"

[build]
jobs = 3
`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := Discover(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FileName), cfg.Path)
	assert.Equal(t, filepath.Join(root, "work"), cfg.WorkDir)
	assert.Equal(t, "/abs/out", cfg.OutputDir)
	assert.Equal(t, filepath.Join(root, "work", "patches"), cfg.PatchDir)
	assert.Equal(t, filepath.Join(root, "cache"), cfg.CacheDir)
	assert.Equal(t, "https://example.invalid/glibc.git", cfg.SourceURL)
	assert.Equal(t, 3, cfg.Jobs)
}

func TestDefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	dir := t.TempDir()

	cfg, err := Discover(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, dir, cfg.WorkDir)
	assert.Equal(t, filepath.Join(dir, "version_headers"), cfg.OutputDir)
	assert.Equal(t, filepath.Join(dir, "patches"), cfg.PatchDir)
	assert.Equal(t, filepath.Join("/tmp/xdg-cache", AppName), cfg.CacheDir)
	assert.Equal(t, provision.DefaultSourceURL, cfg.SourceURL)
	assert.Len(t, cfg.RelocationRules(), 1)
}

func TestRelocationRules(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, `
[[relocation]]
prefix = "libanl"
from = "2.20"
to = "glibc-2.24"
symbols = ["getaddrinfo_a"]
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	rules := cfg.RelocationRules()
	require.Len(t, rules, 2)
	assert.Equal(t, "librt", rules[0].Prefix)
	assert.Equal(t, "libanl", rules[1].Prefix)
	assert.Equal(t, release.Between(release.MustNew(2, 20), release.MustNew(2, 24)), rules[1].Window)
	assert.True(t, rules[1].Applies(release.MustNew(2, 22), "lib/libanl-2.22.so"))
}

func TestInvalidConfigs(t *testing.T) {
	cases := map[string]string{
		"syntax":       `[paths`,
		"unknown key":  "[paths]\nwork = \"x\"\n",
		"negative":     "[build]\njobs = -1\n",
		"no prefix":    "[[relocation]]\nfrom = \"2.5\"\nto = \"2.6\"\nsymbols = [\"a\"]\n",
		"bad release":  "[[relocation]]\nprefix = \"librt\"\nfrom = \"two\"\nto = \"2.6\"\nsymbols = [\"a\"]\n",
		"empty window": "[[relocation]]\nprefix = \"librt\"\nfrom = \"2.9\"\nto = \"2.6\"\nsymbols = [\"a\"]\n",
		"no symbols":   "[[relocation]]\nprefix = \"librt\"\nfrom = \"2.5\"\nto = \"2.6\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := writeConfig(t, t.TempDir(), body)
			_, err := Load(p)
			assert.Error(t, err)
		})
	}
}

func TestNilConfigRules(t *testing.T) {
	var c *Config
	assert.Len(t, c.RelocationRules(), 1)
}
