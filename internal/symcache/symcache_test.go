package symcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symverhdr/internal/symtab"
)

func TestPutGet(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	key := Sum("2.17", "x64", "lib/libc-2.17.so|1024|0")
	tbl := symtab.Table{"memcpy": "GLIBC_2.14", "puts": "GLIBC_2.2.5"}
	require.NoError(t, c.Put(key, "2.17", tbl))

	got, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tbl, got)
}

func TestGetMiss(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	got, ok, err := c.Get(Sum("nothing"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSumSeparatesParts(t *testing.T) {
	assert.NotEqual(t, Sum("ab", "c"), Sum("a", "bc"))
	assert.Equal(t, Sum("a", "b"), Sum("a", "b"))
}

func TestCorruptEntry(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	key := Sum("broken")
	p := c.pathFor(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("not zstd"), 0o600))

	_, ok, err := c.Get(key)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestDropAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := Open(dir)
	require.NoError(t, err)
	key := Sum("k")
	require.NoError(t, c.Put(key, "k", symtab.Table{"a": "GLIBC_2.5"}))

	require.NoError(t, c.DropAll())
	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.DirExists(t, dir)
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	require.NoError(t, c.Put(Sum("x"), "x", symtab.Table{}))
	_, ok, err := c.Get(Sum("x"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", c.Dir())
}

func TestDefaultDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := DefaultDir("symverhdr")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "symverhdr"), dir)
}
