package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symverhdr/internal/release"
	"symverhdr/internal/symcache"
	"symverhdr/internal/symtab"
	"symverhdr/internal/trace"
)

// fakeReader serves bindings keyed by artifact base name.
type fakeReader struct {
	byName map[string][]symtab.Binding
	calls  atomic.Int32
	fail   string
}

func (f *fakeReader) Read(_ context.Context, path string) ([]symtab.Binding, error) {
	f.calls.Add(1)
	base := filepath.Base(path)
	if base == f.fail {
		return nil, fmt.Errorf("boom")
	}
	return f.byName[base], nil
}

func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o600))
	}
	return root
}

func clockReader() *fakeReader {
	return &fakeReader{byName: map[string][]symtab.Binding{
		"libc-2.17.so": {
			{Name: "clock_gettime", Tag: "GLIBC_2.17"},
			{Name: "memcpy", Tag: "GLIBC_2.14"},
		},
		"librt-2.17.so": {
			{Name: "clock_gettime", Tag: "GLIBC_2.2.5"},
			{Name: "shm_open", Tag: "GLIBC_2.2.5"},
		},
	}}
}

func TestListArtifactsSkipsDenylistAndNonSO(t *testing.T) {
	root := writeTree(t,
		"lib/libc-2.17.so",
		"lib/libc.so.6",
		"usr/lib/libc.so",
		"usr/lib/libm.so",
		"usr/lib/libpthread.so",
		"lib/librt-2.17.so",
		"usr/lib/libc_nonshared.a",
	)
	require.NoError(t, os.Symlink("../../lib/librt-2.17.so", filepath.Join(root, "usr/lib/librt.so")))

	arts, err := ListArtifacts(root, DefaultDenylist)
	require.NoError(t, err)

	var rels []string
	for _, a := range arts {
		rels = append(rels, a.Rel)
	}
	assert.Equal(t, []string{"lib/libc-2.17.so", "lib/librt-2.17.so", "usr/lib/librt.so"}, rels)
}

func TestExtractMergesTable(t *testing.T) {
	root := writeTree(t, "lib/libc-2.17.so", "lib/librt-2.17.so")
	e := New(clockReader())

	tbl, err := e.Extract(context.Background(), root, release.MustNew(2, 17))
	require.NoError(t, err)
	assert.Equal(t, symtab.Table{
		"clock_gettime": "GLIBC_2.17",
		"memcpy":        "GLIBC_2.14",
		"shm_open":      "GLIBC_2.2.5",
	}, tbl)
}

func TestRelocationWindowBoundaries(t *testing.T) {
	root := writeTree(t, "lib/libc-2.17.so", "lib/librt-2.17.so")
	cases := []struct {
		rel      release.Release
		conflict bool
	}{
		{release.MustNew(2, 16), true},
		{release.MustNew(2, 17), false},
		{release.MustNew(2, 22), false},
		{release.MustNew(2, 27), false},
		{release.MustNew(2, 28), true},
	}
	for _, tc := range cases {
		e := New(clockReader())
		_, err := e.Extract(context.Background(), root, tc.rel)
		if !tc.conflict {
			assert.NoError(t, err, tc.rel.String())
			continue
		}
		var ce *symtab.ConflictError
		require.True(t, errors.As(err, &ce), "%s: expected conflict, got %v", tc.rel, err)
		assert.Equal(t, []string{"clock_gettime"}, ce.Symbols())
		assert.Equal(t, []string{"lib/libc-2.17.so", "lib/librt-2.17.so"}, ce.Conflicts[0].Files())
	}
}

func TestRelocationOnlyHitsPrefixedFiles(t *testing.T) {
	rule := DefaultRelocationRules()[0]
	rel := release.MustNew(2, 20)
	assert.True(t, rule.Applies(rel, "lib/librt-2.20.so"))
	assert.False(t, rule.Applies(rel, "lib/libc-2.20.so"))

	in := []symtab.Binding{{Name: "clock_gettime", Tag: "GLIBC_2.2"}, {Name: "timer_create", Tag: "GLIBC_2.3.3"}}
	got := filterRelocated([]RelocationRule{rule}, rel, "lib/libc-2.20.so", in)
	assert.Equal(t, in, got)
	got = filterRelocated([]RelocationRule{rule}, rel, "lib/librt-2.20.so", in)
	assert.Equal(t, []symtab.Binding{{Name: "timer_create", Tag: "GLIBC_2.3.3"}}, got)
}

func TestConflictEnumeratesBothFiles(t *testing.T) {
	root := writeTree(t, "lib/liba.so", "lib/libb.so")
	r := &fakeReader{byName: map[string][]symtab.Binding{
		"liba.so": {{Name: "foo", Tag: "GLIBC_2.5"}},
		"libb.so": {{Name: "foo", Tag: "GLIBC_2.6"}},
	}}
	tbl, err := New(r).Extract(context.Background(), root, release.MustNew(2, 10, 2))
	assert.Nil(t, tbl)

	var ce *symtab.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "2.10.2", ce.Release)
	assert.Contains(t, err.Error(), "lib/liba.so")
	assert.Contains(t, err.Error(), "lib/libb.so")
}

func TestScanOrderDoesNotChangeTable(t *testing.T) {
	r := &fakeReader{byName: map[string][]symtab.Binding{
		"a.so": {{Name: "zeta", Tag: "GLIBC_2.5"}, {Name: "alpha", Tag: "GLIBC_2.5"}},
		"b.so": {{Name: "mid", Tag: "GLIBC_2.6"}, {Name: "alpha", Tag: "GLIBC_2.5"}},
		"c.so": {{Name: "beta", Tag: "GLIBC_2.7"}},
	}}
	arts := []Artifact{{Path: "a.so", Rel: "a.so"}, {Path: "b.so", Rel: "b.so"}, {Path: "c.so", Rel: "c.so"}}
	reversed := []Artifact{arts[2], arts[1], arts[0]}

	e := New(r)
	rel := release.MustNew(2, 12, 2)
	first, err := e.ExtractArtifacts(context.Background(), arts, rel)
	require.NoError(t, err)
	second, err := e.ExtractArtifacts(context.Background(), reversed, rel)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"alpha", "beta", "mid", "zeta"}, first.Names())
}

func TestReaderFailureAborts(t *testing.T) {
	root := writeTree(t, "lib/libc-2.17.so", "lib/librt-2.17.so")
	r := clockReader()
	r.fail = "librt-2.17.so"
	_, err := New(r).Extract(context.Background(), root, release.MustNew(2, 17))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lib/librt-2.17.so")
}

func TestExtractUsesCache(t *testing.T) {
	root := writeTree(t, "lib/libc-2.17.so", "lib/librt-2.17.so")
	cache, err := symcache.Open(t.TempDir())
	require.NoError(t, err)

	r := clockReader()
	e := New(r)
	e.Cache = cache
	rel := release.MustNew(2, 17)

	first, err := e.Extract(context.Background(), root, rel)
	require.NoError(t, err)
	calls := r.calls.Load()
	require.Equal(t, int32(2), calls)

	second, err := e.Extract(context.Background(), root, rel)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, r.calls.Load(), "second extraction must be served from cache")

	// a different release is a different fingerprint
	_, err = e.Extract(context.Background(), root, release.MustNew(2, 18))
	require.NoError(t, err)
	assert.Equal(t, calls*2, r.calls.Load())
}

// brokenCache fails every read and remembers what was written back.
type brokenCache struct {
	puts int
}

func (c *brokenCache) Get(symcache.Digest) (symtab.Table, bool, error) {
	return nil, false, errors.New("zstd: invalid header")
}

func (c *brokenCache) Put(symcache.Digest, string, symtab.Table) error {
	c.puts++
	return nil
}

func TestUnreadableCacheEntryIsReextractedAndTraced(t *testing.T) {
	root := writeTree(t, "lib/libc-2.17.so", "lib/librt-2.17.so")
	r := clockReader()
	cache := &brokenCache{}
	e := New(r)
	e.Cache = cache

	ring := trace.NewRingTracer(64, trace.LevelDetail)
	ctx := trace.WithTracer(context.Background(), ring)

	tbl, err := e.Extract(ctx, root, release.MustNew(2, 17))
	require.NoError(t, err)
	assert.Equal(t, "GLIBC_2.17", tbl["clock_gettime"])
	assert.Equal(t, int32(2), r.calls.Load())
	assert.Equal(t, 1, cache.puts, "fresh table must replace the unreadable entry")

	var found bool
	for _, ev := range ring.Snapshot() {
		if ev.Name == "cache:get" {
			found = true
			assert.Contains(t, ev.Detail, "invalid header")
		}
	}
	assert.True(t, found, "cache read failure must be traced")
}

func TestConflictsAreNotCached(t *testing.T) {
	root := writeTree(t, "lib/libc-2.17.so", "lib/librt-2.17.so")
	cache, err := symcache.Open(t.TempDir())
	require.NoError(t, err)
	e := New(clockReader())
	e.Cache = cache

	rel := release.MustNew(2, 28)
	_, err = e.Extract(context.Background(), root, rel)
	require.Error(t, err)
	_, err = e.Extract(context.Background(), root, rel)
	require.Error(t, err)
}

func TestNoReader(t *testing.T) {
	_, err := (&Extractor{}).Extract(context.Background(), t.TempDir(), release.MustNew(2, 17))
	assert.Error(t, err)
}
