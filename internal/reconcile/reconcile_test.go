package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symverhdr/internal/release"
	"symverhdr/internal/symtab"
)

var (
	relA = release.MustNew(2, 5)
	relB = release.MustNew(2, 6)
	relC = release.MustNew(2, 17)
)

func TestReconcileExample(t *testing.T) {
	res, err := Reconcile(map[release.Release]symtab.Table{
		relA: {"foo": "GLIBC_2.5"},
		relB: {"foo": "GLIBC_2.5", "bar": "GLIBC_2.6"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "foo"}, res.Universe)
	assert.Equal(t, []string{"bar"}, res.MissingFor(relA))
	assert.Empty(t, res.MissingFor(relB))
	assert.Equal(t, []release.Release{relA, relB}, res.Releases())
}

func TestPartitionProperty(t *testing.T) {
	tables := map[release.Release]symtab.Table{
		relA: {"a": "GLIBC_2.5", "b": "GLIBC_2.5"},
		relB: {"b": "GLIBC_2.5", "c": "GLIBC_2.6", "d": "GLIBC_2.6"},
		relC: {"e": "GLIBC_2.17"},
	}
	res, err := Reconcile(tables)
	require.NoError(t, err)

	for rel, tbl := range tables {
		missing := res.MissingFor(rel)
		union := make(map[string]struct{})
		for _, m := range missing {
			assert.False(t, tbl.Has(m), "%s: %s both present and missing", rel, m)
			union[m] = struct{}{}
		}
		for name := range tbl {
			union[name] = struct{}{}
		}
		assert.Len(t, union, len(res.Universe), rel.String())
		for _, u := range res.Universe {
			assert.Contains(t, union, u)
		}
	}
}

func TestMonotonicUniverse(t *testing.T) {
	tables := map[release.Release]symtab.Table{
		relA: {"a": "GLIBC_2.5"},
		relB: {"b": "GLIBC_2.6"},
	}
	small, err := Reconcile(tables)
	require.NoError(t, err)

	tables[relC] = symtab.Table{"a": "GLIBC_2.5", "z": "GLIBC_2.17"}
	big, err := Reconcile(tables)
	require.NoError(t, err)

	assert.Subset(t, big.Universe, small.Universe)
	assert.GreaterOrEqual(t, len(big.Universe), len(small.Universe))
	assert.Subset(t, big.MissingFor(relA), small.MissingFor(relA))
}

func TestDeterministic(t *testing.T) {
	tables := map[release.Release]symtab.Table{
		relA: {"x": "GLIBC_2.5", "m": "GLIBC_2.5"},
		relB: {"a": "GLIBC_2.6", "z": "GLIBC_2.6"},
		relC: {"m": "GLIBC_2.17"},
	}
	first, err := Reconcile(tables)
	require.NoError(t, err)
	for range 20 {
		again, err := Reconcile(tables)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []string{"a", "x", "z"}, first.MissingFor(relC))
}

func TestEmpty(t *testing.T) {
	res, err := Reconcile(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Universe)
	assert.Empty(t, res.Missing)
}
