package release

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		input string
		want  Release
		str   string
	}{
		{"2.17", Release{2, 17, 0}, "2.17"},
		{"2.10.2", Release{2, 10, 2}, "2.10.2"},
		{"glibc-2.5.1", Release{2, 5, 1}, "2.5.1"},
		{" 2.27 ", Release{2, 27, 0}, "2.27"},
		{"2.14.0", Release{2, 14, 0}, "2.14"},
	}
	for _, tc := range cases {
		got, err := Parse(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.want, got, tc.input)
		assert.Equal(t, tc.str, got.String(), tc.input)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "2", "2.x", "2.1.2.3", "-1.2", "70000.1", "glibc-"} {
		_, err := Parse(input)
		assert.Error(t, err, "Parse(%q)", input)
	}
}

func TestParseRejectsSignsAndSpaces(t *testing.T) {
	for _, input := range []string{"2.+17", "2.-0", "+2.17", "2. 17", "2.17.", "2..17", "2.1\u0667"} {
		_, err := Parse(input)
		assert.Error(t, err, "Parse(%q)", input)
	}
}

func TestCompare(t *testing.T) {
	a := MustNew(2, 10, 2)
	b := MustNew(2, 11)
	c := MustNew(2, 11, 3)

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.Equal(t, 0, c.Compare(MustNew(2, 11, 3)))
	assert.Equal(t, 1, MustNew(3, 0).Compare(c))
	assert.Equal(t, MustNew(2, 14), MustNew(2, 14, 0))
}

func TestTag(t *testing.T) {
	assert.Equal(t, "glibc-2.12.2", MustNew(2, 12, 2).Tag())
	assert.Equal(t, "glibc-2.17", MustNew(2, 17).Tag())
}

func TestRangeContainsIsClosed(t *testing.T) {
	rg := Between(MustNew(2, 17), MustNew(2, 27))
	assert.False(t, rg.Contains(MustNew(2, 16)))
	assert.True(t, rg.Contains(MustNew(2, 17)))
	assert.True(t, rg.Contains(MustNew(2, 20)))
	assert.True(t, rg.Contains(MustNew(2, 27)))
	assert.False(t, rg.Contains(MustNew(2, 27, 1)))
	assert.False(t, rg.Contains(MustNew(2, 28)))
}

func TestCatalogIsSortedAndUnique(t *testing.T) {
	cat := Catalog()
	require.NotEmpty(t, cat)
	for i := 1; i < len(cat); i++ {
		if !cat[i-1].Less(cat[i]) {
			t.Fatalf("catalog not strictly ascending at %d: %s !< %s", i, cat[i-1], cat[i])
		}
	}
	cat[0] = MustNew(9, 9)
	assert.Equal(t, MustNew(2, 5), Catalog()[0], "Catalog must return a copy")
}

func TestParseSelectors(t *testing.T) {
	all, err := ParseSelectors(nil)
	require.NoError(t, err)
	assert.Equal(t, Catalog(), all)

	got, err := ParseSelectors([]string{"2.27", "2.5.1", "2.27", "glibc-2.17"})
	require.NoError(t, err)
	assert.Equal(t, []Release{MustNew(2, 5, 1), MustNew(2, 17), MustNew(2, 27)}, got)

	_, err = ParseSelectors([]string{"2.17", "2.28"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2.28")
}

func TestSort(t *testing.T) {
	rs := []Release{MustNew(2, 27), MustNew(2, 5), MustNew(2, 10, 2)}
	Sort(rs)
	assert.Equal(t, []Release{MustNew(2, 5), MustNew(2, 10, 2), MustNew(2, 27)}, rs)
}
