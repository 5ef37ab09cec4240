package release

import (
	"fmt"
	"slices"
	"strings"
)

// catalog is the hand-maintained list of supported releases, oldest first.
var catalog = []Release{
	MustNew(2, 5),
	MustNew(2, 5, 1),
	MustNew(2, 6),
	MustNew(2, 6, 1),
	MustNew(2, 7),
	MustNew(2, 8),
	MustNew(2, 9),
	MustNew(2, 10, 2),
	MustNew(2, 11, 3),
	MustNew(2, 12, 2),
	MustNew(2, 13),
	MustNew(2, 14),
	MustNew(2, 14, 1),
	MustNew(2, 15),
	MustNew(2, 16),
	MustNew(2, 17),
	MustNew(2, 18),
	MustNew(2, 19),
	MustNew(2, 20),
	MustNew(2, 21),
	MustNew(2, 22),
	MustNew(2, 23),
	MustNew(2, 24),
	MustNew(2, 25),
	MustNew(2, 26),
	MustNew(2, 27),
}

// Catalog returns a copy of the supported releases in ascending order.
func Catalog() []Release {
	return slices.Clone(catalog)
}

// InCatalog reports whether r is a supported release.
func InCatalog(r Release) bool {
	return slices.Contains(catalog, r)
}

// CatalogStrings returns the canonical names of all supported releases.
func CatalogStrings() []string {
	out := make([]string, len(catalog))
	for i, r := range catalog {
		out[i] = r.String()
	}
	return out
}

// ParseSelectors validates user supplied release selectors against the catalog.
// An empty selector list selects the whole catalog. The result is ordered as in
// the catalog and contains no duplicates.
func ParseSelectors(selectors []string) ([]Release, error) {
	if len(selectors) == 0 {
		return Catalog(), nil
	}
	picked := make(map[Release]struct{}, len(selectors))
	var unknown []string
	for _, sel := range selectors {
		r, err := Parse(sel)
		if err != nil {
			return nil, err
		}
		if !InCatalog(r) {
			unknown = append(unknown, sel)
			continue
		}
		picked[r] = struct{}{}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unsupported release(s) %s (choose from: %s)",
			strings.Join(unknown, ", "), strings.Join(CatalogStrings(), ", "))
	}
	out := make([]Release, 0, len(picked))
	for _, r := range catalog {
		if _, ok := picked[r]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Sort orders releases ascending in place.
func Sort(rs []Release) {
	slices.SortFunc(rs, Release.Compare)
}
