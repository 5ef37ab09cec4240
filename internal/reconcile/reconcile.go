// Package reconcile computes the symbol universe across releases and what
// each release is missing from it.
package reconcile

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
	"github.com/RoaringBitmap/roaring/v2"

	"symverhdr/internal/release"
	"symverhdr/internal/symtab"
)

// Result is the outcome of one reconciliation.
type Result struct {
	// Universe is every symbol name seen in any table, sorted.
	Universe []string
	// Missing maps each release to Universe minus its own table, sorted.
	Missing map[release.Release][]string
}

// MissingFor returns the missing set of r (nil when r has none or is unknown).
func (r Result) MissingFor(rel release.Release) []string {
	return r.Missing[rel]
}

// Releases returns the reconciled releases in ascending order.
func (r Result) Releases() []release.Release {
	out := make([]release.Release, 0, len(r.Missing))
	for rel := range r.Missing {
		out = append(out, rel)
	}
	release.Sort(out)
	return out
}

// Reconcile is a pure function of its input. Symbol names are interned to
// dense IDs in sorted order so bitmap iteration yields sorted names.
func Reconcile(tables map[release.Release]symtab.Table) (Result, error) {
	seen := make(map[string]struct{})
	for _, tbl := range tables {
		for name := range tbl {
			seen[name] = struct{}{}
		}
	}
	universe := make([]string, 0, len(seen))
	for name := range seen {
		universe = append(universe, name)
	}
	slices.Sort(universe)

	ids := make(map[string]uint32, len(universe))
	for i, name := range universe {
		id, err := safecast.Conv[uint32](i)
		if err != nil {
			return Result{}, fmt.Errorf("symbol universe too large: %w", err)
		}
		ids[name] = id
	}

	present := make(map[release.Release]*roaring.Bitmap, len(tables))
	all := make([]*roaring.Bitmap, 0, len(tables))
	for rel, tbl := range tables {
		bm := roaring.New()
		for name := range tbl {
			bm.Add(ids[name])
		}
		present[rel] = bm
		all = append(all, bm)
	}
	full := roaring.FastOr(all...)

	res := Result{
		Universe: universe,
		Missing:  make(map[release.Release][]string, len(tables)),
	}
	for rel, bm := range present {
		diff := roaring.AndNot(full, bm)
		names := make([]string, 0, diff.GetCardinality())
		for _, id := range diff.ToArray() {
			names = append(names, universe[id])
		}
		res.Missing[rel] = names
	}
	return res, nil
}
