// Package release describes tracked glibc releases and the fixed catalog of them.
package release

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// tagPrefix is the git tag prefix used by the glibc repository.
const tagPrefix = "glibc-"

// Release identifies one glibc release. The zero Patch is omitted from the
// canonical form.
type Release struct {
	Major uint16
	Minor uint16
	Patch uint16
}

// New builds a Release from major, minor and an optional patch component.
func New(major, minor int, patch ...int) (Release, error) {
	if len(patch) > 1 {
		return Release{}, fmt.Errorf("invalid release: too many components")
	}
	parts := []int{major, minor}
	parts = append(parts, patch...)
	return fromInts(parts)
}

// MustNew is like New but panics on error. Used for static tables.
func MustNew(major, minor int, patch ...int) Release {
	r, err := New(major, minor, patch...)
	if err != nil {
		panic(err)
	}
	return r
}

func fromInts(parts []int) (Release, error) {
	var out [3]uint16
	for i, p := range parts {
		v, err := safecast.Conv[uint16](p)
		if err != nil {
			return Release{}, fmt.Errorf("invalid release component %d: %w", p, err)
		}
		out[i] = v
	}
	return Release{Major: out[0], Minor: out[1], Patch: out[2]}, nil
}

// Parse reads "2.17", "2.10.2" or the git tag form "glibc-2.17".
func Parse(s string) (Release, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), tagPrefix)
	fields := strings.Split(raw, ".")
	if len(fields) < 2 || len(fields) > 3 {
		return Release{}, fmt.Errorf("invalid release %q: expected major.minor[.patch]", s)
	}
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		if !isDigits(f) {
			return Release{}, fmt.Errorf("invalid release %q: bad component %q", s, f)
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return Release{}, fmt.Errorf("invalid release %q: bad component %q", s, f)
		}
		parts = append(parts, n)
	}
	r, err := fromInts(parts)
	if err != nil {
		return Release{}, fmt.Errorf("invalid release %q: %w", s, err)
	}
	return r, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String returns the canonical dotted form.
func (r Release) String() string {
	s := strconv.Itoa(int(r.Major)) + "." + strconv.Itoa(int(r.Minor))
	if r.Patch != 0 {
		s += "." + strconv.Itoa(int(r.Patch))
	}
	return s
}

// Tag returns the git tag of the release, e.g. "glibc-2.17".
func (r Release) Tag() string {
	return tagPrefix + r.String()
}

// Compare orders releases by (major, minor, patch).
func (r Release) Compare(other Release) int {
	if c := cmp.Compare(r.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(r.Minor, other.Minor); c != 0 {
		return c
	}
	return cmp.Compare(r.Patch, other.Patch)
}

// Less reports whether r sorts before other.
func (r Release) Less(other Release) bool { return r.Compare(other) < 0 }

// Range is a closed interval of releases.
type Range struct {
	From Release
	To   Release
}

// Between builds a closed range.
func Between(from, to Release) Range { return Range{From: from, To: to} }

// Contains reports whether From <= r <= To.
func (rg Range) Contains(r Release) bool {
	return rg.From.Compare(r) <= 0 && r.Compare(rg.To) <= 0
}

func (rg Range) String() string {
	return "[" + rg.From.String() + ", " + rg.To.String() + "]"
}
