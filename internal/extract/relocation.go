package extract

import (
	"path/filepath"
	"strings"

	"symverhdr/internal/release"
	"symverhdr/internal/symtab"
)

// RelocationRule drops forwarding copies of symbols that moved between two
// libraries. Inside Window, bindings for Symbols found in files whose base name
// starts with Prefix are ignored.
type RelocationRule struct {
	Prefix  string
	Window  release.Range
	Symbols []string
}

// DefaultRelocationRules returns the built-in rules.
//
// The clock_* functions moved from librt into libc; librt kept them at an
// older tag for backward compatibility (see rt/Versions in glibc).
func DefaultRelocationRules() []RelocationRule {
	return []RelocationRule{
		{
			Prefix: "librt",
			Window: release.Between(release.MustNew(2, 17), release.MustNew(2, 27)),
			Symbols: []string{
				"clock_getcpuclockid",
				"clock_nanosleep",
				"clock_getres",
				"clock_settime",
				"clock_gettime",
			},
		},
	}
}

// Applies reports whether the rule filters file for rel.
func (r RelocationRule) Applies(rel release.Release, file string) bool {
	return r.Window.Contains(rel) && strings.HasPrefix(filepath.Base(file), r.Prefix)
}

func (r RelocationRule) covers(sym string) bool {
	for _, s := range r.Symbols {
		if s == sym {
			return true
		}
	}
	return false
}

// filterRelocated removes bindings hidden by any applicable rule.
func filterRelocated(rules []RelocationRule, rel release.Release, file string, bindings []symtab.Binding) []symtab.Binding {
	var active []RelocationRule
	for _, r := range rules {
		if r.Applies(rel, file) {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return bindings
	}
	kept := make([]symtab.Binding, 0, len(bindings))
outer:
	for _, b := range bindings {
		for _, r := range active {
			if r.covers(b.Name) {
				continue outer
			}
		}
		kept = append(kept, b)
	}
	return kept
}
