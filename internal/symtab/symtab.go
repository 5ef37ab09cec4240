// Package symtab holds per-release symbol to version-tag tables.
package symtab

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// TagPrefix starts every glibc symbol version tag.
const TagPrefix = "GLIBC_"

// Binding is one default-versioned symbol observed in an artifact file.
type Binding struct {
	Name string
	Tag  string
}

// ParseBinding splits a readelf style "name@@TAG" token.
func ParseBinding(token string) (Binding, error) {
	name, tag, ok := strings.Cut(token, "@@")
	if !ok || name == "" || tag == "" {
		return Binding{}, fmt.Errorf("malformed default-version binding %q", token)
	}
	if !ValidTag(tag) {
		return Binding{}, fmt.Errorf("malformed version tag %q in %q", tag, token)
	}
	return Binding{Name: name, Tag: tag}, nil
}

// ValidTag reports whether tag has the form GLIBC_<dotted-number>.
func ValidTag(tag string) bool {
	rest, ok := strings.CutPrefix(tag, TagPrefix)
	if !ok || rest == "" {
		return false
	}
	prevDot := true
	for _, c := range rest {
		switch {
		case c == '.':
			if prevDot {
				return false
			}
			prevDot = true
		case c >= '0' && c <= '9':
			prevDot = false
		default:
			return false
		}
	}
	return !prevDot
}

// Table maps symbol names to their default version tag.
type Table map[string]string

// Names returns the sorted symbol names.
func (t Table) Names() []string {
	return slices.Sorted(maps.Keys(t))
}

// Has reports whether the table defines sym.
func (t Table) Has(sym string) bool {
	_, ok := t[sym]
	return ok
}

// Clone returns an independent copy.
func (t Table) Clone() Table {
	return maps.Clone(t)
}
