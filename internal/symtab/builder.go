package symtab

import (
	"slices"
	"sort"
	"strings"
)

// ConflictRecord lists the files that disagree about one symbol's default tag.
// First is the file that committed the existing tag.
type ConflictRecord struct {
	Symbol string
	First  string
	Others []string
}

// Files returns every contributing file, First included.
func (c ConflictRecord) Files() []string {
	return append([]string{c.First}, c.Others...)
}

// ConflictError aggregates every conflict found for one release.
type ConflictError struct {
	Release   string
	Conflicts []ConflictRecord
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	b.WriteString("duplicate incompatible symbol versions found")
	if e.Release != "" {
		b.WriteString(" in ")
		b.WriteString(e.Release)
	}
	b.WriteString(":")
	for _, c := range e.Conflicts {
		b.WriteString("\n  ")
		b.WriteString(c.Symbol)
		b.WriteString(": ")
		b.WriteString(strings.Join(c.Files(), ", "))
	}
	return b.String()
}

// Symbols returns the conflicting symbol names in report order.
func (e *ConflictError) Symbols() []string {
	out := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		out[i] = c.Symbol
	}
	return out
}

// Builder merges bindings from several files into one Table, collecting
// conflicts instead of overwriting.
type Builder struct {
	syms      Table
	origin    map[string]string
	conflicts map[string]*ConflictRecord
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		syms:      make(Table),
		origin:    make(map[string]string),
		conflicts: make(map[string]*ConflictRecord),
	}
}

// Add merges the bindings observed in file.
func (b *Builder) Add(file string, bindings []Binding) {
	for _, bd := range bindings {
		existing, seen := b.syms[bd.Name]
		if !seen {
			b.syms[bd.Name] = bd.Tag
			b.origin[bd.Name] = file
			continue
		}
		if existing == bd.Tag {
			continue
		}
		rec, ok := b.conflicts[bd.Name]
		if !ok {
			b.conflicts[bd.Name] = &ConflictRecord{Symbol: bd.Name, First: b.origin[bd.Name], Others: []string{file}}
			continue
		}
		rec.Others = append(rec.Others, file)
	}
}

// Finish returns the merged table, or a *ConflictError naming every conflict.
// No table is returned when conflicts exist.
func (b *Builder) Finish(release string) (Table, error) {
	if len(b.conflicts) > 0 {
		recs := make([]ConflictRecord, 0, len(b.conflicts))
		for _, rec := range b.conflicts {
			r := *rec
			r.Others = slices.Clone(rec.Others)
			recs = append(recs, r)
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].Symbol < recs[j].Symbol })
		return nil, &ConflictError{Release: release, Conflicts: recs}
	}
	return b.syms.Clone(), nil
}
