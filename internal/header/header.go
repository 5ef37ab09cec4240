// Package header renders force-link compatibility headers.
package header

import (
	"slices"
	"strings"

	"symverhdr/internal/classify"
	"symverhdr/internal/release"
	"symverhdr/internal/symtab"
)

const (
	// GuardMacro makes repeated inclusion a no-op.
	GuardMacro = "SET_GLIBC_LINK_VERSIONS_HEADER"
	// MissingTag never exists in any glibc release; linking a symbol pinned to
	// it fails with a message that names the problem.
	MissingTag = "GLIBC_WRAP_ERROR_SYMBOL_NOT_PRESENT_IN_REQUESTED_VERSION"
)

// FileName returns the header file name for rel.
func FileName(rel release.Release) string {
	return "force_link_glibc_" + rel.String() + ".h"
}

// Synthesizer renders headers using injected classification tables.
type Synthesizer struct {
	Classes classify.Tables
}

// New returns a Synthesizer over the given tables.
func New(classes classify.Tables) *Synthesizer {
	return &Synthesizer{Classes: classes}
}

// Render produces the header for one release: every available symbol pinned
// to its tag, then every missing symbol pinned to MissingTag, each phase in
// lexicographic order.
func (s *Synthesizer) Render(tbl symtab.Table, missing []string) string {
	lines := []string{
		"#if !defined(" + GuardMacro + ") && !defined(__ASSEMBLER__)",
		"#define " + GuardMacro,
	}

	for _, sym := range tbl.Names() {
		lines = append(lines, s.guarded(sym, symver(sym, tbl[sym])))
	}

	absent := slices.Clone(missing)
	slices.Sort(absent)
	absent = slices.Compact(absent)
	for _, sym := range absent {
		lines = append(lines, symver(sym, MissingTag))
	}

	lines = append(lines, "#endif", "")
	return strings.Join(lines, "\n")
}

// guarded wraps line in the conditional blocks the symbol's classifications
// require. _REENTRANT is innermost, _GLIBCXX_SHARED outermost.
func (s *Synthesizer) guarded(sym, line string) string {
	if s.Classes.NeedsReentrant(sym) {
		line = "#ifdef _REENTRANT\n" + line + "\n#endif"
	}
	if s.Classes.LibgccWeak.Has(sym) {
		line = "#ifndef IN_LIBGCC2\n" + line + "\n#endif"
	}
	if s.Classes.LibstdcxxWeak.Has(sym) {
		line = "#ifndef _GLIBCXX_SHARED\n" + line + "\n#endif"
	}
	return line
}

func symver(sym, tag string) string {
	return `__asm__(".symver ` + sym + `,` + sym + `@` + tag + `");`
}
