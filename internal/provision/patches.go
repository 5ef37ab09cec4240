package provision

import "symverhdr/internal/release"

// Patch is a source fix applied to releases inside Window.
type Patch struct {
	Name   string
	Window release.Range
}

func patch(name string, from, to release.Release) Patch {
	return Patch{Name: name, Window: release.Between(from, to)}
}

var mk = release.MustNew

// Patches apply on every architecture.
var Patches = []Patch{
	patch("extern_inline_addition.diff", mk(2, 5), mk(2, 5, 1)),
	patch("fix_obstack_compat.diff", mk(2, 5), mk(2, 17)),
	patch("no-pattern-rule-mixing.diff", mk(2, 5), mk(2, 10, 2)),
	patch("fix_linker_failure.diff", mk(2, 5), mk(2, 9)),
	patch("remove_ctors_dtors.diff", mk(2, 5), mk(2, 12, 2)),
	patch("fix_bad_version_checks_2.5.diff", mk(2, 5), mk(2, 6, 1)),
	patch("fix_bad_version_checks_2.9.diff", mk(2, 7), mk(2, 9)),
	patch("fix_bad_version_checks_2.10.diff", mk(2, 10), mk(2, 12, 2)),
	patch("fix_bad_version_checks.diff", mk(2, 13), mk(2, 18)),
	patch("hvsep-remove.diff", mk(2, 16), mk(2, 16)),
	patch("cvs-common-symbols.diff", mk(2, 23), mk(2, 25)),
}

// PatchesX86 apply only to 32-bit builds.
var PatchesX86 = []Patch{
	patch("unwind.diff", mk(2, 5), mk(2, 10, 2)),
}

// PatchesFor returns the patches to apply for rel on arch, in table order.
func PatchesFor(rel release.Release, arch Arch) []string {
	var out []string
	for _, p := range Patches {
		if p.Window.Contains(rel) {
			out = append(out, p.Name)
		}
	}
	if arch == ArchX86 {
		for _, p := range PatchesX86 {
			if p.Window.Contains(rel) {
				out = append(out, p.Name)
			}
		}
	}
	return out
}
