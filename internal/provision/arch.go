package provision

import (
	"fmt"
	"strings"
)

// Arch selects the processor architecture glibc is built for.
type Arch string

const (
	// ArchX86 is 32-bit i686.
	ArchX86 Arch = "x86"
	// ArchX64 is x86-64.
	ArchX64 Arch = "x64"
)

// Arches lists the supported architectures.
var Arches = []Arch{ArchX86, ArchX64}

// ParseArch validates an --arch value.
func ParseArch(s string) (Arch, error) {
	switch Arch(strings.ToLower(strings.TrimSpace(s))) {
	case ArchX86:
		return ArchX86, nil
	case ArchX64, "":
		return ArchX64, nil
	default:
		return "", fmt.Errorf("unsupported arch %q (supported: x86, x64)", s)
	}
}

func (a Arch) String() string { return string(a) }
