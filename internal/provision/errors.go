package provision

import (
	"fmt"
	"strings"

	"symverhdr/internal/release"
)

// PreflightError reports required programs that are not on PATH.
type PreflightError struct {
	Missing []string
}

func (e *PreflightError) Error() string {
	return "missing programs: " + strings.Join(e.Missing, ", ") + ", please install via your os package manager"
}

// Failure reports a failed build or install of one release.
type Failure struct {
	Release release.Release
	Arch    Arch
	Step    string
	Err     error
}

func (e *Failure) Error() string {
	return fmt.Sprintf("provision %s (%s): %s: %v", e.Release.Tag(), e.Arch, e.Step, e.Err)
}

func (e *Failure) Unwrap() error { return e.Err }

func fail(rel release.Release, arch Arch, step string, err error) error {
	return &Failure{Release: rel, Arch: arch, Step: step, Err: err}
}
