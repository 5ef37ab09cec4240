package provision

import "os/exec"

// RequiredPrograms must be available to build glibc and read its symbols.
var RequiredPrograms = []string{"gcc", "make", "git", "readelf", "grep", "gawk", "bison", "msgfmt", "makeinfo", "autoconf"}

// Preflight checks that every program is resolvable. lookPath defaults to
// exec.LookPath. All missing programs are reported at once.
func Preflight(lookPath func(string) (string, error), programs ...string) error {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if len(programs) == 0 {
		programs = RequiredPrograms
	}
	var missing []string
	for _, p := range programs {
		if _, err := lookPath(p); err != nil {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &PreflightError{Missing: missing}
	}
	return nil
}
