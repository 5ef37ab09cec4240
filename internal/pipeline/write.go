package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"symverhdr/internal/header"
	"symverhdr/internal/provision"
	"symverhdr/internal/release"
)

// publish writes headers into a temporary sibling of <outputDir>/<arch> and
// swaps it into place. On error the previous directory is left untouched.
func publish(outputDir string, arch provision.Arch, releases []release.Release, headers []string) (dir string, files []string, err error) {
	dir = filepath.Join(outputDir, arch.String())
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", nil, &IOError{Op: "create", Path: outputDir, Err: err}
	}

	tmp, err := os.MkdirTemp(outputDir, "."+arch.String()+".tmp-*")
	if err != nil {
		return "", nil, &IOError{Op: "create", Path: outputDir, Err: err}
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(tmp)
		}
	}()
	if err := os.Chmod(tmp, 0o755); err != nil {
		return "", nil, &IOError{Op: "chmod", Path: tmp, Err: err}
	}

	for i, rel := range releases {
		name := header.FileName(rel)
		p := filepath.Join(tmp, name)
		if err := os.WriteFile(p, []byte(headers[i]), 0o644); err != nil { // #nosec G306 -- headers are public build inputs
			return "", nil, &IOError{Op: "write", Path: p, Err: err}
		}
		files = append(files, filepath.Join(dir, name))
	}

	old := ""
	if _, statErr := os.Stat(dir); statErr == nil {
		old = filepath.Join(outputDir, "."+arch.String()+".old-"+strconv.FormatInt(time.Now().UnixNano(), 36))
		if err := os.Rename(dir, old); err != nil {
			return "", nil, &IOError{Op: "replace", Path: dir, Err: err}
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return "", nil, &IOError{Op: "stat", Path: dir, Err: statErr}
	}

	if err := os.Rename(tmp, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return "", nil, &IOError{Op: "replace", Path: dir, Err: err}
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return dir, files, nil
}
