// Package readelf reads default-versioned dynamic symbols with binutils readelf.
package readelf

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"

	"symverhdr/internal/symtab"
)

// Program is the binary invoked by Reader.
const Program = "readelf"

// A symbol may be listed as name@VER for every compatibility version it
// carries, but exactly one name@@VER entry marks the default binding the
// static linker picks.
var defaultBinding = regexp.MustCompile(` ([^ ]*@@GLIBC_[0-9.]*)$`)

// Reader runs readelf -Ws on each artifact.
type Reader struct {
	// Path overrides the readelf binary, mostly for cross toolchains.
	Path string
}

// New returns a Reader that resolves readelf from PATH.
func New() *Reader { return &Reader{} }

// Read returns the default-versioned GLIBC bindings exported by path.
func (r *Reader) Read(ctx context.Context, path string) ([]symtab.Binding, error) {
	prog := Program
	if r != nil && r.Path != "" {
		prog = r.Path
	}
	// #nosec G204 -- artifact paths come from our own install tree
	cmd := exec.CommandContext(ctx, prog, "-Ws", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s -Ws %s: %w", prog, path, err)
		}
		return nil, fmt.Errorf("%s -Ws %s: %s", prog, path, msg)
	}
	bindings, err := Parse(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bindings, nil
}

// Parse extracts default-version bindings from readelf -Ws output.
func Parse(r io.Reader) ([]symtab.Binding, error) {
	var out []symtab.Binding
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		m := defaultBinding.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		b, err := symtab.ParseBinding(m[1])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
