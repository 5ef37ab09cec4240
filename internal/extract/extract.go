// Package extract builds a validated per-release symbol table from an
// installed glibc tree.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"symverhdr/internal/release"
	"symverhdr/internal/symcache"
	"symverhdr/internal/symtab"
	"symverhdr/internal/trace"
)

// Reader returns the default-versioned bindings exported by one artifact.
type Reader interface {
	Read(ctx context.Context, path string) ([]symtab.Binding, error)
}

// TableCache stores validated tables keyed by install tree fingerprint.
type TableCache interface {
	Get(key symcache.Digest) (symtab.Table, bool, error)
	Put(key symcache.Digest, label string, tbl symtab.Table) error
}

// DefaultDenylist names linker scripts that only forward to real objects.
// Reading them would report every forwarded symbol twice.
var DefaultDenylist = []string{"libc.so", "libm.so", "libpthread.so"}

// Artifact is one shared object found under an install root.
type Artifact struct {
	Path    string // absolute or root-joined path
	Rel     string // slash path relative to the root
	Size    int64
	ModTime int64 // unix nanoseconds
}

// Extractor turns install trees into symbol tables.
type Extractor struct {
	Reader   Reader
	Rules    []RelocationRule
	Denylist []string
	// Jobs bounds concurrent Reader calls; <= 0 means GOMAXPROCS.
	Jobs  int
	Cache TableCache
}

// New returns an Extractor with the built-in denylist and relocation rules.
func New(r Reader) *Extractor {
	return &Extractor{
		Reader:   r,
		Rules:    DefaultRelocationRules(),
		Denylist: DefaultDenylist,
	}
}

// ListArtifacts returns the *.so files under root, sorted by relative path,
// skipping denylisted base names.
func ListArtifacts(root string, denylist []string) ([]Artifact, error) {
	deny := make(map[string]struct{}, len(denylist))
	for _, d := range denylist {
		deny[d] = struct{}{}
	}

	var out []Artifact
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".so") {
			return nil
		}
		if _, skip := deny[d.Name()]; skip {
			return nil
		}
		// follow symlinks: readelf does
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, Artifact{
			Path:    path,
			Rel:     filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime().UnixNano(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rel < out[j].Rel })
	return out, nil
}

// Extract reads every artifact under root and returns the merged table for
// rel. Any disagreement between files fails with *symtab.ConflictError.
func (e *Extractor) Extract(ctx context.Context, root string, rel release.Release) (symtab.Table, error) {
	if e == nil || e.Reader == nil {
		return nil, errors.New("extract: no symbol reader configured")
	}
	ctx, span := trace.Start(ctx, trace.ScopeRelease, "extract:"+rel.String())

	artifacts, err := ListArtifacts(root, e.Denylist)
	if err != nil {
		span.End("scan failed")
		return nil, err
	}
	span.WithExtra("artifacts", strconv.Itoa(len(artifacts)))

	key := e.fingerprint(root, rel, artifacts)
	if e.Cache != nil {
		tbl, ok, err := e.Cache.Get(key)
		switch {
		case err != nil:
			// unreadable entry: extract again and overwrite it
			trace.Point(trace.FromContext(ctx), trace.ScopeRelease, "cache:get", err.Error(), span.ID())
		case ok:
			span.WithExtra("cache", "hit").End("")
			return tbl, nil
		}
	}

	tbl, err := e.ExtractArtifacts(ctx, artifacts, rel)
	if err != nil {
		span.End("failed")
		return nil, err
	}
	if e.Cache != nil {
		if err := e.Cache.Put(key, rel.String(), tbl); err != nil {
			trace.Point(trace.FromContext(ctx), trace.ScopeRelease, "cache:put", err.Error(), span.ID())
		}
	}
	span.WithExtra("symbols", strconv.Itoa(len(tbl))).End("")
	return tbl, nil
}

// ExtractArtifacts reads and merges an explicit artifact list. Reads run in
// parallel; merging follows slice order so the first committing file is
// deterministic for a given order.
func (e *Extractor) ExtractArtifacts(ctx context.Context, artifacts []Artifact, rel release.Release) (symtab.Table, error) {
	jobs := e.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	observed := make([][]symtab.Binding, len(artifacts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(artifacts))))
	for i, a := range artifacts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bindings, err := e.Reader.Read(gctx, a.Path)
			if err != nil {
				return fmt.Errorf("read symbols of %s: %w", a.Rel, err)
			}
			observed[i] = filterRelocated(e.Rules, rel, a.Rel, bindings)
			trace.Point(trace.FromContext(gctx), trace.ScopeArtifact, a.Rel,
				strconv.Itoa(len(observed[i]))+" bindings", trace.ParentID(gctx))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := symtab.NewBuilder()
	for i, a := range artifacts {
		b.Add(a.Rel, observed[i])
	}
	return b.Finish(rel.String())
}

func (e *Extractor) fingerprint(root string, rel release.Release, artifacts []Artifact) symcache.Digest {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	parts := []string{"root", root, "release", rel.String()}
	for _, r := range e.Rules {
		parts = append(parts, "rule", r.Prefix, r.Window.String(), strings.Join(r.Symbols, ","))
	}
	for _, a := range artifacts {
		parts = append(parts, a.Rel, strconv.FormatInt(a.Size, 10), strconv.FormatInt(a.ModTime, 10))
	}
	return symcache.Sum(parts...)
}
