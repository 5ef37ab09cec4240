// Package pipeline orchestrates header generation across releases.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"symverhdr/internal/header"
	"symverhdr/internal/provision"
	"symverhdr/internal/reconcile"
	"symverhdr/internal/release"
	"symverhdr/internal/symtab"
	"symverhdr/internal/trace"
)

// Extractor reads the validated symbol table of an install tree.
type Extractor interface {
	Extract(ctx context.Context, root string, rel release.Release) (symtab.Table, error)
}

// Request configures one generation run.
type Request struct {
	Releases    []release.Release
	Arch        provision.Arch
	OutputDir   string
	Provisioner provision.Provisioner
	Extractor   Extractor
	Synthesizer *header.Synthesizer
	// Jobs bounds concurrent releases; <= 0 means GOMAXPROCS.
	Jobs     int
	Progress ProgressSink
}

// Result describes a finished run.
type Result struct {
	// Dir is <OutputDir>/<Arch>.
	Dir        string
	Files      []string
	Reconciled reconcile.Result
	Timings    Timings
}

// Run provisions and extracts every release, reconciles the tables and
// publishes one header per release. Nothing is written unless every step
// succeeds for every release.
func Run(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if err := validate(req); err != nil {
		return result, err
	}

	ctx, span := trace.Start(ctx, trace.ScopeDriver, "generate:"+req.Arch.String())
	span.WithExtra("releases", strconv.Itoa(len(req.Releases)))
	defer span.End("")

	for _, rel := range req.Releases {
		emit(req.Progress, Event{Release: rel.String(), Stage: StageProvision, Status: StatusQueued})
	}

	tables, err := collect(ctx, req, &result.Timings)
	if err != nil {
		span.WithExtra("failed", "collect")
		return result, err
	}

	start := time.Now()
	emit(req.Progress, Event{Stage: StageReconcile, Status: StatusWorking})
	rec, err := reconcile.Reconcile(tables)
	if err != nil {
		emit(req.Progress, Event{Stage: StageReconcile, Status: StatusError, Err: err})
		return result, fmt.Errorf("reconcile: %w", err)
	}
	result.Reconciled = rec
	result.Timings.Set(StageReconcile, time.Since(start))
	emit(req.Progress, Event{Stage: StageReconcile, Status: StatusDone, Elapsed: time.Since(start)})
	trace.Point(trace.FromContext(ctx), trace.ScopeStage, "reconcile",
		strconv.Itoa(len(rec.Universe))+" symbols", trace.ParentID(ctx))

	start = time.Now()
	headers := synthesize(ctx, req, tables, rec)
	result.Timings.Set(StageSynthesize, time.Since(start))

	start = time.Now()
	emit(req.Progress, Event{Stage: StageWrite, Status: StatusWorking})
	dir, files, err := publish(req.OutputDir, req.Arch, req.Releases, headers)
	if err != nil {
		emit(req.Progress, Event{Stage: StageWrite, Status: StatusError, Err: err})
		return result, err
	}
	result.Dir = dir
	result.Files = files
	result.Timings.Set(StageWrite, time.Since(start))
	for _, rel := range req.Releases {
		emit(req.Progress, Event{Release: rel.String(), Stage: StageWrite, Status: StatusDone})
	}
	emit(req.Progress, Event{Stage: StageWrite, Status: StatusDone, Elapsed: time.Since(start)})
	return result, nil
}

func validate(req *Request) error {
	if req == nil {
		return errors.New("missing pipeline request")
	}
	if len(req.Releases) == 0 {
		return errors.New("no releases requested")
	}
	seen := make(map[release.Release]struct{}, len(req.Releases))
	for _, rel := range req.Releases {
		if _, dup := seen[rel]; dup {
			return fmt.Errorf("release %s requested twice", rel)
		}
		seen[rel] = struct{}{}
	}
	if _, err := provision.ParseArch(req.Arch.String()); err != nil || req.Arch == "" {
		return fmt.Errorf("invalid arch %q", req.Arch)
	}
	if req.OutputDir == "" {
		return errors.New("missing output directory")
	}
	if req.Provisioner == nil {
		return errors.New("missing provisioner")
	}
	if req.Extractor == nil {
		return errors.New("missing extractor")
	}
	if req.Synthesizer == nil {
		return errors.New("missing header synthesizer")
	}
	return nil
}

// collect runs provision and extract for every release. The first failure
// cancels the rest.
func collect(ctx context.Context, req *Request, timings *Timings) (map[release.Release]symtab.Table, error) {
	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	tables := make([]symtab.Table, len(req.Releases))
	var timingsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(req.Releases))))
	for i, rel := range req.Releases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name := rel.String()

			start := time.Now()
			emit(req.Progress, Event{Release: name, Stage: StageProvision, Status: StatusWorking})
			root, err := req.Provisioner.Provision(gctx, rel, req.Arch)
			if err != nil {
				emit(req.Progress, Event{Release: name, Stage: StageProvision, Status: StatusError, Err: err})
				return &StageError{Release: rel, Stage: StageProvision, Err: err}
			}
			provisioned := time.Since(start)
			emit(req.Progress, Event{Release: name, Stage: StageProvision, Status: StatusDone, Elapsed: provisioned})

			start = time.Now()
			emit(req.Progress, Event{Release: name, Stage: StageExtract, Status: StatusWorking})
			tbl, err := req.Extractor.Extract(gctx, root, rel)
			if err != nil {
				emit(req.Progress, Event{Release: name, Stage: StageExtract, Status: StatusError, Err: err})
				return &StageError{Release: rel, Stage: StageExtract, Err: err}
			}
			extracted := time.Since(start)
			emit(req.Progress, Event{Release: name, Stage: StageExtract, Status: StatusDone, Elapsed: extracted})

			timingsMu.Lock()
			timings.Add(StageProvision, provisioned)
			timings.Add(StageExtract, extracted)
			timingsMu.Unlock()

			tables[i] = tbl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[release.Release]symtab.Table, len(tables))
	for i, rel := range req.Releases {
		out[rel] = tables[i]
	}
	return out, nil
}

// synthesize renders every header. Rendering cannot fail.
func synthesize(ctx context.Context, req *Request, tables map[release.Release]symtab.Table, rec reconcile.Result) []string {
	headers := make([]string, len(req.Releases))
	var wg sync.WaitGroup
	for i, rel := range req.Releases {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			emit(req.Progress, Event{Release: rel.String(), Stage: StageSynthesize, Status: StatusWorking})
			headers[i] = req.Synthesizer.Render(tables[rel], rec.MissingFor(rel))
			emit(req.Progress, Event{Release: rel.String(), Stage: StageSynthesize, Status: StatusDone, Elapsed: time.Since(start)})
			trace.Point(trace.FromContext(ctx), trace.ScopeRelease, "synthesize:"+rel.String(),
				strconv.Itoa(len(headers[i]))+" bytes", trace.ParentID(ctx))
		}()
	}
	wg.Wait()
	return headers
}
