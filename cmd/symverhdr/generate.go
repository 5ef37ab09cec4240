package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"symverhdr/internal/classify"
	"symverhdr/internal/config"
	"symverhdr/internal/extract"
	"symverhdr/internal/header"
	"symverhdr/internal/pipeline"
	"symverhdr/internal/provision"
	"symverhdr/internal/readelf"
	"symverhdr/internal/reconcile"
	"symverhdr/internal/release"
	"symverhdr/internal/symcache"
)

const subsetWarning = "warning: requesting specific versions may mean you miss out on defining missing symbols"

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build glibc releases and write one pinning header per release",
	Example: `  symverhdr generate
  symverhdr generate -v 2.17 -v 2.27 --arch x86
  symverhdr generate --install-root 2.17=/opt/glibc-2.17 -v 2.17`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

type generateOptions struct {
	versions      []string
	arch          string
	output        string
	jobs          int
	ui            string
	noCache       bool
	printCommands bool
	installRoots  []string
}

var genOpts generateOptions

func defineGenerateFlags() {
	f := generateCmd.Flags()
	f.StringArrayVarP(&genOpts.versions, "version", "v", nil, "generate only this glibc release (repeatable)")
	f.StringVarP(&genOpts.arch, "arch", "a", "x64", "processor architecture (x86|x64)")
	f.StringVar(&genOpts.output, "output", "", "output directory (default from config: version_headers)")
	f.IntVar(&genOpts.jobs, "jobs", 0, "releases processed in parallel (0 = GOMAXPROCS)")
	f.StringVar(&genOpts.ui, "ui", "auto", "progress UI (auto|on|off)")
	f.BoolVar(&genOpts.noCache, "no-cache", false, "do not read or write the symbol table cache")
	f.BoolVar(&genOpts.printCommands, "print-commands", false, "print external commands before running them")
	f.StringArrayVar(&genOpts.installRoots, "install-root", nil, "use a prebuilt install tree, as RELEASE=DIR (repeatable)")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg := current.cfg
	out := cmd.OutOrStdout()
	isQuiet := quiet(cmd)

	releases, err := release.ParseSelectors(genOpts.versions)
	if err != nil {
		return err
	}
	if len(genOpts.versions) > 0 {
		_, _ = color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), subsetWarning)
	}
	arch, err := provision.ParseArch(genOpts.arch)
	if err != nil {
		return err
	}
	useTUI, err := progressUI(genOpts.ui, isQuiet, out)
	if err != nil {
		return err
	}

	outputDir := cfg.OutputDir
	if genOpts.output != "" {
		if outputDir, err = filepath.Abs(genOpts.output); err != nil {
			return err
		}
	}

	// вывод сборки мешает TUI
	var buildOut io.Writer = out
	if useTUI || isQuiet {
		buildOut = io.Discard
	}
	prov, err := newProvisioner(cfg, genOpts.installRoots, buildOut)
	if err != nil {
		return err
	}

	req := &pipeline.Request{
		Releases:    releases,
		Arch:        arch,
		OutputDir:   outputDir,
		Provisioner: prov,
		Extractor:   newExtractor(cmd, cfg, genOpts.noCache),
		Synthesizer: header.New(classify.Default()),
		Jobs:        genOpts.jobs,
	}

	var res pipeline.Result
	if useTUI {
		names := make([]string, len(releases))
		for i, rel := range releases {
			names[i] = rel.String()
		}
		res, err = runPipelineWithUI(cmd.Context(), "generating "+arch.String()+" headers", names, req)
	} else {
		if !isQuiet {
			req.Progress = &textSink{out: out}
		}
		res, err = pipeline.Run(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	if !isQuiet {
		p := message.NewPrinter(language.English)
		_, _ = p.Fprintf(out, "wrote %d headers to %s (%d symbols tracked)\n", len(res.Files), res.Dir, len(res.Reconciled.Universe))
		printMissing(out, p, res.Reconciled)
	}
	if t, _ := cmd.Root().PersistentFlags().GetBool("timings"); t {
		printStageTimings(out, res.Timings)
	}
	return nil
}

// printMissing lists how many symbols each release pins to the error tag.
func printMissing(out io.Writer, p *message.Printer, rec reconcile.Result) {
	for _, rel := range rec.Releases() {
		_, _ = p.Fprintf(out, "  glibc %-8s %d missing\n", rel.String(), len(rec.MissingFor(rel)))
	}
}

func newProvisioner(cfg *config.Config, roots []string, buildOut io.Writer) (provision.Provisioner, error) {
	if len(roots) > 0 {
		static := provision.StaticProvisioner{Roots: make(map[release.Release]string, len(roots))}
		for _, arg := range roots {
			relStr, dir, ok := strings.Cut(arg, "=")
			if !ok || dir == "" {
				return nil, fmt.Errorf("invalid --install-root %q (expected RELEASE=DIR)", arg)
			}
			rel, err := release.Parse(relStr)
			if err != nil {
				return nil, fmt.Errorf("invalid --install-root %q: %w", arg, err)
			}
			static.Roots[rel] = dir
		}
		if err := provision.Preflight(nil, "readelf"); err != nil {
			return nil, err
		}
		return static, nil
	}

	if err := provision.Preflight(nil); err != nil {
		return nil, err
	}
	git := provision.NewGitProvisioner(cfg.WorkDir, provision.ExecRunner{Stdout: buildOut, PrintCommands: genOpts.printCommands})
	git.SourceURL = cfg.SourceURL
	git.PatchDir = cfg.PatchDir
	git.Jobs = cfg.Jobs
	return git, nil
}

func newExtractor(cmd *cobra.Command, cfg *config.Config, noCache bool) *extract.Extractor {
	ex := extract.New(readelf.New())
	ex.Rules = cfg.RelocationRules()
	if noCache {
		return ex
	}
	cache, err := symcache.Open(cfg.CacheDir)
	if err != nil {
		// без кэша тоже работаем
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: table cache disabled: %v\n", err)
		return ex
	}
	ex.Cache = cache
	return ex
}

// textSink prints one line per release milestone when the TUI is off.
type textSink struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *textSink) OnEvent(ev pipeline.Event) {
	var line string
	switch {
	case ev.Status == pipeline.StatusWorking && ev.Stage == pipeline.StageProvision:
		line = "generating data for version: " + ev.Release
	case ev.Status == pipeline.StatusDone && ev.Stage == pipeline.StageWrite && ev.Release != "":
		line = "writing header for version: " + ev.Release
	case ev.Status == pipeline.StatusError && ev.Release != "":
		line = fmt.Sprintf("%s failed for version: %s", ev.Stage, ev.Release)
	default:
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}
