// Package provision builds and installs glibc releases for symbol extraction.
package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"symverhdr/internal/release"
	"symverhdr/internal/trace"
)

// DefaultSourceURL is the upstream glibc repository.
const DefaultSourceURL = "git://sourceware.org/git/glibc.git"

// stampName marks an install dir whose build finished.
const stampName = "build_succeeded"

// Provisioner returns the root of an installed glibc tree for a release.
type Provisioner interface {
	Provision(ctx context.Context, rel release.Release, arch Arch) (string, error)
}

// GitProvisioner clones glibc once and builds each release into its own
// install directory under WorkDir/builds/<arch>/<release>. Finished builds are
// reused.
type GitProvisioner struct {
	WorkDir   string
	SourceURL string
	PatchDir  string
	// Jobs is the make parallelism; <= 0 means runtime.NumCPU().
	Jobs   int
	Runner Runner

	mu sync.Mutex
}

// NewGitProvisioner returns a provisioner rooted at workDir.
func NewGitProvisioner(workDir string, runner Runner) *GitProvisioner {
	return &GitProvisioner{
		WorkDir:   workDir,
		SourceURL: DefaultSourceURL,
		PatchDir:  filepath.Join(workDir, "patches"),
		Runner:    runner,
	}
}

// SourceDir is the shared glibc checkout.
func (p *GitProvisioner) SourceDir() string { return filepath.Join(p.WorkDir, "glibc") }

// BuildsDir holds every build and install tree.
func (p *GitProvisioner) BuildsDir() string { return filepath.Join(p.WorkDir, "builds") }

func (p *GitProvisioner) releaseDir(rel release.Release, arch Arch) string {
	return filepath.Join(p.BuildsDir(), string(arch), rel.String())
}

// InstallDir is where rel is installed for arch.
func (p *GitProvisioner) InstallDir(rel release.Release, arch Arch) string {
	return filepath.Join(p.releaseDir(rel, arch), "install")
}

// BuildDir is the out-of-tree build directory of rel for arch.
func (p *GitProvisioner) BuildDir(rel release.Release, arch Arch) string {
	return filepath.Join(p.releaseDir(rel, arch), "build")
}

// Built reports whether a finished install exists.
func (p *GitProvisioner) Built(rel release.Release, arch Arch) bool {
	_, err := os.Stat(filepath.Join(p.InstallDir(rel, arch), stampName))
	return err == nil
}

// Provision builds rel for arch unless a finished install is already present.
// Builds share one source checkout, so they are serialized in-process and
// across processes.
func (p *GitProvisioner) Provision(ctx context.Context, rel release.Release, arch Arch) (string, error) {
	installDir := p.InstallDir(rel, arch)
	if p.Built(rel, arch) {
		return installDir, nil
	}
	if p.Runner == nil {
		return "", fail(rel, arch, "setup", errors.New("no command runner configured"))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(p.WorkDir, 0o755); err != nil {
		return "", fail(rel, arch, "setup", err)
	}
	lock, err := lockFile(filepath.Join(p.WorkDir, ".lock"))
	if err != nil {
		return "", fail(rel, arch, "lock", err)
	}
	defer func() { _ = lock.Unlock() }()

	// another process may have finished it while we waited
	if p.Built(rel, arch) {
		return installDir, nil
	}

	ctx, span := trace.Start(ctx, trace.ScopeRelease, "provision:"+rel.String())
	defer span.End("")

	if err := p.build(ctx, rel, arch); err != nil {
		span.WithExtra("error", err.Error())
		return "", err
	}
	return installDir, nil
}

func (p *GitProvisioner) build(ctx context.Context, rel release.Release, arch Arch) error {
	src := p.SourceDir()
	buildDir := p.BuildDir(rel, arch)
	installDir := p.InstallDir(rel, arch)

	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		url := p.SourceURL
		if url == "" {
			url = DefaultSourceURL
		}
		if err := p.Runner.Run(ctx, Command{Dir: p.WorkDir, Name: "git", Args: []string{"clone", url, src}}); err != nil {
			return fail(rel, arch, "clone", err)
		}
	}

	for _, args := range [][]string{
		{"reset", "--hard", "HEAD"},
		{"clean", "-dxf"},
		{"checkout", rel.Tag()},
	} {
		if err := p.Runner.Run(ctx, Command{Dir: src, Name: "git", Args: args}); err != nil {
			return fail(rel, arch, "git "+args[0], err)
		}
	}

	for _, name := range PatchesFor(rel, arch) {
		patchPath := filepath.Join(p.PatchDir, name)
		if err := p.Runner.Run(ctx, Command{Dir: src, Name: "git", Args: []string{"apply", patchPath}}); err != nil {
			return fail(rel, arch, "patch "+name, err)
		}
	}

	for _, dir := range []string{buildDir, installDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fail(rel, arch, "prepare", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fail(rel, arch, "prepare", err)
		}
	}

	env, configureArgs, jobs, err := p.configuration(ctx, rel, arch)
	if err != nil {
		return fail(rel, arch, "configure", err)
	}
	jobFlag := "-j" + strconv.Itoa(jobs)

	if err := p.Runner.Run(ctx, Command{Dir: buildDir, Env: env, Name: filepath.Join(src, "configure"), Args: configureArgs}); err != nil {
		return fail(rel, arch, "configure", err)
	}
	if err := p.Runner.Run(ctx, Command{Dir: buildDir, Name: "make", Args: []string{jobFlag}}); err != nil {
		return fail(rel, arch, "make", err)
	}
	if err := p.Runner.Run(ctx, Command{Dir: buildDir, Name: "make", Args: []string{"install_root=" + installDir, "install", jobFlag}}); err != nil {
		return fail(rel, arch, "install", err)
	}

	if err := os.WriteFile(filepath.Join(installDir, stampName), nil, 0o600); err != nil {
		return fail(rel, arch, "stamp", err)
	}
	return nil
}

// configuration returns the environment, configure arguments and make
// parallelism for rel on arch.
func (p *GitProvisioner) configuration(ctx context.Context, rel release.Release, arch Arch) ([]string, []string, int, error) {
	env := newEnv(os.Environ())
	env.set("CC", "gcc")

	if release.Between(mk(2, 5), mk(2, 16)).Contains(rel) {
		env.add("CFLAGS", "-U_FORTIFY_SOURCE -O2 -fno-stack-protector")
	}
	if release.Between(mk(2, 5), mk(2, 21)).Contains(rel) {
		out, err := p.Runner.Output(ctx, Command{Name: "gcc", Args: []string{"-v"}})
		if err != nil {
			return nil, nil, 0, err
		}
		if strings.Contains(out, "--enable-default-pie") {
			env.add("LDFLAGS", "-no-pie")
		}
	}

	jobs := p.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	args := []string{"--disable-werror", "--disable-sanity-checks"}

	if arch == ArchX86 {
		env.set("CC", "gcc -m32 -U__i686")
		env.add("CFLAGS", "-m32 -march=i686 -O2")
		env.add("LDFLAGS", "-m32 -march=i686")

		guess, err := p.Runner.Output(ctx, Command{Name: filepath.Join(p.SourceDir(), "scripts", "config.guess")})
		if err != nil {
			return nil, nil, 0, err
		}
		args = append(args,
			"--host=i686-linux-gnu",
			fmt.Sprintf("--build=%s", strings.TrimSpace(guess)),
			"libc_cv_forced_unwind=yes",
			"libc_cv_ctors_header=yes",
			"libc_cv_c_cleanup=yes",
		)
		// parallel make races on iconvdata/stamp.oS for 32-bit builds
		jobs = 1
	}
	return env.list(), args, jobs, nil
}

// Clean removes every build and install tree. The source checkout is kept.
func (p *GitProvisioner) Clean() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return os.RemoveAll(p.BuildsDir())
}

// env is an ordered environment with append-style flag merging.
type env struct {
	keys []string
	vals map[string]string
}

func newEnv(base []string) *env {
	e := &env{vals: make(map[string]string, len(base))}
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		e.set(k, v)
	}
	return e
}

func (e *env) set(k, v string) {
	if _, ok := e.vals[k]; !ok {
		e.keys = append(e.keys, k)
	}
	e.vals[k] = v
}

func (e *env) add(k, v string) {
	if cur, ok := e.vals[k]; ok {
		e.vals[k] = cur + " " + v
		return
	}
	e.set(k, v)
}

func (e *env) get(k string) string { return e.vals[k] }

func (e *env) list() []string {
	out := make([]string, 0, len(e.keys))
	for _, k := range e.keys {
		out = append(out, k+"="+e.vals[k])
	}
	return out
}
