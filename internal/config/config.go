// Package config loads symverhdr.toml and fills in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"symverhdr/internal/extract"
	"symverhdr/internal/provision"
	"symverhdr/internal/release"
	"symverhdr/internal/symcache"
)

// FileName is the configuration file looked up from the working directory.
const FileName = "symverhdr.toml"

// AppName names the cache subdirectory.
const AppName = "symverhdr"

// Config is the resolved configuration. All paths are absolute.
type Config struct {
	// Path is the loaded file, empty when running on defaults.
	Path string
	Root string

	WorkDir   string
	OutputDir string
	PatchDir  string
	CacheDir  string
	SourceURL string
	Jobs      int

	// Relocations extends the built-in relocation rules.
	Relocations []extract.RelocationRule
}

type fileConfig struct {
	Paths      pathsConfig        `toml:"paths"`
	Source     sourceConfig       `toml:"source"`
	Build      buildConfig        `toml:"build"`
	Relocation []relocationConfig `toml:"relocation"`
}

type pathsConfig struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	PatchDir  string `toml:"patch_dir"`
	CacheDir  string `toml:"cache_dir"`
}

type sourceConfig struct {
	URL string `toml:"url"`
}

type buildConfig struct {
	Jobs int `toml:"jobs"`
}

type relocationConfig struct {
	Prefix  string   `toml:"prefix"`
	From    string   `toml:"from"`
	To      string   `toml:"to"`
	Symbols []string `toml:"symbols"`
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest FileName above startDir, or defaults rooted at
// startDir when there is none.
func Discover(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		root, err := filepath.Abs(startDir)
		if err != nil {
			return nil, err
		}
		return resolve("", root, fileConfig{})
	}
	return Load(path)
}

// Load reads an explicit config file. Relative paths inside it are resolved
// against the file's directory.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	meta, err := toml.DecodeFile(abs, &fc)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", abs, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", abs, strings.Join(keys, ", "))
	}
	if meta.IsDefined("build", "jobs") && fc.Build.Jobs < 0 {
		return nil, fmt.Errorf("%s: [build].jobs must not be negative", abs)
	}
	return resolve(abs, filepath.Dir(abs), fc)
}

func resolve(path, root string, fc fileConfig) (*Config, error) {
	cfg := &Config{
		Path:      path,
		Root:      root,
		WorkDir:   absUnder(root, fc.Paths.WorkDir, "."),
		OutputDir: absUnder(root, fc.Paths.OutputDir, "version_headers"),
		SourceURL: strings.TrimSpace(fc.Source.URL),
		Jobs:      fc.Build.Jobs,
	}
	if cfg.SourceURL == "" {
		cfg.SourceURL = provision.DefaultSourceURL
	}
	cfg.PatchDir = absUnder(root, fc.Paths.PatchDir, filepath.Join(cfg.WorkDir, "patches"))

	if fc.Paths.CacheDir != "" {
		cfg.CacheDir = absUnder(root, fc.Paths.CacheDir, "")
	} else {
		dir, err := symcache.DefaultDir(AppName)
		if err != nil {
			return nil, fmt.Errorf("resolve cache dir: %w", err)
		}
		cfg.CacheDir = dir
	}

	for i, rc := range fc.Relocation {
		rule, err := rc.rule()
		if err != nil {
			where := path
			if where == "" {
				where = FileName
			}
			return nil, fmt.Errorf("%s: [[relocation]] #%d: %w", where, i+1, err)
		}
		cfg.Relocations = append(cfg.Relocations, rule)
	}
	return cfg, nil
}

func (rc relocationConfig) rule() (extract.RelocationRule, error) {
	if strings.TrimSpace(rc.Prefix) == "" {
		return extract.RelocationRule{}, errors.New("missing prefix")
	}
	if len(rc.Symbols) == 0 {
		return extract.RelocationRule{}, errors.New("missing symbols")
	}
	from, err := release.Parse(rc.From)
	if err != nil {
		return extract.RelocationRule{}, fmt.Errorf("from: %w", err)
	}
	to, err := release.Parse(rc.To)
	if err != nil {
		return extract.RelocationRule{}, fmt.Errorf("to: %w", err)
	}
	if to.Less(from) {
		return extract.RelocationRule{}, fmt.Errorf("empty window %s..%s", from, to)
	}
	return extract.RelocationRule{
		Prefix:  rc.Prefix,
		Window:  release.Between(from, to),
		Symbols: append([]string(nil), rc.Symbols...),
	}, nil
}

// RelocationRules returns the built-in rules followed by configured ones.
func (c *Config) RelocationRules() []extract.RelocationRule {
	rules := extract.DefaultRelocationRules()
	if c == nil {
		return rules
	}
	return append(rules, c.Relocations...)
}

func absUnder(root, p, def string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		p = def
	}
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	return filepath.Clean(p)
}
