package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"symverhdr/internal/classify"
	"symverhdr/internal/provision"
	"symverhdr/internal/release"
	"symverhdr/internal/symtab"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <release>",
	Short: "Print the symbol table extracted for one release",
	Long: `inspect extracts the default symbol versions of one glibc release and prints
them. Use --root to read an existing install tree instead of building one.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	inspectRoot    string
	inspectArch    string
	inspectFormat  string
	inspectNoCache bool
)

func init() {
	inspectCmd.Flags().StringVar(&inspectRoot, "root", "", "install tree to read (default: build the release)")
	inspectCmd.Flags().StringVarP(&inspectArch, "arch", "a", "x64", "processor architecture (x86|x64)")
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "yaml", "output format (yaml|json)")
	inspectCmd.Flags().BoolVar(&inspectNoCache, "no-cache", false, "do not read or write the symbol table cache")
}

type inspectSymbol struct {
	Name   string   `yaml:"name" json:"name"`
	Tag    string   `yaml:"tag" json:"tag"`
	Guards []string `yaml:"guards,omitempty" json:"guards,omitempty"`
}

// inspectClass counts how much of one classification the release exports.
type inspectClass struct {
	Name    string `yaml:"name" json:"name"`
	Present int    `yaml:"present" json:"present"`
	Known   int    `yaml:"known" json:"known"`
}

type inspectReport struct {
	Release string          `yaml:"release" json:"release"`
	Arch    string          `yaml:"arch" json:"arch"`
	Root    string          `yaml:"root" json:"root"`
	Count   int             `yaml:"count" json:"count"`
	Classes []inspectClass  `yaml:"classes" json:"classes"`
	Symbols []inspectSymbol `yaml:"symbols" json:"symbols"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(strings.TrimSpace(inspectFormat))
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be yaml or json)", inspectFormat)
	}
	rel, err := release.Parse(args[0])
	if err != nil {
		return err
	}
	arch, err := provision.ParseArch(inspectArch)
	if err != nil {
		return err
	}

	var roots []string
	if inspectRoot != "" {
		roots = []string{rel.String() + "=" + inspectRoot}
	} else if !release.InCatalog(rel) {
		return fmt.Errorf("release %s is not in the catalog; pass --root to read an existing tree", rel)
	}
	buildOut := cmd.ErrOrStderr()
	if quiet(cmd) {
		buildOut = io.Discard
	}
	prov, err := newProvisioner(current.cfg, roots, buildOut)
	if err != nil {
		return err
	}
	root, err := prov.Provision(cmd.Context(), rel, arch)
	if err != nil {
		return err
	}
	tbl, err := newExtractor(cmd, current.cfg, inspectNoCache).Extract(cmd.Context(), root, rel)
	if err != nil {
		return err
	}

	report := buildInspectReport(rel, arch, root, tbl, classify.Default())
	return writeReport(cmd.OutOrStdout(), format, report)
}

func buildInspectReport(rel release.Release, arch provision.Arch, root string, tbl symtab.Table, classes classify.Tables) inspectReport {
	report := inspectReport{
		Release: rel.String(),
		Arch:    arch.String(),
		Root:    root,
		Count:   len(tbl),
		Symbols: make([]inspectSymbol, 0, len(tbl)),
	}
	for _, set := range []classify.Set{classes.LibcPthread, classes.LibgccWeak, classes.LibstdcxxWeak} {
		class := inspectClass{Name: set.Name, Known: set.Len()}
		for _, name := range set.Symbols() {
			if tbl.Has(name) {
				class.Present++
			}
		}
		report.Classes = append(report.Classes, class)
	}
	for _, name := range tbl.Names() {
		sym := inspectSymbol{Name: name, Tag: tbl[name]}
		if classes.NeedsReentrant(name) {
			sym.Guards = append(sym.Guards, "_REENTRANT")
		}
		if classes.LibgccWeak.Has(name) {
			sym.Guards = append(sym.Guards, "!IN_LIBGCC2")
		}
		if classes.LibstdcxxWeak.Has(name) {
			sym.Guards = append(sym.Guards, "!_GLIBCXX_SHARED")
		}
		report.Symbols = append(report.Symbols, sym)
	}
	return report
}

func writeReport(out io.Writer, format string, report inspectReport) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}
