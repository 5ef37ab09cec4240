package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"symverhdr/internal/provision"
	"symverhdr/internal/release"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the supported glibc releases",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

var (
	catalogFormat string
	catalogArch   string
)

func init() {
	catalogCmd.Flags().StringVar(&catalogFormat, "format", "pretty", "output format (pretty|json)")
	catalogCmd.Flags().StringVarP(&catalogArch, "arch", "a", "x64", "architecture whose build state is shown (x86|x64)")
}

type catalogEntry struct {
	Release string `json:"release"`
	Tag     string `json:"tag"`
	Built   bool   `json:"built"`
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	arch, err := provision.ParseArch(catalogArch)
	if err != nil {
		return err
	}
	git := provision.NewGitProvisioner(current.cfg.WorkDir, nil)

	entries := make([]catalogEntry, 0, len(release.Catalog()))
	for _, rel := range release.Catalog() {
		entries = append(entries, catalogEntry{Release: rel.String(), Tag: rel.Tag(), Built: git.Built(rel, arch)})
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(catalogFormat) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "pretty":
		for _, e := range entries {
			state := ""
			if e.Built {
				state = "built"
			}
			fmt.Fprintf(out, "%-8s %-12s %s\n", e.Release, e.Tag, state)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", catalogFormat)
	}
}
