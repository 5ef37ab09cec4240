package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"symverhdr/internal/release"
	"symverhdr/internal/version"
)

var versionFormat string

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	Go        string `json:"go"`
	Catalog   string `json:"catalog"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show symverhdr build fingerprints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat := release.Catalog()
		span := fmt.Sprintf("%s..%s", cat[0], cat[len(cat)-1])
		switch strings.ToLower(versionFormat) {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(versionPayload{
				Tool:      "symverhdr",
				Version:   version.Version,
				GitCommit: version.Commit(),
				BuildDate: version.BuildDate,
				Go:        runtime.Version(),
				Catalog:   span,
			})
		case "pretty":
			for _, line := range version.Lines() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog: glibc %s (%d releases)\n", span, len(cat))
			return nil
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
	},
}
