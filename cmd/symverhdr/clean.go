package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"symverhdr/internal/provision"
	"symverhdr/internal/symcache"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove glibc build trees and the symbol table cache",
	Long:  "Remove every build and install tree under the work directory and drop the cached symbol tables. The glibc checkout is kept.",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

var (
	cleanBuilds bool
	cleanCache  bool
)

func init() {
	cleanCmd.Flags().BoolVar(&cleanBuilds, "builds", false, "only remove build trees")
	cleanCmd.Flags().BoolVar(&cleanCache, "cache", false, "only drop the table cache")
}

func runClean(cmd *cobra.Command, _ []string) error {
	cfg := current.cfg
	out := cmd.OutOrStdout()
	both := !cleanBuilds && !cleanCache

	if both || cleanBuilds {
		git := provision.NewGitProvisioner(cfg.WorkDir, nil)
		if err := git.Clean(); err != nil {
			return fmt.Errorf("failed to remove %q: %w", git.BuildsDir(), err)
		}
		if !quiet(cmd) {
			fmt.Fprintf(out, "removed %s\n", git.BuildsDir())
		}
	}
	if both || cleanCache {
		cache, err := symcache.Open(cfg.CacheDir)
		if err != nil {
			return err
		}
		if err := cache.DropAll(); err != nil {
			return fmt.Errorf("failed to drop cache %q: %w", cache.Dir(), err)
		}
		if !quiet(cmd) {
			fmt.Fprintf(out, "dropped table cache %s\n", cache.Dir())
		}
	}
	return nil
}
