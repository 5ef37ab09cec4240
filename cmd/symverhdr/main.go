package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"symverhdr/internal/config"
	"symverhdr/internal/provision"
	"symverhdr/internal/trace"
)

var rootCmd = &cobra.Command{
	Use:   "symverhdr",
	Short: "Generate glibc symbol version pinning headers",
	Long: `symverhdr builds every supported glibc release, reads the default symbol
versions each one exports and writes one header per release that pins every
symbol to the version available in that release.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: prepareRun,
	RunE:              runGenerate,
}

// session holds what PersistentPreRunE prepared for the running command.
type session struct {
	cfg     *config.Config
	tracer  trace.Tracer
	cleanup func()
}

var current = &session{cleanup: func() {}}

func init() {
	// Добавляем команды
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	// корневая команда без подкоманды работает как generate
	defineGenerateFlags()
	rootCmd.Flags().AddFlagSet(generateCmd.Flags())

	// Глобальные флаги
	addGlobalFlags(rootCmd)
}

// main executes the root command. If command execution returns an error, the
// process exits with status code 1.
func main() {
	err := rootCmd.Execute()
	if err != nil {
		reportFailure(err)
	}
	current.cleanup()
	if err != nil {
		os.Exit(1)
	}
}

func addGlobalFlags(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.String("config", "", "path to "+config.FileName+" (default: search upwards from the working directory)")
	pf.String("trace", "", "write trace events to file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "ring", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	pf.Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 disables)")
	pf.String("cpu-profile", "", "write a CPU profile to file")
	pf.String("mem-profile", "", "write a heap profile to file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to file")
}

func prepareRun(cmd *cobra.Command, _ []string) error {
	if err := setupColor(cmd); err != nil {
		return err
	}
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	current.cleanup = stopProfiling
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	current.cleanup = func() {
		cleanup()
		stopProfiling()
	}

	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	if cfgPath != "" {
		current.cfg, err = config.Load(cfgPath)
	} else {
		current.cfg, err = config.Discover(".")
	}
	return err
}

func setupColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout) || os.Getenv("NO_COLOR") != ""
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

func quiet(cmd *cobra.Command) bool {
	q, err := cmd.Root().PersistentFlags().GetBool("quiet")
	return err == nil && q
}

func reportFailure(err error) {
	red := color.New(color.FgRed, color.Bold)
	_, _ = red.Fprint(os.Stderr, "error: ")
	fmt.Fprintln(os.Stderr, err)

	var pre *provision.PreflightError
	if errors.As(err, &pre) {
		return
	}
	// последние события трассировки помогают понять, где упало
	if ring := trace.Ring(current.tracer); ring != nil && len(ring.Snapshot()) > 0 {
		fmt.Fprintln(os.Stderr, "recent trace:")
		if dumpErr := ring.Dump(os.Stderr, trace.FormatText); dumpErr != nil {
			fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", dumpErr)
		}
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
