package provision

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Command is one external program invocation.
type Command struct {
	Dir  string
	Env  []string // nil inherits the process environment
	Name string
	Args []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands. Tests substitute a recording implementation.
type Runner interface {
	// Run executes cmd, streaming stdout to the runner's sink.
	Run(ctx context.Context, cmd Command) error
	// Output executes cmd and returns combined stdout and stderr.
	Output(ctx context.Context, cmd Command) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Stdout        io.Writer
	PrintCommands bool
}

// Run executes cmd. stderr is captured and folded into the error.
func (r ExecRunner) Run(ctx context.Context, c Command) error {
	if r.PrintCommands && r.Stdout != nil {
		if _, err := fmt.Fprintln(r.Stdout, c.String()); err != nil {
			return fmt.Errorf("failed to print command: %w", err)
		}
	}
	// #nosec G204 -- commands are assembled from fixed build recipes
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = io.Discard
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := lastLines(stderr.String(), 20)
		if msg == "" {
			return fmt.Errorf("%s: %w", c, err)
		}
		return fmt.Errorf("%s: %w\n%s", c, err, msg)
	}
	return nil
}

// Output executes cmd and returns its combined output.
func (r ExecRunner) Output(ctx context.Context, c Command) (string, error) {
	// #nosec G204 -- commands are assembled from fixed build recipes
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s: %w", c, err)
	}
	return string(out), nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
