package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// progressUI decides whether generate drives the bubbletea progress view.
// "auto" uses it only when out is an interactive terminal and the run is not
// quiet; a redirected stdout always gets plain progress lines.
func progressUI(value string, quiet bool, out io.Writer) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "", "auto":
		f, ok := out.(*os.File)
		return ok && !quiet && isTerminal(f), nil
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}
