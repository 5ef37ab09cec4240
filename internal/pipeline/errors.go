package pipeline

import (
	"fmt"

	"symverhdr/internal/release"
)

// StageError attributes a failure to a release and stage.
type StageError struct {
	Release release.Release
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Release, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IOError reports a failure while publishing headers.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
