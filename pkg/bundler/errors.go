package bundler

import (
	"fmt"
	"strings"
	"time"
)

// EntryNotFoundError is returned when none of the entry candidates exist in
// the file map. It is fatal to the build.
type EntryNotFoundError struct {
	Candidates []string
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("no entry point found (tried %s)", strings.Join(e.Candidates, ", "))
}

// BuildTimeoutError is returned when a build does not finish in time.
type BuildTimeoutError struct {
	Timeout time.Duration
}

func (e *BuildTimeoutError) Error() string {
	return fmt.Sprintf("build timed out after %s", e.Timeout)
}

// ImportResolutionWarning records a local import that did not resolve to a
// file. The build continues without that module.
type ImportResolutionWarning struct {
	From      string `json:"from"`
	Specifier string `json:"specifier"`
}

func (w ImportResolutionWarning) Error() string {
	return fmt.Sprintf("%s: cannot resolve import %q", w.From, w.Specifier)
}

// TransformError records a file whose transform failed. The file is emitted
// through the simplified fallback transform instead.
type TransformError struct {
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Message  string `json:"message"`
	Fallback bool   `json:"fallback"`
}

func (e TransformError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}
