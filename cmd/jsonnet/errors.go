package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"jsonnet/interpreter-go/pkg/parser"
	"jsonnet/interpreter-go/pkg/runtime"
)

const (
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// formatFailure renders a parse or evaluation error the way the CLI prints
// it.
func formatFailure(err error) string {
	var perr *parser.ParseError
	if errors.As(err, &perr) {
		return "STATIC ERROR: " + perr.Error()
	}
	return runtime.FormatError(err)
}

// reportError prints err to w and returns the exit status for a failed
// evaluation.
func reportError(w io.Writer, color string, err error) error {
	msg := formatFailure(err)
	if useColor(w, color) {
		msg = ansiRed + msg + ansiReset
	}
	fmt.Fprintln(w, msg)
	return &exitError{code: 1}
}

func useColor(w io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
