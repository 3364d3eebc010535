package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"jsonnet/interpreter-go/pkg/analysis"
	"jsonnet/interpreter-go/pkg/interpreter"
	"jsonnet/interpreter-go/pkg/manifest"
	"jsonnet/interpreter-go/pkg/parser"
)

const (
	replHistoryFile = ".jsonnet_history"
	promptMain      = "jsonnet> "
	promptCont      = "     ... "
)

func newReplCommand(opts *evalOptions, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Evaluate expressions interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := loadProject(opts.configPath, ".")
			if err != nil {
				return err
			}
			cfg, err := buildInterpreterConfig(cmd, opts, project)
			if err != nil {
				return err
			}
			return runRepl(newReplSession(cfg), stdout, stderr, opts.color)
		},
	}
}

// replSession evaluates snippets against an accumulated prefix of
// `local name = expr;` bindings.
type replSession struct {
	interp *interpreter.Interpreter
	locals []string
}

func newReplSession(cfg interpreter.Config) *replSession {
	return &replSession{interp: interpreter.New(cfg)}
}

// isBinding reports whether src is a bare `local ...;` statement to keep for
// later inputs.
func isBinding(src string) bool {
	trimmed := strings.TrimSpace(src)
	return strings.HasPrefix(trimmed, "local ") && strings.HasSuffix(trimmed, ";")
}

func (s *replSession) source(body string) string {
	return strings.Join(s.locals, "\n") + "\n" + body
}

// Eval evaluates one input. Bindings are parsed and checked for unbound
// names, then remembered; other input is manifested as JSON.
func (s *replSession) Eval(src string) (string, error) {
	if isBinding(src) {
		candidate := append(append([]string(nil), s.locals...), strings.TrimSpace(src))
		expr, err := parser.Parse("<repl>", []byte(strings.Join(candidate, "\n")+"\nnull"))
		if err != nil {
			return "", err
		}
		if err := analysis.FirstError(analysis.New().Check(expr)); err != nil {
			return "", err
		}
		s.locals = candidate
		return "", nil
	}
	v, err := s.interp.EvaluateSnippet("<repl>", s.source(src))
	if err != nil {
		return "", err
	}
	return manifest.Render(v, manifest.FormatJSON, manifest.Options{Indent: "  ", PreserveOrder: s.interp.PreserveOrder()})
}

// complete reports whether src can be evaluated or is worth waiting on more
// lines for.
func (s *replSession) complete(src string) bool {
	if strings.TrimSpace(src) == "" || isBinding(src) {
		return true
	}
	_, err := parser.Parse("<repl>", []byte(s.source(src)))
	var perr *parser.ParseError
	return !(errors.As(err, &perr) && perr.Incomplete)
}

func runRepl(session *replSession, stdout, stderr io.Writer, color string) error {
	fmt.Fprintf(stdout, "%s (type :quit to exit)\n", cliToolVersion)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, replHistoryFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		src, ok := readInput(ln, session)
		if !ok {
			fmt.Fprintln(stdout)
			return nil
		}
		switch strings.TrimSpace(src) {
		case "":
			continue
		case ":quit", ":q":
			return nil
		case ":locals":
			for _, l := range session.locals {
				fmt.Fprintln(stdout, l)
			}
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		out, err := session.Eval(src)
		if err != nil {
			_ = reportError(stderr, color, err)
			continue
		}
		fmt.Fprint(stdout, out)
	}
}

func readInput(ln *liner.State, session *replSession) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || session.complete(src) {
			return src, true
		}
	}
}
