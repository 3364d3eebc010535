package main

import (
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"jsonnet/interpreter-go/pkg/analysis"
	"jsonnet/interpreter-go/pkg/parser"
)

func newLintCommand(opts *evalOptions, stdout, stderr io.Writer) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "lint <file>...",
		Short: "Report unbound variables, misplaced self/super/$ and unused locals without evaluating",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := false
			for _, file := range args {
				diags, err := lintFile(file)
				if err != nil {
					_ = reportError(stderr, opts.color, err)
					failed = true
					continue
				}
				glog.V(1).Infof("%s: %d diagnostic(s)", file, len(diags))
				for _, d := range diags {
					fmt.Fprintln(stdout, d.String())
				}
				if analysis.HasErrors(diags) || (strict && len(diags) > 0) {
					failed = true
				}
			}
			if failed {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as failures")
	return cmd
}

func lintFile(path string) ([]analysis.Diagnostic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expr, err := parser.Parse(path, data)
	if err != nil {
		return nil, err
	}
	return analysis.New().Check(expr), nil
}
