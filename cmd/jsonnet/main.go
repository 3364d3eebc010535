package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"jsonnet/interpreter-go/pkg/driver"
	"jsonnet/interpreter-go/pkg/interpreter"
	"jsonnet/interpreter-go/pkg/manifest"
	"jsonnet/interpreter-go/pkg/runtime"
)

const cliToolVersion = "jsonnet-go 0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	return runCLI(args, os.Stdin, os.Stdout, os.Stderr)
}

// exitError carries a process exit code out of a cobra command.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func runCLI(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCommand(stdin, stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	defer glog.Flush()
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 2
}

type evalOptions struct {
	exec          bool
	jpath         []string
	extStr        []string
	extCode       []string
	tlaStr        []string
	tlaCode       []string
	maxStack      int
	preserveOrder bool
	yamlStream    bool
	outputFile    string
	configPath    string
	output        string
	jobs          int
	color         string
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &evalOptions{}
	root := &cobra.Command{
		Use:           "jsonnet [flags] <file>...",
		Short:         "Evaluate Jsonnet files and print the result as JSON or YAML",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, opts, args, stdout, stderr)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	addEvalFlags(root.Flags(), opts)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to "+driver.ConfigFileName+" (searched upwards from the input by default)")
	root.PersistentFlags().StringVar(&opts.color, "color", "auto", "colorize errors: auto, always or never")

	_ = flag.CommandLine.Set("logtostderr", "true")
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	root.AddCommand(
		newDepsCommand(opts, stdout, stderr),
		newReplCommand(opts, stdin, stdout, stderr),
		newLintCommand(opts, stdout, stderr),
		&cobra.Command{
			Use:   "version",
			Short: "Print the tool version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(stdout, cliToolVersion)
			},
		},
	)
	return root
}

func addEvalFlags(flags *pflag.FlagSet, opts *evalOptions) {
	flags.BoolVarP(&opts.exec, "exec", "e", false, "treat the argument as code instead of a file name")
	flags.StringArrayVarP(&opts.jpath, "jpath", "J", nil, "add a library search directory (searched before the project's vendor directory)")
	flags.StringArrayVarP(&opts.extStr, "ext-str", "V", nil, "external variable as a string: name=value, or name to read $name")
	flags.StringArrayVar(&opts.extCode, "ext-code", nil, "external variable as code: name=expr, or name to read $name")
	flags.StringArrayVarP(&opts.tlaStr, "tla-str", "A", nil, "top-level argument as a string: name=value, or name to read $name")
	flags.StringArrayVar(&opts.tlaCode, "tla-code", nil, "top-level argument as code: name=expr, or name to read $name")
	flags.IntVarP(&opts.maxStack, "max-stack", "s", interpreter.DefaultMaxStack, "maximum evaluation depth")
	flags.BoolVar(&opts.preserveOrder, "preserve-order", false, "manifest object fields in source order")
	flags.BoolVarP(&opts.yamlStream, "yaml-stream", "y", false, "write an array result as a YAML stream")
	flags.StringVarP(&opts.outputFile, "output-file", "o", "", "write the output to this file instead of stdout")
	flags.StringVar(&opts.output, "output", "", "output format: json or yaml (defaults to the project setting)")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "files evaluated concurrently when several are given (0 means all)")
}

func runEvaluate(cmd *cobra.Command, opts *evalOptions, args []string, stdout, stderr io.Writer) error {
	if opts.exec && len(args) != 1 {
		return fmt.Errorf("--exec takes exactly one snippet, got %d arguments", len(args))
	}
	start := "."
	if !opts.exec {
		start = filepath.Dir(args[0])
	}
	project, err := loadProject(opts.configPath, start)
	if err != nil {
		return err
	}
	cfg, err := buildInterpreterConfig(cmd, opts, project)
	if err != nil {
		return err
	}
	format, err := outputFormat(opts, project)
	if err != nil {
		return err
	}
	render := manifest.Options{Indent: interpreter.DefaultIndent, PreserveOrder: cfg.PreserveOrder}
	glog.V(1).Infof("evaluating %d input(s), format %s", len(args), format)

	var outputs []string
	switch {
	case opts.exec || len(args) == 1:
		interp := interpreter.New(cfg)
		var v runtime.Value
		if opts.exec {
			v, err = interp.EvaluateSnippet("<cmdline>", args[0])
		} else {
			v, err = interp.EvaluateFile(args[0])
		}
		if err != nil {
			return reportError(stderr, opts.color, err)
		}
		out, err := renderValue(v, format, opts.yamlStream, render)
		if err != nil {
			return reportError(stderr, opts.color, err)
		}
		outputs = append(outputs, out)
	default:
		if opts.yamlStream {
			return fmt.Errorf("--yaml-stream takes a single input")
		}
		batch := &driver.Batch{Workers: opts.jobs, Config: cfg, Format: format, Manifest: render}
		results := batch.Run(context.Background(), args)
		failed := false
		for _, r := range results {
			if r.Err != nil {
				failed = true
				fmt.Fprintf(stderr, "%s:\n", r.File)
				_ = reportError(stderr, opts.color, r.Err)
				continue
			}
			outputs = append(outputs, r.Output)
		}
		if failed {
			return &exitError{code: 1}
		}
	}
	return writeOutput(stdout, opts.outputFile, strings.Join(outputs, ""))
}

func renderValue(v runtime.Value, format manifest.Format, yamlStream bool, opts manifest.Options) (string, error) {
	if yamlStream {
		return manifest.YAMLStream(v, opts)
	}
	return manifest.Render(v, format, opts)
}

func writeOutput(stdout io.Writer, path, out string) error {
	if path == "" {
		_, err := io.WriteString(stdout, out)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), 0o644)
}

// loadProject finds and loads the project file. A missing project file is
// not an error unless one was named explicitly.
func loadProject(explicit, start string) (*driver.Config, error) {
	if explicit != "" {
		return driver.LoadConfig(explicit)
	}
	path, err := driver.FindConfig(start)
	if err != nil {
		if errors.Is(err, driver.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, err
	}
	glog.V(1).Infof("using project file %s", path)
	return driver.LoadConfig(path)
}

// buildInterpreterConfig layers command-line settings over the project file.
func buildInterpreterConfig(cmd *cobra.Command, opts *evalOptions, project *driver.Config) (interpreter.Config, error) {
	searchPaths := append([]string(nil), opts.jpath...)
	var cfg interpreter.Config
	if project != nil {
		searchPaths = append(searchPaths, project.SearchPaths()...)
		cfg = project.InterpreterConfig(nil)
	} else {
		cfg = interpreter.Config{ExtVars: map[string]interpreter.ExtVar{}, TLAs: map[string]interpreter.ExtVar{}}
	}
	cfg.Importer = driver.NewFileImporter(searchPaths)

	for _, group := range []struct {
		values []string
		target map[string]interpreter.ExtVar
		code   bool
	}{
		{opts.extStr, cfg.ExtVars, false},
		{opts.extCode, cfg.ExtVars, true},
		{opts.tlaStr, cfg.TLAs, false},
		{opts.tlaCode, cfg.TLAs, true},
	} {
		for _, raw := range group.values {
			name, value, err := parseVarFlag(raw)
			if err != nil {
				return cfg, err
			}
			if group.code {
				group.target[name] = interpreter.CodeVar(value)
			} else {
				group.target[name] = interpreter.StringVar(value)
			}
		}
	}

	if cmd.Flags().Changed("max-stack") || project == nil || project.MaxStack == 0 {
		cfg.MaxStack = opts.maxStack
	}
	if cfg.MaxStack <= 0 {
		return cfg, fmt.Errorf("--max-stack must be positive, got %d", cfg.MaxStack)
	}
	cfg.PreserveOrder = cfg.PreserveOrder || opts.preserveOrder
	return cfg, nil
}

// parseVarFlag splits name=value. A bare name reads the environment
// variable of that name.
func parseVarFlag(raw string) (string, string, error) {
	name, value, found := strings.Cut(raw, "=")
	if name == "" {
		return "", "", fmt.Errorf("variable %q needs a name", raw)
	}
	if found {
		return name, value, nil
	}
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", "", fmt.Errorf("environment variable %s is not set", name)
	}
	return name, value, nil
}

func outputFormat(opts *evalOptions, project *driver.Config) (manifest.Format, error) {
	if opts.output != "" {
		return manifest.ParseFormat(opts.output)
	}
	if project != nil && project.Output != "" {
		return project.Output, nil
	}
	return manifest.FormatJSON, nil
}
