package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"jsonnet/interpreter-go/pkg/driver"
)

func newDepsCommand(opts *evalOptions, stdout, stderr io.Writer) *cobra.Command {
	deps := &cobra.Command{
		Use:   "deps",
		Short: "Manage vendored libraries declared in " + driver.ConfigFileName,
	}
	deps.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Fetch dependencies into vendor/ and write " + driver.LockfileName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := loadProject(opts.configPath, ".")
			if err != nil {
				return err
			}
			if project == nil {
				return fmt.Errorf("deps install: %w", driver.ErrConfigNotFound)
			}
			if len(project.Dependencies) == 0 {
				fmt.Fprintf(stdout, "%s declares no dependencies\n", project.Name)
				return nil
			}
			lock, logs, err := driver.NewInstaller(project, "", cliToolVersion).Install(cmd.Context())
			for _, line := range logs {
				fmt.Fprintln(stderr, line)
			}
			if err != nil {
				return err
			}
			for _, pkg := range lock.Packages {
				fmt.Fprintf(stdout, "%s %s\n", pkg.Name, pkg.Version)
			}
			return nil
		},
	})
	deps.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Check vendored packages against the checksums in " + driver.LockfileName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := loadProject(opts.configPath, ".")
			if err != nil {
				return err
			}
			if project == nil {
				return fmt.Errorf("deps verify: %w", driver.ErrConfigNotFound)
			}
			lock, err := driver.LoadLockfile(project.LockfilePath())
			if err != nil {
				return fmt.Errorf("deps verify: %w", err)
			}
			issues := lock.Verify(filepath.Join(project.Root(), driver.VendorDir))
			for _, issue := range issues {
				fmt.Fprintln(stderr, issue)
			}
			if len(issues) > 0 {
				return &exitError{code: 1}
			}
			fmt.Fprintf(stdout, "%d package(s) verified\n", len(lock.Packages))
			return nil
		},
	})
	return deps
}
