package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"udonsharp/internal/driver"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [path...]",
	Short: "Report diagnostics without writing artifacts",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Int("jobs", 0, "max parallel units (0=auto)")
	checkCmd.Flags().StringSlice("catalog", nil, "extra type catalog file (TOML), repeatable")
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic(cmd)

	s, err := resolveSettings(cmd, args)
	if err != nil {
		return err
	}
	out, err := readOutputOptions(cmd)
	if err != nil {
		return err
	}
	catalog, err := s.buildCatalog()
	if err != nil {
		return err
	}

	batch, err := driver.CompilePaths(cmd.Context(), s.paths, driver.Options{
		Catalog:        catalog,
		Compiler:       s.compiler,
		Resolver:       s.resolver,
		MaxDiagnostics: out.maxDiagnostics,
		Jobs:           s.jobs,
		EnableTimings:  out.timings,
	})
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	bag := batch.Bag()
	bag.Sort()
	if err := printDiagnostics(cmd.OutOrStdout(), bag, batch.FileSet, out); err != nil {
		return err
	}
	if out.timings {
		printUnitTimings(cmd.ErrOrStderr(), batch)
	}
	if batch.HasErrors() {
		return errDiagnostics
	}
	if !out.quiet && out.format == "pretty" {
		fmt.Fprintf(cmd.ErrOrStderr(), "checked %d script(s), no errors\n", len(batch.Units))
	}
	return nil
}
