package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"udonsharp/internal/diag"
	"udonsharp/internal/diagfmt"
	"udonsharp/internal/source"
)

// outputOptions are the persistent flags shared by commands that print
// diagnostics.
type outputOptions struct {
	color          bool
	quiet          bool
	timings        bool
	maxDiagnostics int
	format         string
}

func readOutputOptions(cmd *cobra.Command) (outputOptions, error) {
	var opts outputOptions
	pf := cmd.Root().PersistentFlags()
	colorFlag, err := pf.GetString("color")
	if err != nil {
		return opts, fmt.Errorf("failed to get color flag: %w", err)
	}
	if opts.color, err = readColorMode(colorFlag, os.Stderr); err != nil {
		return opts, err
	}
	if opts.quiet, err = pf.GetBool("quiet"); err != nil {
		return opts, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if opts.timings, err = pf.GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if opts.maxDiagnostics, err = pf.GetInt("max-diagnostics"); err != nil {
		return opts, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	opts.format = "pretty"
	if cmd.Flags().Lookup("format") != nil {
		if opts.format, err = cmd.Flags().GetString("format"); err != nil {
			return opts, fmt.Errorf("failed to get format flag: %w", err)
		}
	}
	switch opts.format {
	case "pretty", "short", "json":
	default:
		return opts, fmt.Errorf("unknown format: %s (expected pretty|short|json)", opts.format)
	}
	return opts, nil
}

// printDiagnostics renders bag in the selected format. JSON always prints,
// even when there is nothing to report, so tools get a document.
func printDiagnostics(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts outputOptions) error {
	if bag == nil {
		bag = diag.NewBag(0)
	}
	switch opts.format {
	case "json":
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
			Max:              opts.maxDiagnostics,
		})
	case "short":
		return diagfmt.Short(w, bag, fs, diagfmt.ShortOpts{Max: opts.maxDiagnostics})
	default:
		return diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
			Color:     opts.color,
			Context:   1,
			ShowNotes: true,
			Max:       opts.maxDiagnostics,
		})
	}
}

// reportError prints an error that has no source span, such as a manifest
// or catalog failure. Coded errors keep their code and notes.
func reportError(w io.Writer, err error) {
	var de *diag.Error
	if errors.As(err, &de) {
		fmt.Fprintf(w, "error[%s]: %s\n", de.Code.ID(), de.Message)
		for _, note := range de.Notes {
			fmt.Fprintf(w, "  = note: %s\n", note)
		}
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
