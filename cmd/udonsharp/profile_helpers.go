package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"udonsharp/internal/prof"
)

// setupProfiling starts the profilers named by --cpu-profile, --mem-profile
// and --runtime-trace. The heap profile is written by the cleanup.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	var cfg prof.Config
	pf := cmd.Root().PersistentFlags()
	for name, dst := range map[string]*string{
		"cpu-profile":   &cfg.CPUProfile,
		"mem-profile":   &cfg.MemProfile,
		"runtime-trace": &cfg.RuntimeTrace,
	} {
		value, err := pf.GetString(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = value
	}

	session, err := prof.Start(cfg)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "profiling: %v\n", err)
		}
	}, nil
}
