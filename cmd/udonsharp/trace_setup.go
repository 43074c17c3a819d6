package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"udonsharp/internal/trace"
)

// panicTraceTail bounds the events printed when a command panics.
const panicTraceTail = 200

// readTraceConfig turns the --trace* flags into a tracer config. Naming an
// output file without a level traces phases; a file with ring storage also
// streams to that file.
func readTraceConfig(cmd *cobra.Command) (trace.Config, error) {
	var cfg trace.Config
	pf := cmd.Root().PersistentFlags()

	output, err := pf.GetString("trace")
	if err != nil {
		return cfg, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := pf.GetString("trace-level")
	if err != nil {
		return cfg, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := pf.GetString("trace-mode")
	if err != nil {
		return cfg, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	if cfg.RingSize, err = pf.GetInt("trace-ring-size"); err != nil {
		return cfg, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	if cfg.Heartbeat, err = pf.GetDuration("trace-heartbeat"); err != nil {
		return cfg, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	if cfg.Level, err = trace.ParseLevel(levelStr); err != nil {
		return cfg, err
	}
	if cfg.Mode, err = trace.ParseMode(modeStr); err != nil {
		return cfg, err
	}
	cfg.OutputPath = output
	if output != "" {
		if cfg.Level == trace.LevelOff {
			cfg.Level = trace.LevelPhase
		}
		if cfg.Mode == trace.ModeRing {
			cfg.Mode = trace.ModeBoth
		}
	}
	return cfg, nil
}

// setupTracing attaches the configured tracer to the command context. The
// cleanup stops the heartbeat, then flushes and closes the tracer.
func setupTracing(cmd *cobra.Command) (func(), error) {
	cfg, err := readTraceConfig(cmd)
	if err != nil {
		return nil, err
	}
	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)
	if !tracer.Enabled() {
		return func() {}, nil
	}

	heartbeat := trace.StartHeartbeat(tracer, cfg.Heartbeat)
	return func() {
		heartbeat.Stop()
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

// dumpTraceOnPanic writes the newest ring events to stderr and re-panics, so
// a crash keeps the events that led to it.
func dumpTraceOnPanic(cmd *cobra.Command) {
	r := recover()
	if r == nil {
		return
	}
	if ring, ok := trace.RingOf(trace.FromContext(cmd.Context())); ok {
		fmt.Fprintln(os.Stderr, "== trace (most recent last) ==")
		_ = ring.Dump(os.Stderr, trace.FormatText, panicTraceTail)
	}
	panic(r)
}
