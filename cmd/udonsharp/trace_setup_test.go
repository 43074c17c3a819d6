package main

import (
	"testing"

	"github.com/spf13/cobra"

	"udonsharp/internal/trace"
)

func traceCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	pf := cmd.PersistentFlags()
	pf.String("trace", "", "")
	pf.String("trace-level", "off", "")
	pf.String("trace-mode", "ring", "")
	pf.Int("trace-ring-size", 4096, "")
	pf.Duration("trace-heartbeat", 0, "")
	if err := pf.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestReadTraceConfigDefaultsOff(t *testing.T) {
	cfg, err := readTraceConfig(traceCommand(t))
	if err != nil {
		t.Fatalf("readTraceConfig: %v", err)
	}
	if cfg.Level != trace.LevelOff || cfg.Mode != trace.ModeRing {
		t.Fatalf("defaults: got level %s mode %s", cfg.Level, cfg.Mode)
	}
}

func TestReadTraceConfigOutputImpliesPhase(t *testing.T) {
	cfg, err := readTraceConfig(traceCommand(t, "--trace", "run.ndjson"))
	if err != nil {
		t.Fatalf("readTraceConfig: %v", err)
	}
	if cfg.Level != trace.LevelPhase || cfg.Mode != trace.ModeBoth || cfg.OutputPath != "run.ndjson" {
		t.Fatalf("got level %s mode %s output %q", cfg.Level, cfg.Mode, cfg.OutputPath)
	}

	cfg, err = readTraceConfig(traceCommand(t, "--trace", "-", "--trace-level", "debug", "--trace-mode", "stream"))
	if err != nil {
		t.Fatalf("readTraceConfig: %v", err)
	}
	if cfg.Level != trace.LevelDebug || cfg.Mode != trace.ModeStream {
		t.Fatalf("explicit values overridden: level %s mode %s", cfg.Level, cfg.Mode)
	}
}

func TestReadTraceConfigRejectsBadValues(t *testing.T) {
	if _, err := readTraceConfig(traceCommand(t, "--trace-level", "loud")); err == nil {
		t.Fatalf("unknown level accepted")
	}
	if _, err := readTraceConfig(traceCommand(t, "--trace-mode", "sideways")); err == nil {
		t.Fatalf("unknown mode accepted")
	}
}
