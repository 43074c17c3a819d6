package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"udonsharp/internal/asm"
	"udonsharp/internal/types"
	"udonsharp/internal/version"
)

// versionInfo is what `udonsharp version` can report. Build fields are
// empty unless set at link time; Catalog is only filled for --full.
type versionInfo struct {
	Tool       string   `json:"tool"`
	Version    string   `json:"version"`
	GitCommit  string   `json:"git_commit,omitempty"`
	GitMessage string   `json:"git_message,omitempty"`
	BuildDate  string   `json:"build_date,omitempty"`
	Catalog    string   `json:"builtin_catalog,omitempty"`
	Formats    []string `json:"formats,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show udonsharp build information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().Bool("hash", false, "include git commit hash")
	versionCmd.Flags().Bool("message", false, "include git commit message")
	versionCmd.Flags().Bool("date", false, "include build timestamp")
	versionCmd.Flags().Bool("full", false, "include build metadata, builtin catalog fingerprint and artifact formats")
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runVersion(cmd *cobra.Command, args []string) error {
	flags := map[string]bool{}
	for _, name := range []string{"hash", "message", "date", "full"} {
		v, err := cmd.Flags().GetBool(name)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		flags[name] = v
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	full := flags["full"]
	info := collectVersionInfo(flags["hash"] || full, flags["message"] || full, flags["date"] || full, full)

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "pretty":
		colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
		if err != nil {
			return fmt.Errorf("failed to get color flag: %w", err)
		}
		useColor, err := readColorMode(colorFlag, stdoutFile(cmd))
		if err != nil {
			return err
		}
		renderVersion(cmd.OutOrStdout(), info, useColor)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

func collectVersionInfo(hash, message, date, full bool) versionInfo {
	info := versionInfo{Tool: "udonsharp", Version: strings.TrimSpace(version.Version)}
	if info.Version == "" {
		info.Version = "dev"
	}
	if hash {
		info.GitCommit = valueOrUnknown(version.GitCommit)
	}
	if message {
		info.GitMessage = valueOrUnknown(version.GitMessage)
	}
	if date {
		info.BuildDate = valueOrUnknown(version.BuildDate)
	}
	if full {
		info.Catalog = types.NewBuiltinCatalog().Fingerprint()
		for _, f := range []asm.Format{asm.FormatText, asm.FormatMsgpack, asm.FormatCBOR} {
			info.Formats = append(info.Formats, string(f))
		}
	}
	return info
}

func renderVersion(out io.Writer, info versionInfo, useColor bool) {
	v := info.Version
	if useColor && v == strings.TrimSpace(version.Version) {
		v = version.Colored()
	}
	fmt.Fprintf(out, "udonsharp %s\n", v)
	rows := []struct{ label, value string }{
		{"commit", info.GitCommit},
		{"message", info.GitMessage},
		{"built", info.BuildDate},
		{"catalog", info.Catalog},
		{"formats", strings.Join(info.Formats, ", ")},
	}
	for _, row := range rows {
		if row.value != "" {
			fmt.Fprintf(out, "%-8s %s\n", row.label+":", row.value)
		}
	}
}

func valueOrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
