package main

import (
	"fmt"
	"os"
	"strings"
)

// switchMode is the auto|on|off value shared by --ui and --color. auto
// follows whether the output is a terminal.
type switchMode string

const (
	modeAuto switchMode = "auto"
	modeOn   switchMode = "on"
	modeOff  switchMode = "off"
)

func parseSwitch(flag, value string) (switchMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return modeAuto, nil
	case "on", "always":
		return modeOn, nil
	case "off", "never":
		return modeOff, nil
	default:
		return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
}

// enabled resolves the mode for output written to f.
func (m switchMode) enabled(f *os.File) bool {
	switch m {
	case modeOn:
		return true
	case modeOff:
		return false
	default:
		return isTerminal(f)
	}
}

func readUIMode(value string) (switchMode, error) {
	return parseSwitch("ui", value)
}

// shouldUseTUI reports whether the progress view may take over stdout.
func shouldUseTUI(mode switchMode) bool {
	return mode.enabled(os.Stdout)
}

// readColorMode maps --color onto a yes/no for the writer f.
func readColorMode(value string, f *os.File) (bool, error) {
	mode, err := parseSwitch("color", value)
	if err != nil {
		return false, err
	}
	return mode.enabled(f), nil
}
