// Package ui holds the terminal presentation layer: colored status output
// and interactive prompts. The lifecycle manager never prints; everything
// user-facing goes through here so the manager stays testable without a
// terminal.
package ui

import (
	"fmt"
	"os"
)

var (
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorReset  = "\033[0m"
)

func init() {
	// Check if output is a terminal
	if stat, err := os.Stdout.Stat(); err == nil {
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			// Not a terminal, disable colors
			colorGreen = ""
			colorRed = ""
			colorYellow = ""
			colorCyan = ""
			colorReset = ""
		}
	}
}

// Successf prints a green success line.
func Successf(format string, args ...interface{}) {
	fmt.Printf("%s[ok]%s %s\n", colorGreen, colorReset, fmt.Sprintf(format, args...))
}

// Warnf prints a yellow warning line to stderr.
func Warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s[warn]%s %s\n", colorYellow, colorReset, fmt.Sprintf(format, args...))
}

// Errorf prints a red error line to stderr.
func Errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s[error]%s %s\n", colorRed, colorReset, fmt.Sprintf(format, args...))
}

// Infof prints a plain informational line.
func Infof(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

// Header prints a cyan section header.
func Header(title string) {
	fmt.Printf("\n%s== %s ==%s\n\n", colorCyan, title, colorReset)
}

// Statusf prints a column-aligned step result, [OK]/[FAIL] style.
func Statusf(ok bool, format string, args ...interface{}) {
	marker := fmt.Sprintf("%s[OK]%s", colorGreen, colorReset)
	if !ok {
		marker = fmt.Sprintf("%s[FAIL]%s", colorRed, colorReset)
	}
	fmt.Printf("%-60s%s\n", fmt.Sprintf(format, args...), marker)
}
