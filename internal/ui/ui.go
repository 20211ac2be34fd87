// Package ui provides colored console output for stevedore commands.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	// Colors
	Red    = color.New(color.FgRed)
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Blue   = color.New(color.FgBlue)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
)

// Success prints a green success message with checkmark.
func Success(format string, args ...any) {
	Green.Printf("✓ "+format+"\n", args...)
}

// Error prints a red error message with X.
func Error(format string, args ...any) {
	Red.Printf("✗ "+format+"\n", args...)
}

// Warning prints a yellow warning message.
func Warning(format string, args ...any) {
	Yellow.Printf("⚠ "+format+"\n", args...)
}

// Info prints a blue info message.
func Info(format string, args ...any) {
	Blue.Printf(format+"\n", args...)
}

// Step prints a numbered step in cyan.
func Step(n int, format string, args ...any) {
	Cyan.Printf("[%d] ", n)
	fmt.Printf(format+"\n", args...)
}

// Header prints a bold header.
func Header(format string, args ...any) {
	Bold.Printf(format+"\n", args...)
}

// Label prints a small boxed banner around the given text.
func Label(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	fill := strings.Repeat("-", len(text))

	Cyan.Printf("/-%s-\\\n", fill)
	Cyan.Printf("| %s |\n", text)
	Cyan.Printf("\\-%s-/\n", fill)
}

// BigLabel prints a large boxed banner around the given text, with padding.
func BigLabel(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	fill := strings.Repeat("-", len(text))
	pad := strings.Repeat(" ", len(text))

	fmt.Println()
	Bold.Printf("/---%s---\\\n", fill)
	Bold.Printf("|   %s   |\n", pad)
	Bold.Printf("|   %s   |\n", text)
	Bold.Printf("|   %s   |\n", pad)
	Bold.Printf("\\---%s---/\n", fill)
	fmt.Println()
}

// Fatal prints an error to stderr and exits.
func Fatal(format string, args ...any) {
	Red.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
	os.Exit(1)
}
