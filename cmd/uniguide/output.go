package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorAccent  = lipgloss.Color("#20B9B4")
	colorMuted   = lipgloss.Color("#6C7A89")
)

var styles = struct {
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Step    lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Title   lipgloss.Style
	User    lipgloss.Style
	Bot     lipgloss.Style
}{
	Success: lipgloss.NewStyle().Foreground(colorSuccess),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Step:    lipgloss.NewStyle().Foreground(colorAccent),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	User:    lipgloss.NewStyle().Bold(true).Foreground(colorWarning),
	Bot:     lipgloss.NewStyle().Bold(true).Foreground(colorSuccess),
}

func render(s lipgloss.Style, text string) string {
	if noColor {
		return text
	}
	return s.Render(text)
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, render(styles.Success, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, render(styles.Error, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, render(styles.Warning, "⚠ "+msg))
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, render(styles.Step, "→ "+msg))
}

func printStatus(w io.Writer, label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	fmt.Fprintf(w, "  %s %s\n", render(styles.Bold, label+":"), val)
}

func checkbox(done bool) string {
	if done {
		return render(styles.Success, "[x]")
	}
	return "[ ]"
}
