// Package output provides terminal output utilities for crashtrap.
//
// Table rendering uses ASCII characters with ANSI color accents for
// terminal output; colors are guarded by a TTY check and NO_COLOR so piped
// output stays plain.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/crashtrap/internal/store"
)

// ANSI color codes for signal display
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// RenderCrashTable renders the crash catalog, one row per captured fault.
// Rows are expected pre-sorted (the store lists newest first).
func RenderCrashTable(crashes []*store.Crash) string {
	if len(crashes) == 0 {
		return "No crashes cataloged.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-10s %-8s %-9s %-9s %8s %9s  %-13s\n",
		"ID", "PID", "Signal", "Arch", "Regions", "Mapped", "Recorded"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, c := range crashes {
		signal := c.SignalName
		if IsColorEnabled() {
			signal = signalColor(c.SignalName) + signal + colorReset
		}
		sb.WriteString(fmt.Sprintf("%-10s %-8d %-9s %-9s %8d %9s  %-13s\n",
			shortID(c.ID),
			c.PID,
			signal,
			c.Arch,
			c.RegionCount,
			humanize.IBytes(c.MappedBytes),
			formatRelativeTime(c.RecordedAt)))
	}

	return sb.String()
}

// signalColor picks a color per severity: memory faults red, everything
// else yellow.
func signalColor(name string) string {
	switch name {
	case "SIGSEGV":
		return colorRed
	default:
		return colorYellow
	}
}

// shortID truncates an ingest uuid to its first group for display.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatRelativeTime renders a timestamp as a relative age.
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.RelTime(t, time.Now(), "ago", "from now")
}
