package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	dbPath  string
	dumpDir string

	// RootCmd is the root command for crashtrap
	RootCmd = &cobra.Command{
		Use:   "crashtrap",
		Short: "Capture CPU registers and memory maps when a process crashes",
		Long: `crashtrap records crash diagnostics for processes that die on a fatal
signal (SIGSEGV, SIGABRT, SIGFPE): the CPU register state at the moment of
the fault and a verbatim copy of the process's memory map, written as
crash_dump_<pid>.regs and crash_dump_<pid>.maps.

Capture modes:
  • run:  supervise a target program and capture its registers on fault
  • demo: crash on purpose with the in-process handler installed

Around the captures, crashtrap keeps a small catalog:
  • scan/watch: ingest dump artifacts into a local SQLite catalog
  • list:       browse cataloged crashes
  • report:     summarize a memory-map dump by region class

Examples:
  # Capture a crashing program's registers
  crashtrap run -- ./flaky-server --port 8080

  # Trigger a demonstration fault
  crashtrap demo --mode segv

  # Catalog and inspect past captures
  crashtrap scan
  crashtrap list
  crashtrap report crash_dump_4321.maps`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("crashtrap: crash-diagnostics capture for fatal signals")
			fmt.Println()
			fmt.Println("Run 'crashtrap run -- <command>' to capture a crashing program.")
			fmt.Println("Run 'crashtrap --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "catalog database path (default: ~/.crashtrap/crashtrap.db)")
	RootCmd.PersistentFlags().StringVar(&dumpDir, "dir", ".", "dump directory for crash artifacts")

	RootCmd.SuggestionsMinimumDistance = 2

	// Register subcommands
	RootCmd.AddCommand(demoCmd)
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(scanCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(reportCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// getDBPath returns the catalog path, using the flag value or default
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	crashtrapDir := filepath.Join(home, ".crashtrap")
	if err := os.MkdirAll(crashtrapDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create crashtrap directory: %w", err)
	}

	return filepath.Join(crashtrapDir, "crashtrap.db"), nil
}
