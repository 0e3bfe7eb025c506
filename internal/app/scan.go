package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/crashtrap/internal/store"
	"github.com/blackwell-systems/crashtrap/internal/watcher"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Catalog crash artifacts already in the dump directory",
	Long: `Walk the dump directory once and add every crash_dump_<pid>.regs
artifact (paired with its .maps sibling when present) to the catalog.
Artifacts that are already cataloged are skipped, so scanning is safe to
repeat.`,
	Example: `  crashtrap scan
  crashtrap scan --dir /tmp/dumps`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	path, err := getDBPath()
	if err != nil {
		return fmt.Errorf("failed to get catalog path: %w", err)
	}

	st, err := store.New(path)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer st.Close()

	if err := st.CreateSchema(); err != nil {
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}

	n, err := watcher.Scan(st, dumpDir)
	if err != nil {
		return err
	}

	total, err := st.CountCrashes()
	if err != nil {
		return err
	}

	fmt.Printf("Cataloged %d new artifact(s) from %s (%d total).\n", n, dumpDir, total)
	return nil
}
