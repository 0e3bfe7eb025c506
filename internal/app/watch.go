package app

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/blackwell-systems/crashtrap/internal/store"
	"github.com/blackwell-systems/crashtrap/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the dump directory and catalog new crashes",
	Long: `Watch the dump directory for new crash artifacts and catalog each one
as it lands. Artifacts already present are cataloged on startup, so a watch
session starts from a complete view.

Runs in the foreground; stop with Ctrl+C.`,
	Example: `  crashtrap watch
  crashtrap watch --dir /tmp/dumps`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	w, err := watcher.New(st, dumpDir, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return err
	}

	fmt.Printf("Watching %s for crash artifacts. Press Ctrl+C to stop.\n", dumpDir)

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, unix.SIGTERM)
	<-stopCh

	fmt.Println("\nStopping watcher...")
	return w.Stop()
}
