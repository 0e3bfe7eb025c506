package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/crashtrap/internal/output"
	"github.com/blackwell-systems/crashtrap/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged crashes",
	Long:  `Show the crash catalog, newest capture first.`,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	path, err := getDBPath()
	if err != nil {
		return fmt.Errorf("failed to get catalog path: %w", err)
	}

	st, err := store.New(path)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer st.Close()

	crashes, err := st.ListCrashes()
	if err != nil {
		if errors.Is(err, store.ErrNotInitialized) {
			fmt.Println("No crashes cataloged yet. Run 'crashtrap scan' first.")
			return nil
		}
		return err
	}

	fmt.Print(output.RenderCrashTable(crashes))
	return nil
}
