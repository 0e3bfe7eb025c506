// Package memmap reads and interprets Linux /proc/<pid>/maps listings.
//
// The crash recorder copies the listing verbatim into the .maps artifact;
// the report tooling parses artifacts (or live processes) into regions and
// aggregates them by classification.
package memmap

import (
	"fmt"
	"io"
	"os"
)

// Path returns the procfs maps path for a process.
func Path(pid int) string {
	return fmt.Sprintf("/proc/%d/maps", pid)
}

// WriteMaps copies the kernel's memory-map listing for pid to w, byte for
// byte. The listing reflects the address space at the moment of the read,
// which inside a crash handler is the moment of the fault. Reading procfs
// directly avoids spawning a subprocess from the handling path.
func WriteMaps(w io.Writer, pid int) error {
	f, err := os.Open(Path(pid))
	if err != nil {
		return fmt.Errorf("open memory map for pid %d: %w", pid, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy memory map for pid %d: %w", pid, err)
	}
	return nil
}
