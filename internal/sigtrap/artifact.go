package sigtrap

import (
	"fmt"
	"path/filepath"
)

// Artifact names are deterministic per pid and kind: a repeat capture for
// the same process overwrites its own files instead of colliding with
// another process's.

// RegsPath returns the register-dump artifact path for a process.
func RegsPath(dir string, pid int) string {
	return filepath.Join(dir, fmt.Sprintf("crash_dump_%d.regs", pid))
}

// MapsPath returns the memory-map artifact path for a process.
func MapsPath(dir string, pid int) string {
	return filepath.Join(dir, fmt.Sprintf("crash_dump_%d.maps", pid))
}
