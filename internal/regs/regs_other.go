//go:build !linux || !(amd64 || arm64 || arm)

package regs

// NativeArch is the register layout compiled into this binary. This build
// target has no known layout; snapshots are tagged unsupported and carry no
// registers, and callers still write a dump file saying so.
const NativeArch = ArchUnsupported

// Context is a placeholder on targets without a known register layout.
type Context struct{}

// Capture always returns an unsupported, register-free snapshot here.
func Capture(*Context) Snapshot {
	return Snapshot{Arch: NativeArch}
}

// ReadPtrace has no register layout to fill in on this target; callers get
// a nil context and degrade to a context-free capture.
func ReadPtrace(pid int) (*Context, error) {
	return nil, nil
}
