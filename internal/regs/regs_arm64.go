//go:build linux && arm64

package regs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// NativeArch is the register layout compiled into this binary.
const NativeArch = ArchARM64

// Context is the machine context the kernel reports for a stopped or
// faulting thread on AArch64. Regs[0..30] are x0..x30; x29 is the frame
// pointer and x30 the link register by convention. Only valid for the extent
// of the stop that produced it.
type Context struct {
	Regs unix.PtraceRegs
}

// Capture converts a machine context into the canonical AArch64 snapshot:
// pc, lr, sp, then x0..x29. x30 is reported as lr, so every one of the 31
// general-purpose registers appears exactly once.
func Capture(c *Context) Snapshot {
	if c == nil {
		return Snapshot{Arch: NativeArch}
	}
	r := &c.Regs
	out := []Register{
		{Name: "pc", Value: r.Pc, Bits: 64, Note: "program counter"},
		{Name: "lr", Value: r.Regs[30], Bits: 64, Note: "link register (x30)"},
		{Name: "sp", Value: r.Sp, Bits: 64, Note: "stack pointer"},
	}
	for i := 0; i <= 28; i++ {
		out = append(out, Register{Name: fmt.Sprintf("x%d", i), Value: r.Regs[i], Bits: 64})
	}
	out = append(out, Register{Name: "x29", Value: r.Regs[29], Bits: 64, Note: "frame pointer"})
	return Snapshot{Arch: NativeArch, Registers: out}
}

// ReadPtrace captures the machine context of a ptrace-stopped process. The
// caller owns the stop; the returned context is only meaningful while the
// process stays stopped.
func ReadPtrace(pid int) (*Context, error) {
	var c Context
	if err := unix.PtraceGetRegs(pid, &c.Regs); err != nil {
		return nil, err
	}
	return &c, nil
}
