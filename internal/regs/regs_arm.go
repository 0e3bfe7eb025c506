//go:build linux && arm

package regs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// NativeArch is the register layout compiled into this binary.
const NativeArch = ArchARM

// Context is the machine context the kernel reports for a stopped or
// faulting thread on 32-bit ARM. Uregs[0..15] are r0..r15 in the kernel's
// user_regs layout (r11 frame pointer, r13 sp, r14 lr, r15 pc), followed by
// cpsr and orig_r0. Only valid for the extent of the stop that produced it.
type Context struct {
	Regs unix.PtraceRegs
}

func (c *Context) ureg(i int) uint64 {
	return uint64(c.Regs.Uregs[i])
}

// Capture converts a machine context into the canonical 32-bit ARM
// snapshot: pc, lr, sp, fp, then the remaining general-purpose registers.
// Every one of r0..r15 appears exactly once.
func Capture(c *Context) Snapshot {
	if c == nil {
		return Snapshot{Arch: NativeArch}
	}
	out := []Register{
		{Name: "pc", Value: c.ureg(15), Bits: 32, Note: "program counter"},
		{Name: "lr", Value: c.ureg(14), Bits: 32, Note: "link register"},
		{Name: "sp", Value: c.ureg(13), Bits: 32, Note: "stack pointer"},
		{Name: "fp", Value: c.ureg(11), Bits: 32, Note: "frame pointer (r11)"},
	}
	for i := 0; i <= 10; i++ {
		out = append(out, Register{Name: fmt.Sprintf("r%d", i), Value: c.ureg(i), Bits: 32})
	}
	out = append(out, Register{Name: "r12", Value: c.ureg(12), Bits: 32})
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
