//go:build linux && amd64

package regs

import "golang.org/x/sys/unix"

// NativeArch is the register layout compiled into this binary.
const NativeArch = ArchAMD64

// Context is the machine context the kernel reports for a stopped or
// faulting thread on x86-64. It is only valid for the duration of the
// handler or ptrace-stop that produced it and must not be retained.
type Context struct {
	Regs unix.PtraceRegs
}

// Capture converts a machine context into the canonical x86-64 snapshot:
// instruction pointer, stack pointer, frame pointer, then the remaining
// general-purpose registers in conventional dump order. A nil context yields
// an explicitly empty snapshot.
func Capture(c *Context) Snapshot {
	if c == nil {
		return Snapshot{Arch: NativeArch}
	}
	r := &c.Regs
	return Snapshot{
		Arch: NativeArch,
		Registers: []Register{
			{Name: "rip", Value: r.Rip, Bits: 64, Note: "program counter"},
			{Name: "rsp", Value: r.Rsp, Bits: 64, Note: "stack pointer"},
			{Name: "rbp", Value: r.Rbp, Bits: 64, Note: "frame pointer"},
			{Name: "rax", Value: r.Rax, Bits: 64},
			{Name: "rbx", Value: r.Rbx, Bits: 64},
			{Name: "rcx", Value: r.Rcx, Bits: 64},
			{Name: "rdx", Value: r.Rdx, Bits: 64},
			{Name: "rsi", Value: r.Rsi, Bits: 64},
			{Name: "rdi", Value: r.Rdi, Bits: 64},
			{Name: "r8", Value: r.R8, Bits: 64},
			{Name: "r9", Value: r.R9, Bits: 64},
			{Name: "r10", Value: r.R10, Bits: 64},
			{Name: "r11", Value: r.R11, Bits: 64},
			{Name: "r12", Value: r.R12, Bits: 64},
			{Name: "r13", Value: r.R13, Bits: 64},
			{Name: "r14", Value: r.R14, Bits: 64},
			{Name: "r15", Value: r.R15, Bits: 64},
		},
	}
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
