// Package regs converts the machine context delivered by the kernel at
// fault time into an architecture-tagged register snapshot.
//
// The register layout is entirely ABI-defined, so each supported target
// (linux/amd64, linux/arm64, linux/arm) has its own build-tagged file that
// knows the field names and canonical dump order for that architecture.
// Everything downstream of Capture is architecture-agnostic: it sees an
// ordered list of named values and a word width, nothing else.
package regs

import (
	"fmt"
	"io"
)

// Arch identifies which register file a snapshot describes.
type Arch string

const (
	ArchAMD64       Arch = "x86_64"
	ArchARM64       Arch = "aarch64"
	ArchARM         Arch = "arm"
	ArchUnsupported Arch = "unsupported"
)

// Register is one named register value. Bits is the architecture word size
// (64 or 32) and controls hex padding. Note carries the conventional role of
// special registers (program counter, stack pointer, ...) and is empty for
// plain general-purpose registers.
type Register struct {
	Name  string
	Value uint64
	Bits  int
	Note  string
}

// Snapshot is the full register file captured from one machine context.
// The register list is fixed and ordered per architecture; an unsupported
// target or an absent context yields zero registers.
type Snapshot struct {
	Arch      Arch
	Registers []Register
}

// Empty reports whether the snapshot carries no register values, either
// because the build target is unsupported or because no machine context was
// available at fault time.
func (s Snapshot) Empty() bool {
	return len(s.Registers) == 0
}

// Supported reports whether the build target has a known register layout.
func (s Snapshot) Supported() bool {
	return s.Arch != ArchUnsupported
}

// Format writes the snapshot as a plain-text register listing: an
// architecture header followed by one "name: value" line per register,
// values zero-padded to the architecture word size.
func Format(w io.Writer, s Snapshot) error {
	if _, err := fmt.Fprintf(w, "=== CPU REGISTERS (%s) ===\n", s.Arch); err != nil {
		return err
	}
	if !s.Supported() {
		_, err := fmt.Fprintln(w, "architecture not supported, no registers captured")
		return err
	}
	if s.Empty() {
		_, err := fmt.Fprintln(w, "no machine context available, registers not captured")
		return err
	}
	for _, r := range s.Registers {
		var err error
		if r.Note != "" {
			_, err = fmt.Fprintf(w, "%-5s %s  (%s)\n", r.Name+":", hexValue(r), r.Note)
		} else {
			_, err = fmt.Fprintf(w, "%-5s %s\n", r.Name+":", hexValue(r))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func hexValue(r Register) string {
	if r.Bits == 32 {
		return fmt.Sprintf("%08x", r.Value)
	}
	return fmt.Sprintf("%016x", r.Value)
}
