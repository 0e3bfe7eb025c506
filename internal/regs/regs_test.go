package regs

import (
	"strings"
	"testing"
)

// TestCapture_NilContext_ReturnsEmptySnapshot verifies that an absent
// machine context produces an explicitly empty snapshot rather than an
// error or a partial register list.
func TestCapture_NilContext_ReturnsEmptySnapshot(t *testing.T) {
	s := Capture(nil)
	if s.Arch != NativeArch {
		t.Errorf("Capture(nil).Arch = %q; want %q", s.Arch, NativeArch)
	}
	if !s.Empty() {
		t.Errorf("Capture(nil) returned %d registers; want 0", len(s.Registers))
	}
}

// TestFormat_EmptySnapshot_StatesContextUnavailable verifies that a
// supported-architecture snapshot with no registers still formats to a
// readable file body instead of an empty listing.
func TestFormat_EmptySnapshot_StatesContextUnavailable(t *testing.T) {
	var sb strings.Builder
	if err := Format(&sb, Snapshot{Arch: ArchAMD64}); err != nil {
		t.Fatalf("Format() failed: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "=== CPU REGISTERS (x86_64) ===") {
		t.Errorf("output missing architecture header:\n%s", out)
	}
	if !strings.Contains(out, "no machine context available") {
		t.Errorf("output missing context-unavailable note:\n%s", out)
	}
}

// TestFormat_UnsupportedSnapshot_StatesUnsupported verifies the degraded
// output for build targets without a known register layout.
func TestFormat_UnsupportedSnapshot_StatesUnsupported(t *testing.T) {
	var sb strings.Builder
	if err := Format(&sb, Snapshot{Arch: ArchUnsupported}); err != nil {
		t.Fatalf("Format() failed: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "=== CPU REGISTERS (unsupported) ===") {
		t.Errorf("output missing architecture header:\n%s", out)
	}
	if !strings.Contains(out, "architecture not supported") {
		t.Errorf("output missing unsupported note:\n%s", out)
	}
}

// TestFormat_ZeroPadsToWordSize verifies the fixed-width hex rendering for
// both word sizes.
func TestFormat_ZeroPadsToWordSize(t *testing.T) {
	var sb strings.Builder
	snap := Snapshot{
		Arch: ArchAMD64,
		Registers: []Register{
			{Name: "rip", Value: 0x4005a0, Bits: 64, Note: "program counter"},
			{Name: "r9", Value: 0x1, Bits: 64},
		},
	}
	if err := Format(&sb, snap); err != nil {
		t.Fatalf("Format() failed: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "rip:  00000000004005a0  (program counter)") {
		t.Errorf("64-bit value not zero-padded to 16 digits:\n%s", out)
	}
	if !strings.Contains(out, "r9:   0000000000000001") {
		t.Errorf("missing plain register line:\n%s", out)
	}

	sb.Reset()
	snap = Snapshot{
		Arch:      ArchARM,
		Registers: []Register{{Name: "pc", Value: 0x8ff0, Bits: 32, Note: "program counter"}},
	}
	if err := Format(&sb, snap); err != nil {
		t.Fatalf("Format() failed: %v", err)
	}
	if !strings.Contains(sb.String(), "pc:   00008ff0  (program counter)") {
		t.Errorf("32-bit value not zero-padded to 8 digits:\n%s", sb.String())
	}
}
