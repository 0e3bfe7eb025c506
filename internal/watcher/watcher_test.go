package watcher

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/blackwell-systems/crashtrap/internal/regs"
	"github.com/blackwell-systems/crashtrap/internal/sigtrap"
	"github.com/blackwell-systems/crashtrap/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	return st
}

// recordSelf produces a real artifact pair for the test process in dir.
func recordSelf(t *testing.T, dir string) string {
	t.Helper()
	rec := sigtrap.New(dir, io.Discard)
	if err := rec.Record(sigtrap.FaultEvent{Signal: unix.SIGSEGV, PID: os.Getpid()}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	return sigtrap.RegsPath(dir, os.Getpid())
}

// writeFakeArtifact fabricates an artifact pair for an arbitrary pid.
func writeFakeArtifact(t *testing.T, dir string, pid, sig int, name string) string {
	t.Helper()
	regsPath := filepath.Join(dir, fmt.Sprintf("crash_dump_%d.regs", pid))
	body := fmt.Sprintf(
		"=== CRASH CONTEXT ===\nSignal: %d (%s)\nPID: %d\n\n=== CPU REGISTERS (x86_64) ===\nrip:  00000000004005a0  (program counter)\n",
		sig, name, pid)
	if err := os.WriteFile(regsPath, []byte(body), 0644); err != nil {
		t.Fatalf("write fake register dump: %v", err)
	}
	mapsBody := "00400000-00500000 r-xp 00000000 08:02 123                        /usr/bin/demo\n"
	if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("crash_dump_%d.maps", pid)), []byte(mapsBody), 0644); err != nil {
		t.Fatalf("write fake memory map dump: %v", err)
	}
	return regsPath
}

// TestParseDumpHeader_RoundTrip verifies that the header written by the
// recorder parses back into the same signal, pid, and architecture tag.
func TestParseDumpHeader_RoundTrip(t *testing.T) {
	regsPath := recordSelf(t, t.TempDir())

	h, err := ParseDumpHeader(regsPath)
	if err != nil {
		t.Fatalf("ParseDumpHeader() failed: %v", err)
	}
	if h.Signal != 11 || h.SignalName != "SIGSEGV" {
		t.Errorf("header signal = %d (%s); want 11 (SIGSEGV)", h.Signal, h.SignalName)
	}
	if h.PID != os.Getpid() {
		t.Errorf("header pid = %d; want %d", h.PID, os.Getpid())
	}
	if h.Arch != string(regs.NativeArch) {
		t.Errorf("header arch = %q; want %q", h.Arch, regs.NativeArch)
	}
}

// TestParseDumpHeader_NoHeader_Fails verifies that a file without a
// crash-context header is rejected.
func TestParseDumpHeader_NoHeader_Fails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crash_dump_1.regs")
	if err := os.WriteFile(path, []byte("not a dump\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := ParseDumpHeader(path); err == nil {
		t.Fatal("ParseDumpHeader() should fail without a header")
	}
}

// TestParseDumpRegisters_ListingAndNotes verifies the register parse-back:
// values, file order, and the role annotations the report tooling keys on.
func TestParseDumpRegisters_ListingAndNotes(t *testing.T) {
	dir := t.TempDir()
	regsPath := filepath.Join(dir, "crash_dump_55.regs")
	body := "=== CRASH CONTEXT ===\n" +
		"Signal: 11 (SIGSEGV)\n" +
		"PID: 55\n\n" +
		"=== CPU REGISTERS (x86_64) ===\n" +
		"rip:  00000000004005a0  (program counter)\n" +
		"rsp:  00007ffd5c001000  (stack pointer)\n" +
		"rax:  0000000000000001\n"
	if err := os.WriteFile(regsPath, []byte(body), 0644); err != nil {
		t.Fatalf("write register dump: %v", err)
	}

	regs, err := ParseDumpRegisters(regsPath)
	if err != nil {
		t.Fatalf("ParseDumpRegisters() failed: %v", err)
	}
	if len(regs) != 3 {
		t.Fatalf("parsed %d registers; want 3", len(regs))
	}
	if regs[0].Name != "rip" || regs[0].Value != 0x4005a0 || regs[0].Note != "program counter" {
		t.Errorf("first register = %+v; want rip 0x4005a0 (program counter)", regs[0])
	}
	if regs[1].Name != "rsp" || regs[1].Value != 0x7ffd5c001000 {
		t.Errorf("second register = %+v; want rsp 0x7ffd5c001000", regs[1])
	}
	if regs[2].Name != "rax" || regs[2].Note != "" {
		t.Errorf("third register = %+v; want rax with no note", regs[2])
	}
}

// TestParseDumpRegisters_DegradedDump_IsEmpty verifies that a context-free
// dump parses to no registers rather than an error.
func TestParseDumpRegisters_DegradedDump_IsEmpty(t *testing.T) {
	regsPath := recordSelf(t, t.TempDir())

	regs, err := ParseDumpRegisters(regsPath)
	if err != nil {
		t.Fatalf("ParseDumpRegisters() failed: %v", err)
	}
	if len(regs) != 0 {
		t.Errorf("parsed %d registers from a context-free dump; want 0", len(regs))
	}
}

// TestIngestArtifact_CatalogsCrash verifies a full ingest: header fields,
// maps pairing, region totals, and duplicate suppression on re-ingest.
func TestIngestArtifact_CatalogsCrash(t *testing.T) {
	dir := t.TempDir()
	st := newTestStore(t)
	regsPath := recordSelf(t, dir)

	c, err := IngestArtifact(st, regsPath)
	if err != nil {
		t.Fatalf("IngestArtifact() failed: %v", err)
	}
	if c == nil {
		t.Fatal("IngestArtifact() returned nil for a new artifact")
	}
	if c.ID == "" {
		t.Error("ingested crash has no id")
	}
	if c.PID != os.Getpid() || c.SignalName != "SIGSEGV" {
		t.Errorf("ingested crash = pid %d %s; want pid %d SIGSEGV", c.PID, c.SignalName, os.Getpid())
	}
	if c.RegionCount == 0 || c.MappedBytes == 0 {
		t.Errorf("region totals = (%d, %d); want non-zero for a live maps dump", c.RegionCount, c.MappedBytes)
	}

	dup, err := IngestArtifact(st, regsPath)
	if err != nil {
		t.Fatalf("second IngestArtifact() failed: %v", err)
	}
	if dup != nil {
		t.Error("re-ingesting the same artifact should be a no-op")
	}
}

// TestIngestArtifact_MissingMaps_Degrades verifies that a register dump
// with no maps sibling is still cataloged, with zero region totals.
func TestIngestArtifact_MissingMaps_Degrades(t *testing.T) {
	dir := t.TempDir()
	st := newTestStore(t)
	regsPath := writeFakeArtifact(t, dir, 9999, 8, "SIGFPE")
	if err := os.Remove(filepath.Join(dir, "crash_dump_9999.maps")); err != nil {
		t.Fatalf("remove maps sibling: %v", err)
	}

	c, err := IngestArtifact(st, regsPath)
	if err != nil {
		t.Fatalf("IngestArtifact() failed: %v", err)
	}
	if c == nil {
		t.Fatal("IngestArtifact() returned nil")
	}
	if c.MapsPath != "" || c.RegionCount != 0 || c.MappedBytes != 0 {
		t.Errorf("degraded ingest = (%q, %d, %d); want empty maps fields", c.MapsPath, c.RegionCount, c.MappedBytes)
	}
	if c.SignalName != "SIGFPE" || c.Signal != 8 {
		t.Errorf("signal = %d (%s); want 8 (SIGFPE)", c.Signal, c.SignalName)
	}
}

// TestScan_IngestsAllArtifacts verifies the one-shot walk: every artifact
// pair is cataloged once, and a second scan finds nothing new.
func TestScan_IngestsAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	st := newTestStore(t)
	writeFakeArtifact(t, dir, 100, 11, "SIGSEGV")
	writeFakeArtifact(t, dir, 200, 6, "SIGABRT")

	n, err := Scan(st, dir)
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Scan() ingested %d; want 2", n)
	}

	n, err = Scan(st, dir)
	if err != nil {
		t.Fatalf("second Scan() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second Scan() ingested %d; want 0", n)
	}

	count, err := st.CountCrashes()
	if err != nil {
		t.Fatalf("CountCrashes() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("catalog has %d crashes; want 2", count)
	}
}

// TestWatcher_WaitsForMapsContent verifies that the capture is cataloged
// from its final content when the maps file is created empty and filled in
// later, the way the recorder writes it: the create event alone must not
// produce a zero-region row.
func TestWatcher_WaitsForMapsContent(t *testing.T) {
	dir := t.TempDir()
	st := newTestStore(t)

	w, err := New(st, dir, io.Discard)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	regsPath := filepath.Join(dir, "crash_dump_777.regs")
	body := "=== CRASH CONTEXT ===\nSignal: 11 (SIGSEGV)\nPID: 777\n\n=== CPU REGISTERS (x86_64) ===\nrip:  00000000004005a0  (program counter)\n"
	if err := os.WriteFile(regsPath, []byte(body), 0644); err != nil {
		t.Fatalf("write register dump: %v", err)
	}

	mapsPath := filepath.Join(dir, "crash_dump_777.maps")
	f, err := os.Create(mapsPath)
	if err != nil {
		t.Fatalf("create memory map dump: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if _, err := f.WriteString("00400000-00500000 r-xp 00000000 08:02 123                        /usr/bin/demo\n"); err != nil {
		t.Fatalf("write memory map dump: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close memory map dump: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c, err := st.GetCrashByRegsPath(regsPath)
		if err != nil {
			t.Fatalf("GetCrashByRegsPath() failed: %v", err)
		}
		if c != nil {
			if c.RegionCount != 1 || c.MappedBytes == 0 || c.MapsPath != mapsPath {
				t.Fatalf("cataloged from incomplete maps file: regions=%d mapped=%d maps=%q",
					c.RegionCount, c.MappedBytes, c.MapsPath)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("capture was not cataloged within 5s of the maps content landing")
}

// TestWatcher_CatalogsNewArtifacts verifies the event-driven path: an
// artifact pair written after Start is cataloged without a rescan.
func TestWatcher_CatalogsNewArtifacts(t *testing.T) {
	dir := t.TempDir()
	st := newTestStore(t)

	w, err := New(st, dir, io.Discard)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	writeFakeArtifact(t, dir, 300, 11, "SIGSEGV")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		count, err := st.CountCrashes()
		if err != nil {
			t.Fatalf("CountCrashes() failed: %v", err)
		}
		if count == 1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("artifact was not cataloged within 5s of being written")
}
