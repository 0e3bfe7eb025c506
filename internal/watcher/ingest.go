package watcher

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/crashtrap/internal/memmap"
	"github.com/blackwell-systems/crashtrap/internal/store"
)

// regsPattern matches register-dump artifact names produced by the
// recorder.
const regsPattern = "crash_dump_*.regs"

// DumpHeader is the metadata parsed back out of a register-dump artifact.
type DumpHeader struct {
	Signal     int
	SignalName string
	PID        int
	Arch       string
}

// ParseDumpHeader reads the crash-context header of a register dump:
// signal number and name, pid, and the architecture tag of the register
// listing.
func ParseDumpHeader(path string) (*DumpHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open register dump: %w", err)
	}
	defer f.Close()

	h := &DumpHeader{Signal: -1, PID: -1}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "Signal: "):
			rest := strings.TrimPrefix(line, "Signal: ")
			numStr, nameStr, found := strings.Cut(rest, " (")
			if !found {
				return nil, fmt.Errorf("malformed signal line %q", line)
			}
			num, err := strconv.Atoi(strings.TrimSpace(numStr))
			if err != nil {
				return nil, fmt.Errorf("malformed signal number in %q: %w", line, err)
			}
			h.Signal = num
			h.SignalName = strings.TrimSuffix(nameStr, ")")

		case strings.HasPrefix(line, "PID: "):
			pid, err := strconv.Atoi(strings.TrimPrefix(line, "PID: "))
			if err != nil {
				return nil, fmt.Errorf("malformed pid line %q: %w", line, err)
			}
			h.PID = pid

		case strings.HasPrefix(line, "=== CPU REGISTERS ("):
			arch := strings.TrimPrefix(line, "=== CPU REGISTERS (")
			h.Arch = strings.TrimSuffix(arch, ") ===")
			// header block ends at the register listing
			if h.Signal >= 0 && h.PID >= 0 {
				return h, nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read register dump: %w", err)
	}
	if h.Signal < 0 || h.PID < 0 {
		return nil, fmt.Errorf("register dump %s has no crash-context header", path)
	}
	return h, nil
}

// DumpRegister is one parsed register line of a register-dump artifact.
type DumpRegister struct {
	Name  string
	Value uint64
	Note  string
}

// ParseDumpRegisters reads the register listing of a register dump, in file
// order. A degraded dump (no machine context, or an unsupported
// architecture) parses to an empty list, not an error.
func ParseDumpRegisters(path string) ([]DumpRegister, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open register dump: %w", err)
	}
	defer f.Close()

	var out []DumpRegister
	listing := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "=== CPU REGISTERS (") {
			listing = true
			continue
		}
		if !listing || line == "" {
			continue
		}
		name, rest, found := strings.Cut(line, ":")
		if !found {
			// prose line of a degraded dump
			continue
		}
		valStr, noteStr, _ := strings.Cut(rest, "(")
		val, err := strconv.ParseUint(strings.TrimSpace(valStr), 16, 64)
		if err != nil {
			continue
		}
		out = append(out, DumpRegister{
			Name:  name,
			Value: val,
			Note:  strings.TrimSuffix(strings.TrimSpace(noteStr), ")"),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read register dump: %w", err)
	}
	return out, nil
}

// IngestArtifact catalogs one register-dump artifact, pairing it with its
// .maps sibling when present. Already-cataloged artifacts are skipped; the
// returned Crash is nil in that case. A missing or unreadable maps sibling
// degrades to zero region counts rather than failing the ingest.
func IngestArtifact(st *store.Store, regsPath string) (*store.Crash, error) {
	existing, err := st.GetCrashByRegsPath(regsPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	header, err := ParseDumpHeader(regsPath)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", regsPath, err)
	}

	c := &store.Crash{
		ID:         uuid.NewString(),
		PID:        header.PID,
		Signal:     header.Signal,
		SignalName: header.SignalName,
		Arch:       header.Arch,
		RegsPath:   regsPath,
		RecordedAt: time.Now().UTC(),
	}
	if info, err := os.Stat(regsPath); err == nil {
		c.RecordedAt = info.ModTime().UTC()
	}

	mapsPath := strings.TrimSuffix(regsPath, ".regs") + ".maps"
	if f, err := os.Open(mapsPath); err == nil {
		regions, parseErr := memmap.ParseRegions(f)
		f.Close()
		if parseErr == nil {
			c.MapsPath = mapsPath
			c.RegionCount = len(regions)
			for _, r := range regions {
				c.MappedBytes += r.Size()
			}
		}
	}

	if err := st.InsertCrash(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Scan walks the dump directory once and catalogs every register-dump
// artifact found, returning how many new crashes were ingested.
func Scan(st *store.Store, dir string) (int, error) {
	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir {
				return fs.SkipDir // artifacts live flat in the dump dir
			}
			return nil
		}
		if ok, _ := filepath.Match(regsPattern, d.Name()); ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan dump directory %s: %w", dir, err)
	}

	ingested := 0
	for _, path := range matches {
		c, err := IngestArtifact(st, path)
		if err != nil {
			return ingested, err
		}
		if c != nil {
			ingested++
		}
	}
	return ingested, nil
}
