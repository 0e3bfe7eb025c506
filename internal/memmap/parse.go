package memmap

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Region is one line of a maps listing: an address range with its
// permissions and backing object.
type Region struct {
	Start  uint64
	End    uint64
	Perms  string // rwxp/rwxs flags exactly as procfs prints them
	Offset uint64
	Dev    string
	Inode  uint64
	Path   string // backing file, [heap], [stack], ... or empty for anonymous
}

// Size returns the extent of the region in bytes.
func (r Region) Size() uint64 {
	return r.End - r.Start
}

// Readable reports the r flag.
func (r Region) Readable() bool { return strings.Contains(r.Perms, "r") }

// Writable reports the w flag.
func (r Region) Writable() bool { return strings.Contains(r.Perms, "w") }

// Executable reports the x flag.
func (r Region) Executable() bool { return strings.Contains(r.Perms, "x") }

// ParseRegions parses a /proc/<pid>/maps listing. Blank lines are skipped;
// a malformed line aborts the parse so a truncated artifact is noticed
// rather than silently under-counted.
func ParseRegions(r io.Reader) ([]Region, error) {
	var regions []Region
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		reg, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("maps line %d: %w", lineNo, err)
		}
		regions = append(regions, reg)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read maps listing: %w", err)
	}
	return regions, nil
}

// parseLine parses one maps line of the form
//
//	55f1a2b40000-55f1a2b61000 r-xp 00000000 08:02 1234567   /usr/bin/foo
//
// where the trailing pathname is optional and may contain spaces
// (e.g. "/tmp/a file (deleted)").
func parseLine(line string) (Region, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return Region{}, fmt.Errorf("short line %q", line)
	}

	addrs := strings.SplitN(fields[0], "-", 2)
	if len(addrs) != 2 {
		return Region{}, fmt.Errorf("bad address range %q", fields[0])
	}
	start, err := strconv.ParseUint(addrs[0], 16, 64)
	if err != nil {
		return Region{}, fmt.Errorf("bad start address %q: %w", addrs[0], err)
	}
	end, err := strconv.ParseUint(addrs[1], 16, 64)
	if err != nil {
		return Region{}, fmt.Errorf("bad end address %q: %w", addrs[1], err)
	}
	if end < start {
		return Region{}, fmt.Errorf("inverted range %q", fields[0])
	}

	offset, err := strconv.ParseUint(fields[2], 16, 64)
	if err != nil {
		return Region{}, fmt.Errorf("bad offset %q: %w", fields[2], err)
	}
	inode, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return Region{}, fmt.Errorf("bad inode %q: %w", fields[4], err)
	}

	path := ""
	if len(fields) > 5 {
		path = strings.Join(fields[5:], " ")
	}

	return Region{
		Start:  start,
		End:    end,
		Perms:  fields[1],
		Offset: offset,
		Dev:    fields[3],
		Inode:  inode,
		Path:   path,
	}, nil
}
