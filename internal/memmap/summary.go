package memmap

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// Class buckets a region by what backs it.
type Class string

const (
	ClassCode      Class = "code"      // file-backed, executable
	ClassData      Class = "data"      // file-backed, not executable
	ClassHeap      Class = "heap"      // [heap]
	ClassStack     Class = "stack"     // [stack] and per-thread stacks
	ClassAnonymous Class = "anonymous" // no backing object
	ClassSpecial   Class = "special"   // [vdso], [vvar], [vsyscall], ...
)

// Classify assigns a region to a bucket using the same rules the original
// pmap tooling applied: bracketed kernel regions first, then file-backed
// split by executability, everything else anonymous.
func Classify(r Region) Class {
	switch {
	case r.Path == "[heap]":
		return ClassHeap
	case r.Path == "[stack]" || strings.HasPrefix(r.Path, "[stack:"):
		return ClassStack
	case strings.HasPrefix(r.Path, "["):
		return ClassSpecial
	case r.Path != "":
		if r.Executable() {
			return ClassCode
		}
		return ClassData
	default:
		return ClassAnonymous
	}
}

// ClassStat aggregates the regions of one class.
type ClassStat struct {
	Regions int
	Bytes   uint64
}

// Summary is the aggregate view of one maps listing.
type Summary struct {
	Regions         int
	MappedBytes     uint64
	WritableBytes   uint64
	ExecutableBytes uint64
	ByClass         map[Class]ClassStat
}

// Summarize aggregates a parsed region list.
func Summarize(regions []Region) Summary {
	s := Summary{ByClass: make(map[Class]ClassStat)}
	for _, r := range regions {
		s.Regions++
		s.MappedBytes += r.Size()
		if r.Writable() {
			s.WritableBytes += r.Size()
		}
		if r.Executable() {
			s.ExecutableBytes += r.Size()
		}
		cls := Classify(r)
		st := s.ByClass[cls]
		st.Regions++
		st.Bytes += r.Size()
		s.ByClass[cls] = st
	}
	return s
}

// Render writes a human-readable summary, largest class first.
func (s Summary) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Regions:    %d\n", s.Regions); err != nil {
		return err
	}
	fmt.Fprintf(w, "Mapped:     %s\n", humanize.IBytes(s.MappedBytes))
	fmt.Fprintf(w, "Writable:   %s\n", humanize.IBytes(s.WritableBytes))
	fmt.Fprintf(w, "Executable: %s\n", humanize.IBytes(s.ExecutableBytes))

	classes := make([]Class, 0, len(s.ByClass))
	for c := range s.ByClass {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		a, b := s.ByClass[classes[i]], s.ByClass[classes[j]]
		if a.Bytes != b.Bytes {
			return a.Bytes > b.Bytes
		}
		return classes[i] < classes[j]
	})

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-10s %8s %10s\n", "Class", "Regions", "Size")
	fmt.Fprintln(w, strings.Repeat("─", 30))
	for _, c := range classes {
		st := s.ByClass[c]
		if _, err := fmt.Fprintf(w, "%-10s %8d %10s\n", c, st.Regions, humanize.IBytes(st.Bytes)); err != nil {
			return err
		}
	}
	return nil
}
