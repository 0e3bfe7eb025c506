package sigtrap

import (
	"os"

	"golang.org/x/sys/unix"
)

// Kind classifies the fatal signals the recorder knows how to label.
type Kind int

const (
	KindOther Kind = iota
	KindSegv
	KindAbort
	KindFPE
)

// KindOf maps an OS signal to its kind. Anything outside the three fatal
// signals this tool exists for is KindOther; the recorder still captures it,
// it just cannot name it.
func KindOf(sig os.Signal) Kind {
	switch sig {
	case unix.SIGSEGV:
		return KindSegv
	case unix.SIGABRT:
		return KindAbort
	case unix.SIGFPE:
		return KindFPE
	default:
		return KindOther
	}
}

// String returns the conventional signal name for the kind.
func (k Kind) String() string {
	switch k {
	case KindSegv:
		return "SIGSEGV"
	case KindAbort:
		return "SIGABRT"
	case KindFPE:
		return "SIGFPE"
	default:
		return "Unknown"
	}
}

// SignalName returns the display name used in dump headers.
func SignalName(sig os.Signal) string {
	return KindOf(sig).String()
}

// SignalNumber returns the numeric signal value, or -1 for a signal that is
// not a plain unix signal.
func SignalNumber(sig os.Signal) int {
	if s, ok := sig.(unix.Signal); ok {
		return int(s)
	}
	return -1
}

// FatalSignals returns the default registration set: segmentation
// violation, abort, and floating-point exception.
func FatalSignals() []os.Signal {
	return []os.Signal{unix.SIGSEGV, unix.SIGABRT, unix.SIGFPE}
}
