package store

import "time"

// Crash is one catalog row: a captured fault and where its artifacts live.
type Crash struct {
	ID          string // ingest id, assigned by the watcher
	PID         int
	Signal      int
	SignalName  string
	Arch        string
	RegsPath    string
	MapsPath    string
	RegionCount int
	MappedBytes uint64
	RecordedAt  time.Time
}
