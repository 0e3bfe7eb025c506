package store

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertCrash inserts or replaces a crash record. Replacement keys on the
// ingest id, so re-scanning a dump directory is idempotent when the watcher
// reuses ids and additive when it does not.
func (s *Store) InsertCrash(c *Crash) error {
	query := `
		INSERT OR REPLACE INTO crashes
		(id, pid, signal, signal_name, arch, regs_path, maps_path, region_count, mapped_bytes, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		c.ID,
		c.PID,
		c.Signal,
		c.SignalName,
		c.Arch,
		c.RegsPath,
		c.MapsPath,
		c.RegionCount,
		c.MappedBytes,
		c.RecordedAt.Format(time.RFC3339),
	)

	if err != nil {
		return wrapSchemaErr(fmt.Errorf("failed to insert crash %s: %w", c.ID, err))
	}

	return nil
}

// GetCrash retrieves a crash record by ingest id.
func (s *Store) GetCrash(id string) (*Crash, error) {
	query := `
		SELECT id, pid, signal, signal_name, arch, regs_path, maps_path, region_count, mapped_bytes, recorded_at
		FROM crashes
		WHERE id = ?
	`

	c, err := scanCrash(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("crash %s not found", id)
	}
	if err != nil {
		return nil, wrapSchemaErr(fmt.Errorf("failed to get crash %s: %w", id, err))
	}
	return c, nil
}

// GetCrashByRegsPath retrieves the crash record cataloged for a register
// dump path, or nil if that artifact has not been ingested.
func (s *Store) GetCrashByRegsPath(path string) (*Crash, error) {
	query := `
		SELECT id, pid, signal, signal_name, arch, regs_path, maps_path, region_count, mapped_bytes, recorded_at
		FROM crashes
		WHERE regs_path = ?
	`

	c, err := scanCrash(s.db.QueryRow(query, path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapSchemaErr(fmt.Errorf("failed to look up artifact %s: %w", path, err))
	}
	return c, nil
}

// ListCrashes returns all crash records, newest first.
func (s *Store) ListCrashes() ([]*Crash, error) {
	query := `
		SELECT id, pid, signal, signal_name, arch, regs_path, maps_path, region_count, mapped_bytes, recorded_at
		FROM crashes
		ORDER BY recorded_at DESC, id
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrapSchemaErr(fmt.Errorf("failed to list crashes: %w", err))
	}
	defer rows.Close()

	var crashes []*Crash
	for rows.Next() {
		c, err := scanCrash(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crash row: %w", err)
		}
		crashes = append(crashes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crashes: %w", err)
	}

	return crashes, nil
}

// CountCrashes returns the number of cataloged crashes.
func (s *Store) CountCrashes() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM crashes").Scan(&count)
	if err != nil {
		return 0, wrapSchemaErr(fmt.Errorf("failed to count crashes: %w", err))
	}
	return count, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCrash(row scanner) (*Crash, error) {
	var c Crash
	var recordedAt string

	err := row.Scan(
		&c.ID,
		&c.PID,
		&c.Signal,
		&c.SignalName,
		&c.Arch,
		&c.RegsPath,
		&c.MapsPath,
		&c.RegionCount,
		&c.MappedBytes,
		&recordedAt,
	)
	if err != nil {
		return nil, err
	}

	c.RecordedAt, err = time.Parse(time.RFC3339, recordedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recorded_at for %s: %w", c.ID, err)
	}

	return &c, nil
}
