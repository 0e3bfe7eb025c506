package store

const schema = `
CREATE TABLE IF NOT EXISTS crashes (
    id TEXT PRIMARY KEY,
    pid INTEGER NOT NULL,
    signal INTEGER NOT NULL,
    signal_name TEXT NOT NULL,
    arch TEXT,
    regs_path TEXT,
    maps_path TEXT,
    region_count INTEGER,
    mapped_bytes INTEGER,
    recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_crashes_pid ON crashes(pid);
CREATE INDEX IF NOT EXISTS idx_crashes_recorded ON crashes(recorded_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_crashes_regs_path ON crashes(regs_path);
`
