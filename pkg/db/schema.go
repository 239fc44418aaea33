package db

// Schema defines the SQLite database schema for provisioning history.
// runs holds one row per install attempt, stage_events the stage
// boundaries of each run, and downloads the ISOs fetched from S3.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL CHECK(status IN ('running', 'succeeded', 'failed')),
    disk INTEGER,
    boot_disk INTEGER,
    size_gb INTEGER,
    iso_source TEXT,
    iso_path TEXT,
    target_volume TEXT,
    failed_stage TEXT,
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

CREATE TABLE IF NOT EXISTS stage_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    stage TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('started', 'completed', 'failed')),
    detail TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_stage_events_run_id ON stage_events(run_id);

CREATE TABLE IF NOT EXISTS downloads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uri TEXT NOT NULL UNIQUE,
    local_path TEXT NOT NULL,
    sha256 TEXT,
    run_id TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Run status constants
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Stage event status constants
const (
	EventStarted   = "started"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// Run represents one provisioning attempt
type Run struct {
	ID           string
	Status       string
	Disk         int64
	BootDisk     int64
	SizeGB       int64
	ISOSource    string
	ISOPath      string
	TargetVolume string
	FailedStage  string
	ErrorMessage string
	CreatedAt    string
	UpdatedAt    string
}

// StageEvent is one stage boundary of a run
type StageEvent struct {
	ID        int64
	RunID     string
	Stage     string
	Status    string
	Detail    string
	CreatedAt string
}

// Download is an ISO fetched from S3 into the work dir
type Download struct {
	ID        int64
	URI       string
	LocalPath string
	SHA256    string
	RunID     string
	CreatedAt string
}
