package db

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/oneclickfedora/installer/pkg/errors"
)

// Repository provides database operations for provisioning history
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository
func NewRepository(dbPath string) (*Repository, error) {
	slog.Info("database_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("database_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open database")
	}

	slog.Info("database_create_schema", "db_path", dbPath)
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("database_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create schema")
	}

	slog.Info("database_ready", "db_path", dbPath)
	return &Repository{db: db}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreateRun inserts a new run record
func (r *Repository) CreateRun(run *Run) error {
	slog.Info("database_create_run", "run_id", run.ID, "status", run.Status)

	query := `
		INSERT INTO runs (id, status, disk, boot_disk, size_gb, iso_source, iso_path, target_volume, failed_stage, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		run.ID, run.Status, run.Disk, run.BootDisk, run.SizeGB,
		run.ISOSource, run.ISOPath, run.TargetVolume, run.FailedStage, run.ErrorMessage)
	if err != nil {
		slog.Error("database_insert_failed", "run_id", run.ID, "error", err)
		return errors.Wrap(err, "failed to insert run")
	}
	return nil
}

const runColumns = `id, status, disk, boot_disk, size_gb, iso_source, iso_path,
		       target_volume, failed_stage, error_message, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var disk, bootDisk, sizeGB sql.NullInt64
	var isoSource, isoPath, targetVolume, failedStage, errorMessage sql.NullString

	err := s.Scan(
		&run.ID, &run.Status, &disk, &bootDisk, &sizeGB, &isoSource, &isoPath,
		&targetVolume, &failedStage, &errorMessage, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}

	// Handle nullable fields
	run.Disk = disk.Int64
	run.BootDisk = bootDisk.Int64
	run.SizeGB = sizeGB.Int64
	run.ISOSource = isoSource.String
	run.ISOPath = isoPath.String
	run.TargetVolume = targetVolume.String
	run.FailedStage = failedStage.String
	run.ErrorMessage = errorMessage.String
	return &run, nil
}

// GetRun retrieves a run by ID. It returns nil when the run does not exist.
func (r *Repository) GetRun(id string) (*Run, error) {
	slog.Info("database_query_run", "run_id", id)

	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		slog.Info("database_run_not_found", "run_id", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("database_query_failed", "run_id", id, "error", err)
		return nil, errors.Wrap(err, "failed to query run")
	}
	return run, nil
}

// UpdateRun updates an existing run record
func (r *Repository) UpdateRun(run *Run) error {
	slog.Info("database_update_run", "run_id", run.ID, "status", run.Status)

	query := `
		UPDATE runs
		SET status = ?, disk = ?, boot_disk = ?, size_gb = ?, iso_source = ?, iso_path = ?,
		    target_volume = ?, failed_stage = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		run.Status, run.Disk, run.BootDisk, run.SizeGB, run.ISOSource, run.ISOPath,
		run.TargetVolume, run.FailedStage, run.ErrorMessage, run.ID)
	if err != nil {
		slog.Error("database_update_failed", "run_id", run.ID, "error", err)
		return errors.Wrap(err, "failed to update run")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		slog.Error("database_rows_affected_failed", "run_id", run.ID, "error", err)
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		slog.Error("database_run_not_found_for_update", "run_id", run.ID)
		return fmt.Errorf("run not found: id=%s", run.ID)
	}
	return nil
}

// ListRuns retrieves the most recent runs, newest first. limit <= 0 returns all.
func (r *Repository) ListRuns(limit int) ([]*Run, error) {
	slog.Info("database_list_runs", "limit", limit)

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		slog.Error("database_list_query_failed", "error", err)
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			slog.Error("database_scan_row_failed", "error", err)
			return nil, errors.Wrap(err, "failed to scan row")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		slog.Error("database_rows_error", "error", err)
		return nil, errors.Wrap(err, "rows error")
	}

	slog.Info("database_list_complete", "run_count", len(runs))
	return runs, nil
}

// AddEvent appends a stage event to a run
func (r *Repository) AddEvent(ev *StageEvent) error {
	query := `INSERT INTO stage_events (run_id, stage, status, detail) VALUES (?, ?, ?, ?)`
	result, err := r.db.Exec(query, ev.RunID, ev.Stage, ev.Status, ev.Detail)
	if err != nil {
		slog.Error("database_event_insert_failed", "run_id", ev.RunID, "stage", ev.Stage, "error", err)
		return errors.Wrap(err, "failed to insert stage event")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get last insert id")
	}
	ev.ID = id
	return nil
}

// ListEvents returns a run's stage events in the order they were recorded
func (r *Repository) ListEvents(runID string) ([]*StageEvent, error) {
	query := `
		SELECT id, run_id, stage, status, detail, created_at
		FROM stage_events WHERE run_id = ? ORDER BY id
	`
	rows, err := r.db.Query(query, runID)
	if err != nil {
		slog.Error("database_event_query_failed", "run_id", runID, "error", err)
		return nil, errors.Wrap(err, "failed to list stage events")
	}
	defer rows.Close()

	var events []*StageEvent
	for rows.Next() {
		var ev StageEvent
		var detail sql.NullString
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.Stage, &ev.Status, &detail, &ev.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		ev.Detail = detail.String
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return events, nil
}

// RecordDownload stores a downloaded ISO, replacing an earlier record of the same URI
func (r *Repository) RecordDownload(d *Download) error {
	slog.Info("database_record_download", "uri", d.URI, "local_path", d.LocalPath)

	query := `
		INSERT INTO downloads (uri, local_path, sha256, run_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
		    local_path = excluded.local_path, sha256 = excluded.sha256,
		    run_id = excluded.run_id, created_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.Exec(query, d.URI, d.LocalPath, d.SHA256, d.RunID); err != nil {
		slog.Error("database_download_insert_failed", "uri", d.URI, "error", err)
		return errors.Wrap(err, "failed to record download")
	}
	return nil
}

// ListDownloads retrieves all recorded downloads
func (r *Repository) ListDownloads() ([]*Download, error) {
	rows, err := r.db.Query(`SELECT id, uri, local_path, sha256, run_id, created_at FROM downloads ORDER BY id`)
	if err != nil {
		slog.Error("database_download_query_failed", "error", err)
		return nil, errors.Wrap(err, "failed to list downloads")
	}
	defer rows.Close()

	var downloads []*Download
	for rows.Next() {
		var d Download
		var sha, runID sql.NullString
		if err := rows.Scan(&d.ID, &d.URI, &d.LocalPath, &sha, &runID, &d.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		d.SHA256 = sha.String
		d.RunID = runID.String
		downloads = append(downloads, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return downloads, nil
}

// DeleteDownload deletes a download record by ID
func (r *Repository) DeleteDownload(id int64) error {
	slog.Info("database_delete_download", "download_id", id)

	if _, err := r.db.Exec(`DELETE FROM downloads WHERE id = ?`, id); err != nil {
		slog.Error("database_delete_failed", "download_id", id, "error", err)
		return errors.Wrap(err, "failed to delete download")
	}
	return nil
}
