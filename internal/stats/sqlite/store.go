// Package sqlite provides a SQLite-backed run statistics store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/statelapse/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/statelapse/internal/stats"
	"github.com/louisbranch/statelapse/internal/stats/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists run statistics in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite stats store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// StartRun inserts one run row and returns its ID.
func (s *Store) StartRun(ctx context.Context, startedAt time.Time, segmentCount, objectCount, outputSize int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if segmentCount < 0 {
		return 0, fmt.Errorf("segment count must not be negative")
	}
	if objectCount < 0 {
		return 0, fmt.Errorf("object count must not be negative")
	}
	if outputSize < 0 {
		return 0, fmt.Errorf("output size must not be negative")
	}
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO runs (started_at, segment_count, object_count, output_size) VALUES (?, ?, ?, ?)`,
		toMillis(startedAt),
		segmentCount,
		objectCount,
		outputSize,
	)
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("start run id: %w", err)
	}
	return id, nil
}

// RecordBatch inserts one batch row for a run.
func (s *Store) RecordBatch(ctx context.Context, batch stats.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if batch.RunID <= 0 {
		return fmt.Errorf("run id is required")
	}
	if batch.Index < 0 {
		return fmt.Errorf("batch index must not be negative")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO run_batches (
		   run_id,
		   batch_index,
		   bucket,
		   total_actions,
		   rate,
		   present,
		   delete_marker,
		   expired,
		   delete_marker_deleted,
		   weird_case
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.RunID,
		batch.Index,
		toMillis(batch.Bucket),
		batch.TotalActions,
		batch.Rate,
		batch.Counts.Present,
		batch.Counts.DeleteMarker,
		batch.Counts.Expired,
		batch.Counts.DeleteMarkerDeleted,
		batch.Counts.WeirdCase,
	)
	if err != nil {
		if isRunBatchUniqueViolation(err) {
			return stats.ErrAlreadyExists
		}
		return fmt.Errorf("record batch: %w", err)
	}
	return nil
}

// FinishRun marks a run complete with its final counters.
func (s *Store) FinishRun(ctx context.Context, runID int64, finishedAt time.Time, frameCount int, distinctTouched int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if runID <= 0 {
		return fmt.Errorf("run id is required")
	}
	if finishedAt.IsZero() {
		finishedAt = time.Now().UTC()
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE runs
		    SET finished_at = ?, frame_count = ?, distinct_touched = ?
		  WHERE id = ?`,
		toMillis(finishedAt),
		frameCount,
		distinctTouched,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if affected == 0 {
		return stats.ErrNotFound
	}
	return nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, runID int64) (stats.Run, error) {
	if err := ctx.Err(); err != nil {
		return stats.Run{}, err
	}
	if s == nil || s.sqlDB == nil {
		return stats.Run{}, fmt.Errorf("storage is not configured")
	}
	if runID <= 0 {
		return stats.Run{}, fmt.Errorf("run id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, started_at, finished_at, segment_count, object_count,
		        output_size, frame_count, distinct_touched
		   FROM runs
		  WHERE id = ?`,
		runID,
	)

	var run stats.Run
	var startedAt int64
	var finishedAt sql.NullInt64
	err := row.Scan(
		&run.ID,
		&startedAt,
		&finishedAt,
		&run.SegmentCount,
		&run.ObjectCount,
		&run.OutputSize,
		&run.FrameCount,
		&run.DistinctTouched,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stats.Run{}, stats.ErrNotFound
		}
		return stats.Run{}, fmt.Errorf("get run: %w", err)
	}
	run.StartedAt = fromMillis(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = fromMillis(finishedAt.Int64)
	}
	return run, nil
}

// ListBatches returns every batch row for a run in frame order.
func (s *Store) ListBatches(ctx context.Context, runID int64) ([]stats.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if runID <= 0 {
		return nil, fmt.Errorf("run id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT run_id, batch_index, bucket, total_actions, rate,
		        present, delete_marker, expired, delete_marker_deleted, weird_case
		   FROM run_batches
		  WHERE run_id = ?
		  ORDER BY batch_index ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []stats.Batch
	for rows.Next() {
		var batch stats.Batch
		var bucket int64
		if err := rows.Scan(
			&batch.RunID,
			&batch.Index,
			&bucket,
			&batch.TotalActions,
			&batch.Rate,
			&batch.Counts.Present,
			&batch.Counts.DeleteMarker,
			&batch.Counts.Expired,
			&batch.Counts.DeleteMarkerDeleted,
			&batch.Counts.WeirdCase,
		); err != nil {
			return nil, fmt.Errorf("list batches: %w", err)
		}
		batch.Bucket = fromMillis(bucket)
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

func isRunBatchUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "run_batches")
}

var _ stats.Store = (*Store)(nil)
