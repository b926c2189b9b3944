// ABOUTME: Database operations for the sync_runs table
// ABOUTME: Records run lifecycle, counters, and failure messages per store
package db

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/couponpress/woosync/models"
)

// SyncRun is one recorded pipeline execution for a store.
type SyncRun struct {
	ID           string
	StoreID      uuid.UUID
	Kind         string
	Status       string
	Fetched      int
	Compatible   int
	Incompatible int
	Materialized int
	Skipped      int
	Failed       int
	ErrorMessage *string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// StartSyncRun records a new run in 'running' state and returns its id.
// Run ids are ULIDs so history sorts chronologically by id.
func StartSyncRun(db *sql.DB, storeID uuid.UUID, kind string) (string, error) {
	now := time.Now()
	id := ulid.MustNew(ulid.Timestamp(now), rand.New(rand.NewSource(now.UnixNano()))).String()

	_, err := db.Exec(`
		INSERT INTO sync_runs (id, store_id, kind, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, storeID.String(), kind, models.RunStatusRunning, now)
	if err != nil {
		return "", fmt.Errorf("failed to start sync run: %w", err)
	}
	return id, nil
}

// FinishSyncRun marks a run completed or failed with its final counters.
func FinishSyncRun(db *sql.DB, id, status string, counters RunCounters, errMsg *string) error {
	var errorMessage sql.NullString
	if errMsg != nil {
		errorMessage = sql.NullString{String: *errMsg, Valid: true}
	}

	_, err := db.Exec(`
		UPDATE sync_runs
		SET status = ?, fetched = ?, compatible = ?, incompatible = ?,
			materialized = ?, skipped = ?, failed = ?, error_message = ?, finished_at = ?
		WHERE id = ?
	`, status, counters.Fetched, counters.Compatible, counters.Incompatible,
		counters.Materialized, counters.Skipped, counters.Failed, errorMessage, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}
	return nil
}

// RunCounters are the final counts persisted with a finished run.
type RunCounters struct {
	Fetched      int
	Compatible   int
	Incompatible int
	Materialized int
	Skipped      int
	Failed       int
}

// RecentSyncRuns retrieves the latest runs for a store, newest first.
func RecentSyncRuns(db *sql.DB, storeID uuid.UUID, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.Query(`
		SELECT id, store_id, kind, status, fetched, compatible, incompatible,
			materialized, skipped, failed, error_message, started_at, finished_at
		FROM sync_runs
		WHERE store_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, storeID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		var errorMessage sql.NullString
		var finishedAt sql.NullTime

		err := rows.Scan(
			&run.ID,
			&run.StoreID,
			&run.Kind,
			&run.Status,
			&run.Fetched,
			&run.Compatible,
			&run.Incompatible,
			&run.Materialized,
			&run.Skipped,
			&run.Failed,
			&errorMessage,
			&run.StartedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}

		if errorMessage.Valid {
			run.ErrorMessage = &errorMessage.String
		}
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}
	return runs, nil
}
