package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = errors.New("job not found")

// Job is one recorded pipeline run.
type Job struct {
	ID         int64
	Operation  string
	Status     string
	BytesIn    int64
	BytesOut   int64
	Duration   time.Duration
	Error      string
	CreatedAt  time.Time
	FinishedAt time.Time // zero while running
}

// JobStatusRunning marks a job whose pipeline run has not finished yet.
// Terminal statuses use the pipeline error kind names, or "success".
const JobStatusRunning = "running"

// CreateJob records the start of a pipeline run and returns its id.
func (st *Store) CreateJob(ctx context.Context, operation string) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_job", start, err) }()

	res, err := st.db.ExecContext(ctx, `
		INSERT INTO jobs (operation, status, created_at) VALUES (?, ?, ?)
	`, operation, JobStatusRunning, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to create job: %w", err)
	}
	return res.LastInsertId()
}

// CompleteJob records the terminal state of a run. status is "success"
// or a pipeline error kind name; errText is empty on success.
func (st *Store) CompleteJob(ctx context.Context, id int64, status string, bytesIn, bytesOut int64, duration time.Duration, errText string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("complete_job", start, err) }()

	res, err := st.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, bytes_in = ?, bytes_out = ?, duration_ms = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, status, bytesIn, bytesOut, duration.Milliseconds(), errText, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check job update: %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// RecentJobs returns the most recent jobs, newest first, up to limit.
func (st *Store) RecentJobs(ctx context.Context, limit int) ([]Job, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("recent_jobs", start, err) }()

	if limit <= 0 {
		limit = 50
	}

	rows, err := st.db.QueryContext(ctx, `
		SELECT id, operation, status, bytes_in, bytes_out, duration_ms, error, created_at, finished_at
		FROM jobs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var durationMS, createdAt int64
		var finishedAt sql.NullInt64
		if err = rows.Scan(&j.ID, &j.Operation, &j.Status, &j.BytesIn, &j.BytesOut,
			&durationMS, &j.Error, &createdAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		j.Duration = time.Duration(durationMS) * time.Millisecond
		j.CreatedAt = time.Unix(createdAt, 0)
		if finishedAt.Valid {
			j.FinishedAt = time.Unix(finishedAt.Int64, 0)
		}
		jobs = append(jobs, j)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}
