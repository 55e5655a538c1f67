package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"readersync/internal/model"
)

type EnqueueParams struct {
	EventID  int64
	PersonID int64
	FileID   int64
	Priority int
}

const jobColumns = `
	j.id, j.event_id, j.person_id, j.file_id, j.job_type, j.priority, j.status,
	j.attempts, j.max_attempts, j.scheduled_at, j.started_at, j.finished_at,
	COALESCE(j.last_error, ''), COALESCE(p.name, '')`

// ResolvePriority applies the default_priority setting to 0 and checks
// the result is within range.
func (s *Store) ResolvePriority(ctx context.Context, priority int) (int, error) {
	if priority == 0 {
		priority = s.MustGetInt(ctx, "default_priority", model.PriorityDefault)
	}
	return model.NormalizePriority(priority)
}

// EnqueueImageSync inserts one pending SYNC_IMAGE job and returns its ID.
// The file must exist and belong to the given person.
func (s *Store) EnqueueImageSync(ctx context.Context, p EnqueueParams) (int64, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id, err := s.enqueue(ctx, tx, p)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("tx commit: %w", err)
	}
	return id, nil
}

func (s *Store) enqueue(ctx context.Context, tx *sql.Tx, p EnqueueParams) (int64, error) {
	if p.EventID <= 0 {
		return 0, fmt.Errorf("%w: event %d", ErrInvalidReference, p.EventID)
	}
	priority, err := s.ResolvePriority(ctx, p.Priority)
	if err != nil {
		return 0, err
	}
	maxAttempts := s.MustGetInt(ctx, "max_attempts", 3)

	var owner int64
	err = tx.QueryRowContext(ctx, `SELECT person_id FROM files WHERE id=?`, p.FileID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: file %d", ErrInvalidReference, p.FileID)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup file: %w", err)
	}
	if owner != p.PersonID {
		return 0, fmt.Errorf("%w: file %d does not belong to person %d", ErrInvalidReference, p.FileID, p.PersonID)
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO sync_jobs (event_id, person_id, file_id, job_type, priority, status, attempts, max_attempts, scheduled_at)
VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
`, p.EventID, p.PersonID, p.FileID, string(model.JobTypeSyncImage), priority, string(model.StatusPending),
		maxAttempts, formatTime(s.now()))
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	return id, nil
}

func (s *Store) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM sync_jobs j
		LEFT JOIN people p ON p.id = j.person_id
		WHERE j.id=?
	`, id)

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*model.Job, error) {
	var (
		j                     model.Job
		jobType, status       string
		scheduledAt           string
		startedAt, finishedAt sql.NullString
	)
	err := r.Scan(
		&j.ID, &j.EventID, &j.PersonID, &j.FileID, &jobType, &j.Priority, &status,
		&j.Attempts, &j.MaxAttempts, &scheduledAt, &startedAt, &finishedAt,
		&j.LastError, &j.PersonName,
	)
	if err != nil {
		return nil, err
	}
	j.Type = model.JobType(jobType)
	j.Status = model.JobStatus(status)
	if j.ScheduledAt, err = parseTime(scheduledAt); err != nil {
		return nil, fmt.Errorf("job %d scheduled_at: %w", j.ID, err)
	}
	if j.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, fmt.Errorf("job %d started_at: %w", j.ID, err)
	}
	if j.FinishedAt, err = parseNullTime(finishedAt); err != nil {
		return nil, fmt.Errorf("job %d finished_at: %w", j.ID, err)
	}
	return &j, nil
}
