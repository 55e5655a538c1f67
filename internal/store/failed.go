package store

import (
	"context"
	"fmt"

	"readersync/internal/model"
)

// ListFailed returns jobs that exhausted their attempts, most recent first.
func (s *Store) ListFailed(ctx context.Context, limit int) ([]model.Job, error) {
	if limit < 1 {
		limit = defaultListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM sync_jobs j
		LEFT JOIN people p ON p.id = j.person_id
		WHERE j.status = 'failed'
		ORDER BY julianday(j.finished_at) DESC, j.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// RetryFailed puts a failed job back in the queue with its attempts reset.
func (s *Store) RetryFailed(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE sync_jobs
		SET status='pending', attempts=0, scheduled_at=?,
		    started_at=NULL, finished_at=NULL, last_error=NULL
		WHERE id=? AND status='failed'
	`, formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("retry job %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("retry job %d: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	j, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: job %d is %s", ErrInvalidTransition, id, j.Status)
}
