package store

import (
	"context"

	"readersync/internal/model"
)

const defaultListLimit = 10

// ListJobs returns jobs in one status, highest priority first and, within a
// priority, most recently scheduled first. An empty status means pending.
func (s *Store) ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]model.Job, error) {
	if status == "" {
		status = model.StatusPending
	}
	if limit < 1 {
		limit = defaultListLimit
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM sync_jobs j
		LEFT JOIN people p ON p.id = j.person_id
		WHERE j.status = ?
		ORDER BY j.priority ASC, j.scheduled_at DESC, j.id DESC
		LIMIT ?
	`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *j)
	}
	return result, rows.Err()
}

// StatusCounts returns a count for every status, zero when absent.
func (s *Store) StatusCounts(ctx context.Context) (map[model.JobStatus]int, error) {
	stats := make(map[model.JobStatus]int, len(model.Statuses))
	for _, st := range model.Statuses {
		stats[st] = 0
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var st string
		var count int
		if err := rows.Scan(&st, &count); err != nil {
			return nil, err
		}
		stats[model.JobStatus(st)] = count
	}
	return stats, rows.Err()
}
