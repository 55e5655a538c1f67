package store

import (
	"context"
	"fmt"
	"time"
)

// PurgeFinished deletes done jobs that finished before now-olderThan.
func (s *Store) PurgeFinished(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(s.now().Add(-olderThan))
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM sync_jobs
		WHERE status='done' AND julianday(finished_at) < julianday(?)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge finished jobs: %w", err)
	}
	return res.RowsAffected()
}

// RecoverStale returns jobs stuck in processing for longer than olderThan
// to pending. A processor that dies mid-run leaves such rows behind.
func (s *Store) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(s.now().Add(-olderThan))
	res, err := s.DB.ExecContext(ctx, `
		UPDATE sync_jobs
		SET status='pending', last_error='recovered after stale processing'
		WHERE status='processing' AND (started_at IS NULL OR julianday(started_at) < julianday(?))
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	return res.RowsAffected()
}
