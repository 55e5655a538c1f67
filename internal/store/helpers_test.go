package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newStore creates a fresh database in the test's temp dir.
func newStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// withClock pins the store clock for deterministic timestamps.
func withClock(st *Store, now time.Time) {
	st.now = func() time.Time { return now }
}

// seedAvatar creates a person with one avatar and returns both IDs.
func seedAvatar(t *testing.T, st *Store, name string) (personID, fileID int64) {
	t.Helper()
	ctx := context.Background()

	personID, err := st.CreatePerson(ctx, name)
	require.NoError(t, err)
	fileID, err = st.CreateAvatar(ctx, personID, "", "aGVsbG8=")
	require.NoError(t, err)
	return personID, fileID
}

// setStatus mimics a transition made by the external processor.
func setStatus(t *testing.T, st *Store, id int64, status string, startedAt, finishedAt *time.Time) {
	t.Helper()

	var started, finished any
	if startedAt != nil {
		started = formatTime(*startedAt)
	}
	if finishedAt != nil {
		finished = formatTime(*finishedAt)
	}
	_, err := st.DB.Exec(`
		UPDATE sync_jobs SET status=?, started_at=?, finished_at=?, attempts=attempts+1
		WHERE id=?
	`, status, started, finished, id)
	require.NoError(t, err)
}
