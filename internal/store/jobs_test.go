package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readersync/internal/model"
)

func TestEnqueueImageSync(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	withClock(st, now)

	personID, fileID := seedAvatar(t, st, "Ana")

	id, err := st.EnqueueImageSync(ctx, EnqueueParams{EventID: 1, PersonID: personID, FileID: fileID})
	require.NoError(t, err)
	assert.Positive(t, id)

	j, err := st.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), j.EventID)
	assert.Equal(t, personID, j.PersonID)
	assert.Equal(t, fileID, j.FileID)
	assert.Equal(t, model.JobTypeSyncImage, j.Type)
	assert.Equal(t, model.PriorityDefault, j.Priority)
	assert.Equal(t, model.StatusPending, j.Status)
	assert.Equal(t, 0, j.Attempts)
	assert.Equal(t, 3, j.MaxAttempts)
	assert.True(t, now.Equal(j.ScheduledAt))
	assert.Nil(t, j.StartedAt)
	assert.Equal(t, "Ana", j.PersonName)
}

func TestEnqueueUsesConfiguredMaxAttempts(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	require.NoError(t, st.SetConfig(ctx, "max_attempts", "7"))

	personID, fileID := seedAvatar(t, st, "Bruno")
	id, err := st.EnqueueImageSync(ctx, EnqueueParams{EventID: 1, PersonID: personID, FileID: fileID, Priority: 1})
	require.NoError(t, err)

	j, err := st.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, j.MaxAttempts)
	assert.Equal(t, 1, j.Priority)
}

func TestEnqueueRejectsBadReferences(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	personID, fileID := seedAvatar(t, st, "Carla")
	otherPerson, _ := seedAvatar(t, st, "Diego")

	cases := []struct {
		name string
		p    EnqueueParams
		want error
	}{
		{"missing event", EnqueueParams{PersonID: personID, FileID: fileID}, ErrInvalidReference},
		{"unknown file", EnqueueParams{EventID: 1, PersonID: personID, FileID: 999}, ErrInvalidReference},
		{"file of someone else", EnqueueParams{EventID: 1, PersonID: otherPerson, FileID: fileID}, ErrInvalidReference},
		{"priority out of range", EnqueueParams{EventID: 1, PersonID: personID, FileID: fileID, Priority: 11}, model.ErrInvalidPriority},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := st.EnqueueImageSync(ctx, tc.p)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	counts, err := st.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[model.StatusPending])
}

func TestGetJobNotFound(t *testing.T) {
	st := newStore(t)

	_, err := st.GetJob(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListJobsOrdering(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	personID, fileID := seedAvatar(t, st, "Eva")

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	enqueueAt := func(at time.Time, priority int) int64 {
		withClock(st, at)
		id, err := st.EnqueueImageSync(ctx, EnqueueParams{EventID: 1, PersonID: personID, FileID: fileID, Priority: priority})
		require.NoError(t, err)
		return id
	}

	oldLow := enqueueAt(base, 5)
	newLow := enqueueAt(base.Add(time.Minute), 5)
	urgent := enqueueAt(base.Add(2*time.Minute), 1)

	jobs, err := st.ListJobs(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []int64{urgent, newLow, oldLow}, []int64{jobs[0].ID, jobs[1].ID, jobs[2].ID})

	jobs, err = st.ListJobs(ctx, model.StatusPending, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = st.ListJobs(ctx, model.StatusDone, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestStatusCounts(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	personID, fileID := seedAvatar(t, st, "Fabio")

	var ids []int64
	for i := 0; i < 4; i++ {
		id, err := st.EnqueueImageSync(ctx, EnqueueParams{EventID: 1, PersonID: personID, FileID: fileID})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	now := time.Now()
	setStatus(t, st, ids[0], "processing", &now, nil)
	setStatus(t, st, ids[1], "done", &now, &now)
	setStatus(t, st, ids[2], "failed", &now, &now)

	counts, err := st.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.JobStatus]int{
		model.StatusPending:    1,
		model.StatusProcessing: 1,
		model.StatusDone:       1,
		model.StatusFailed:     1,
	}, counts)
}

func TestResolvePriority(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	p, err := st.ResolvePriority(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityDefault, p)

	require.NoError(t, st.SetConfig(ctx, "default_priority", "7"))
	p, err = st.ResolvePriority(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, p)

	p, err = st.ResolvePriority(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p)

	_, err = st.ResolvePriority(ctx, 11)
	assert.Error(t, err)
}
