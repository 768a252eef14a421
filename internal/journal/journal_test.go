package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/apsdm-go/internal/dm"
	"github.com/tonimelisma/apsdm-go/internal/upload"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(context.Background(), filepath.Join(t.TempDir(), "state", "journal.db"), nil)
	require.NoError(t, err)

	t.Cleanup(func() { j.Close() })

	return j
}

func newAttempt(id string, started time.Time) *upload.Attempt {
	return &upload.Attempt{
		ID:          id,
		ProjectID:   "b.proj",
		FolderID:    "urn:folder:plans",
		FileName:    id + ".rvt",
		ContentType: "application/octet-stream",
		Size:        10,
		StartedAt:   started,
		UpdatedAt:   started,
	}
}

func TestJournal_PublishedAttempt(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a := newAttempt("a1", start)
	require.NoError(t, j.Begin(ctx, a))

	a.State = upload.StateReserved
	a.StorageID = "urn:adsk.objects:os.object:b/o"
	require.NoError(t, j.Advance(ctx, a))

	a.State = upload.StatePublished
	a.Item = &dm.Item{ID: "urn:item:1"}
	a.Version = &dm.Version{ID: "urn:item:1?version=1"}
	a.UpdatedAt = start.Add(time.Second)
	require.NoError(t, j.Advance(ctx, a))

	entries, err := j.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, upload.StatePublished, e.State)
	assert.Equal(t, "urn:item:1", e.ItemID)
	assert.Equal(t, "urn:item:1?version=1", e.VersionID)
	assert.True(t, start.Equal(e.StartedAt))
	assert.True(t, start.Add(time.Second).Equal(e.UpdatedAt))
	assert.False(t, e.Orphaned())

	orphans, err := j.ListOrphans(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestJournal_FailedAttemptIsOrphan(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a := newAttempt("a1", start)
	require.NoError(t, j.Begin(ctx, a))

	a.State = upload.StateGranted
	a.StorageID = "urn:adsk.objects:os.object:b/o"
	require.NoError(t, j.Fail(ctx, a, upload.StageTransfer, errors.New("connection reset")))

	// Failed before reserving: not an orphan.
	b := newAttempt("b1", start.Add(time.Minute))
	require.NoError(t, j.Begin(ctx, b))
	require.NoError(t, j.Fail(ctx, b, upload.StageReserve, errors.New("forbidden")))

	orphans, err := j.ListOrphans(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "a1", orphans[0].ID)
	assert.Equal(t, "transfer", orphans[0].FailedStage)
	assert.Equal(t, "connection reset", orphans[0].Error)
	assert.Equal(t, upload.StateGranted, orphans[0].State)
	assert.True(t, orphans[0].Orphaned())

	all, err := j.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b1", all[0].ID, "newest first")
}

func TestJournal_UnknownAttempt(t *testing.T) {
	j := newTestJournal(t)

	err := j.Advance(context.Background(), newAttempt("ghost", time.Now()))
	assert.Error(t, err)
}

func TestJournal_ListLimit(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, j.Begin(ctx, newAttempt(id, start.Add(time.Duration(i)*time.Minute))))
	}

	entries, err := j.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
}

func TestJournal_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, j.Begin(ctx, newAttempt("a1", time.Now())))
	require.NoError(t, j.Close())

	j, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJournal_RecordsOrchestratorRun(t *testing.T) {
	j := newTestJournal(t)

	o := upload.NewOrchestrator(failingAPI{}, nil, upload.Options{Recorder: j})

	_, err := o.UploadBytes(context.Background(), "b.proj", "urn:folder:plans", "x.rvt", []byte("x"), "")
	require.ErrorIs(t, err, upload.ErrUploadFailed)

	entries, err := j.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "reserve", entries[0].FailedStage)
	assert.Equal(t, upload.StateNew, entries[0].State)
}
