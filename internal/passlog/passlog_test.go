package passlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_AppendAndHistory(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "passes.db"))
	require.NoError(t, err)
	defer j.Close()

	started := time.Date(2023, 8, 14, 10, 0, 0, 0, time.UTC)
	require.NoError(t, j.Append(&PassRecord{
		PassID:      "p1",
		Dataset:     "DS1",
		Disposition: "NOT_READY",
		Message:     "ingest not complete",
		StartedAt:   started,
		FinishedAt:  started.Add(2 * time.Second),
	}))
	require.NoError(t, j.Append(&PassRecord{
		PassID:        "p2",
		Dataset:       "DS1",
		Disposition:   "SUCCESS",
		MatchCount:    12,
		TransactionID: 7,
		Message:       "12 files verified",
		StartedAt:     started.Add(time.Hour),
		FinishedAt:    started.Add(time.Hour + 5*time.Second),
	}))
	require.NoError(t, j.Append(&PassRecord{
		PassID:      "p3",
		Dataset:     "DS2",
		Disposition: "FAILED",
		StartedAt:   started,
		FinishedAt:  started.Add(time.Second),
	}))

	history, err := j.History("DS1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Most recent first.
	assert.Equal(t, "p2", history[0].PassID)
	assert.Equal(t, "SUCCESS", history[0].Disposition)
	assert.Equal(t, 12, history[0].MatchCount)
	assert.Equal(t, int64(7), history[0].TransactionID)
	assert.Equal(t, "p1", history[1].PassID)

	history, err = j.History("DS-unknown")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestJournal_AppendIsIdempotentPerPassID(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "passes.db"))
	require.NoError(t, err)
	defer j.Close()

	rec := &PassRecord{
		PassID:      "p1",
		Dataset:     "DS1",
		Disposition: "SUCCESS",
		StartedAt:   time.Now(),
		FinishedAt:  time.Now(),
	}
	require.NoError(t, j.Append(rec))
	require.NoError(t, j.Append(rec))

	history, err := j.History("DS1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
