package activity

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/folio/internal/domain"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "activity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	clock := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return l
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	l := openTestLog(t)
	_, err := l.Record("work", "launch", domain.ActionCreate)
	require.NoError(t, err)
	_, err = l.Record("gallery", "0190-abc", domain.ActionCreate)
	require.NoError(t, err)
	last, err := l.Record("work", "launch", domain.ActionUpdate)
	require.NoError(t, err)

	recent, err := l.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, last.ID, recent[0].ID)
	assert.Equal(t, domain.ActionUpdate, recent[0].Action)
	assert.Equal(t, "gallery", recent[1].Kind)
	assert.True(t, recent[0].CreatedAt.Equal(last.CreatedAt))
}

func TestHistory(t *testing.T) {
	t.Parallel()

	l := openTestLog(t)
	for _, action := range []string{domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete} {
		_, err := l.Record("writing", "hello", action)
		require.NoError(t, err)
	}
	_, err := l.Record("writing", "other", domain.ActionCreate)
	require.NoError(t, err)

	history, err := l.History("writing", "hello")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.ActionDelete, history[0].Action)
	assert.Equal(t, domain.ActionCreate, history[2].Action)
}

func TestRecent_Empty(t *testing.T) {
	t.Parallel()

	recent, err := openTestLog(t).Recent(10)
	require.NoError(t, err)
	assert.Empty(t, recent)
	assert.NotNil(t, recent)
}

func TestOpen_ReopensExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "activity.db")
	l, err := Open(path)
	require.NoError(t, err)
	_, err = l.Record("work", "launch", domain.ActionCreate)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()

	recent, err := l.Recent(10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
