package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yashorr/deadline-detector/internal/model"
)

func tempStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "deadlines.json")
}

func TestOpenAbsentFile(t *testing.T) {
	s, err := Open(tempStorePath(t))
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestOpenBlankFile(t *testing.T) {
	path := tempStorePath(t)
	require.NoError(t, os.WriteFile(path, []byte("  \n\t\n"), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestOpenCorruptFileFails(t *testing.T) {
	path := tempStorePath(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"`), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestAppendPersistsAndReloads(t *testing.T) {
	path := tempStorePath(t)

	s, err := Open(path)
	require.NoError(t, err)

	first := model.NewDeadline("submit report", time.Date(2025, 8, 2, 0, 0, 0, 0, time.Local))
	second := model.NewDeadline("pay fees", time.Date(2025, 8, 3, 18, 30, 0, 0, time.Local))
	require.NoError(t, s.Append(first))
	require.NoError(t, s.Append(second))

	reloaded, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.Len())

	for i, got := range reloaded.All() {
		want := s.All()[i]
		assert.Equal(t, want.Message, got.Message)
		assert.True(t, want.DueAt.Equal(got.DueAt))
		assert.Equal(t, want.Notified, got.Notified)
	}
}

func TestAppendPreservesInsertionOrder(t *testing.T) {
	path := tempStorePath(t)

	s, err := Open(path)
	require.NoError(t, err)

	// Later due time appended first: the store must not re-sort.
	require.NoError(t, s.Append(model.NewDeadline("later", time.Date(2025, 9, 1, 0, 0, 0, 0, time.Local))))
	require.NoError(t, s.Append(model.NewDeadline("sooner", time.Date(2025, 8, 1, 0, 0, 0, 0, time.Local))))

	reloaded, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "later", reloaded.All()[0].Message)
	assert.Equal(t, "sooner", reloaded.All()[1].Message)
}

func TestMarkNotifiedPersists(t *testing.T) {
	path := tempStorePath(t)

	s, err := Open(path)
	require.NoError(t, err)
	d := model.NewDeadline("submit report", time.Date(2025, 8, 2, 0, 0, 0, 0, time.Local))
	require.NoError(t, s.Append(d))

	require.NoError(t, s.MarkNotified(d))
	assert.True(t, d.Notified)

	reloaded, err := Open(path)
	require.NoError(t, err)
	assert.True(t, reloaded.All()[0].Notified)
}

func TestMarkNotifiedIsIdempotent(t *testing.T) {
	path := tempStorePath(t)

	s, err := Open(path)
	require.NoError(t, err)
	d := model.NewDeadline("submit report", time.Date(2025, 8, 2, 0, 0, 0, 0, time.Local))
	require.NoError(t, s.Append(d))

	require.NoError(t, s.MarkNotified(d))
	require.NoError(t, s.MarkNotified(d))

	reloaded, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.Len())
	assert.True(t, reloaded.All()[0].Notified)
	assert.Equal(t, "submit report", reloaded.All()[0].Message)
}

func TestAppendRollsBackOnWriteFailure(t *testing.T) {
	s, err := Open(tempStorePath(t))
	require.NoError(t, err)

	// Point the backing file at a directory so the rename-in fails.
	s.path = t.TempDir()

	err = s.Append(model.NewDeadline("x", time.Now()))
	require.Error(t, err)
	assert.Zero(t, s.Len())
}
