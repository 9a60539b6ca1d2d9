package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRecordAndRecent(t *testing.T) {
	h, err := OpenHistory(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	ctx := context.Background()
	require.NoError(t, h.Record(ctx, "New Deadline Detected", "submit report by tomorrow"))
	require.NoError(t, h.Record(ctx, "⏰ Deadline in 90 mins", "pay fees"))

	alerts, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	for _, a := range alerts {
		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, a.Title)
		assert.False(t, a.CreatedAt.IsZero())
	}
}

func TestHistoryMigrationsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	h, err := OpenHistory(path)
	require.NoError(t, err)
	require.NoError(t, h.Record(context.Background(), "t", "b"))
	require.NoError(t, h.Close())

	h, err = OpenHistory(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	alerts, err := h.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}
