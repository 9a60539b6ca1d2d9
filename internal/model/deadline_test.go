package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeadlineTruncatesToMinute(t *testing.T) {
	dueAt := time.Date(2025, 8, 2, 18, 30, 45, 123456789, time.Local)

	d := NewDeadline("submit report", dueAt)

	assert.Equal(t, time.Date(2025, 8, 2, 18, 30, 0, 0, time.Local), d.DueAt)
	assert.Equal(t, "submit report", d.Message)
	assert.False(t, d.Notified)
}

func TestDeadlineMarshalJSON(t *testing.T) {
	d := &Deadline{
		Message: "Submit report by tomorrow",
		DueAt:   time.Date(2025, 8, 2, 0, 0, 0, 0, time.Local),
	}

	data, err := json.Marshal(d)
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"message":"Submit report by tomorrow","time":"2025-08-02T00:00","notified":false}`,
		string(data),
	)
}

func TestDeadlineUnmarshalJSON(t *testing.T) {
	var d Deadline
	err := json.Unmarshal(
		[]byte(`{"message":"pay fees","time":"2025-08-02T18:00","notified":true}`),
		&d,
	)
	require.NoError(t, err)

	assert.Equal(t, "pay fees", d.Message)
	assert.Equal(t, time.Date(2025, 8, 2, 18, 0, 0, 0, time.Local), d.DueAt)
	assert.True(t, d.Notified)
}

func TestDeadlineUnmarshalJSONRejectsBadTime(t *testing.T) {
	var d Deadline
	err := json.Unmarshal(
		[]byte(`{"message":"x","time":"next friday","notified":false}`),
		&d,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing deadline time")
}
