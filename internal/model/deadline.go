package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the on-disk timestamp format for deadlines: local
// date-time with minute precision, no zone suffix.
const TimeLayout = "2006-01-02T15:04"

// Deadline is one detected deadline extracted from a chat message.
type Deadline struct {
	// Message is the original message text the deadline was extracted
	// from. Immutable once the record is created.
	Message string

	// DueAt is the extracted deadline instant, minute precision,
	// interpreted in local time. Set at creation and never recomputed.
	DueAt time.Time

	// Notified reports whether an alert has already fired for this
	// record. Starts false and flips to true exactly once.
	Notified bool
}

// NewDeadline builds an unnotified record, truncating the due time to
// minute precision.
func NewDeadline(message string, dueAt time.Time) *Deadline {
	return &Deadline{
		Message: message,
		DueAt:   dueAt.Truncate(time.Minute),
	}
}

// deadlineJSON is the wire shape of a record in the backing file.
type deadlineJSON struct {
	Message  string `json:"message"`
	Time     string `json:"time"`
	Notified bool   `json:"notified"`
}

// MarshalJSON encodes the record with its due time as a minute-precision
// local date-time string.
func (d *Deadline) MarshalJSON() ([]byte, error) {
	return json.Marshal(deadlineJSON{
		Message:  d.Message,
		Time:     d.DueAt.Format(TimeLayout),
		Notified: d.Notified,
	})
}

// UnmarshalJSON decodes a record, parsing the due time in local time.
func (d *Deadline) UnmarshalJSON(data []byte) error {
	var raw deadlineJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	dueAt, err := time.ParseInLocation(TimeLayout, raw.Time, time.Local)
	if err != nil {
		return fmt.Errorf("parsing deadline time %q: %w", raw.Time, err)
	}

	d.Message = raw.Message
	d.DueAt = dueAt
	d.Notified = raw.Notified
	return nil
}
