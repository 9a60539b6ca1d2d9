package sched

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Yashorr/deadline-detector/internal/store"
)

// alertWindowMinutes is the alert horizon: a pending deadline becomes
// eligible when it is strictly in the future and at most this many whole
// minutes away. Fixed policy, deliberately not configurable.
const alertWindowMinutes = 120

// Alerter is the notification dispatch the scheduler fires into.
type Alerter interface {
	Fire(ctx context.Context, title, body string)
}

// Scheduler scans the deadline store on a fixed cadence and alerts each
// unnotified record exactly once when it enters the alert window.
type Scheduler struct {
	store   *store.Store
	alerter Alerter
	logger  *zap.Logger
}

// New creates a Scheduler over the given store.
func New(s *store.Store, alerter Alerter, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:   s,
		alerter: alerter,
		logger:  logger,
	}
}

// Tick evaluates every unnotified record against now. Records already
// due (diff <= 0) or beyond the window stay untouched and are looked at
// again next tick. For each record entering the window the alert fires
// first, then the notified flip is persisted; a persistence failure
// aborts the rest of the scan so the failed flip is retried before any
// later record is considered.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	for _, d := range s.store.All() {
		if d.Notified {
			continue
		}

		diff := wholeMinutesUntil(d.DueAt, now)
		if diff <= 0 || diff > alertWindowMinutes {
			continue
		}

		s.logger.Info("deadline entered alert window",
			zap.Int("minutes_left", diff),
			zap.Time("due_at", d.DueAt),
		)
		s.alerter.Fire(ctx, fmt.Sprintf("⏰ Deadline in %d mins", diff), d.Message)

		if err := s.store.MarkNotified(d); err != nil {
			return fmt.Errorf("marking deadline notified: %w", err)
		}
	}

	return nil
}

// wholeMinutesUntil returns dueAt minus now in whole minutes, truncated
// toward zero; negative when the deadline has passed.
func wholeMinutesUntil(dueAt, now time.Time) int {
	return int(dueAt.Sub(now) / time.Minute)
}
