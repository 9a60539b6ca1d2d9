package watch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Yashorr/deadline-detector/internal/chat"
	"github.com/Yashorr/deadline-detector/internal/model"
	"github.com/Yashorr/deadline-detector/internal/sched"
	"github.com/Yashorr/deadline-detector/internal/store"
)

// tickInterval is the alert scheduler cadence.
const tickInterval = time.Minute

// Analyzer is the extraction collaborator: zero-or-one deadline per
// message, failures indistinguishable from "no deadline".
type Analyzer interface {
	Analyze(ctx context.Context, text string) (time.Time, bool)
}

// Watcher runs the pipeline: it consumes incoming chat messages, keeps
// only those from the configured group, extracts deadlines, and drives
// the periodic alert scan. One goroutine handles both trigger sources,
// so store mutations never race and ticks never overlap.
type Watcher struct {
	session   chat.Session
	analyzer  Analyzer
	store     *store.Store
	scheduler *sched.Scheduler
	alerter   sched.Alerter
	groupName string
	logger    *zap.Logger
}

// New creates a Watcher over an already-connected session.
func New(
	session chat.Session,
	analyzer Analyzer,
	s *store.Store,
	scheduler *sched.Scheduler,
	alerter sched.Alerter,
	groupName string,
	logger *zap.Logger,
) *Watcher {
	return &Watcher{
		session:   session,
		analyzer:  analyzer,
		store:     s,
		scheduler: scheduler,
		alerter:   alerter,
		groupName: groupName,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, processing one trigger at a time:
// an incoming message or a minute tick. Handler errors are logged and
// the loop keeps going; the failed mutation is simply not committed.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	w.logger.Info("watching for deadlines",
		zap.String("group", w.groupName),
		zap.Int("pending", w.store.Len()),
	)

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-w.session.Messages():
			if err := w.HandleMessage(ctx, msg); err != nil {
				w.logger.Error("message handler failed", zap.Error(err))
			}

		case now := <-ticker.C:
			if err := w.scheduler.Tick(ctx, now); err != nil {
				w.logger.Error("scheduler tick failed", zap.Error(err))
			}
		}
	}
}

// HandleMessage processes one incoming message. Anything not from the
// configured group conversation is dropped without side effects. On a
// positive extraction the record is durably appended before the "new
// deadline" alert is attempted, so a notification failure never loses
// stored state.
func (w *Watcher) HandleMessage(ctx context.Context, msg chat.Message) error {
	if !msg.IsGroup || msg.ChatName != w.groupName {
		return nil
	}

	dueAt, ok := w.analyzer.Analyze(ctx, msg.Text)
	if !ok {
		return nil
	}

	d := model.NewDeadline(msg.Text, dueAt)
	if err := w.store.Append(d); err != nil {
		return fmt.Errorf("appending deadline: %w", err)
	}

	w.logger.Info("new deadline detected",
		zap.Time("due_at", d.DueAt),
		zap.String("message", d.Message),
	)
	w.alerter.Fire(ctx, "New Deadline Detected", msg.Text)

	return nil
}
