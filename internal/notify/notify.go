package notify

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/Yashorr/deadline-detector/internal/chat"
	"github.com/Yashorr/deadline-detector/internal/store"
)

// alertMarker prefixes every chat-mirrored alert so it stands out in the
// self conversation.
const alertMarker = "🔔"

// Notifier dispatches a human-readable alert through the local OS
// channel and mirrors it to the user's own chat. Both channels are
// best-effort and independent: one failing never blocks the other, and
// neither failure ever reaches the caller, whose store mutation has
// already committed.
type Notifier struct {
	sender     chat.Sender
	selfChatID string
	history    *store.History
	logger     *zap.Logger

	// local is the OS notification channel, selected once at
	// construction by environment, not per call.
	local func(title, body string) error
}

// New creates a Notifier. history may be nil to skip diagnostics
// recording.
func New(sender chat.Sender, selfChatID string, history *store.History, logger *zap.Logger) *Notifier {
	local := desktopNotify
	if isTermux() {
		local = termuxNotify
	}

	return &Notifier{
		sender:     sender,
		selfChatID: selfChatID,
		history:    history,
		logger:     logger,
		local:      local,
	}
}

// Fire delivers an alert on both channels and logs it to the history
// database.
func (n *Notifier) Fire(ctx context.Context, title, body string) {
	if err := n.local(title, body); err != nil {
		n.logger.Warn("local notification failed", zap.Error(err))
	}

	mirror := alertMarker + " " + title + "\n" + body
	if err := n.sender.SendText(ctx, n.selfChatID, mirror); err != nil {
		n.logger.Warn("chat mirror failed",
			zap.String("chat_id", n.selfChatID),
			zap.Error(err),
		)
	}

	if n.history != nil {
		if err := n.history.Record(ctx, title, body); err != nil {
			n.logger.Warn("recording alert history failed", zap.Error(err))
		}
	}
}

// isTermux reports whether the process runs inside a Termux environment,
// where desktop notification daemons are unavailable.
func isTermux() bool {
	return strings.Contains(os.Getenv("PREFIX"), "com.termux")
}

// desktopNotify raises a desktop notification.
func desktopNotify(title, body string) error {
	return beeep.Notify(title, body, "")
}

// termuxNotify shells out to the termux-notification command.
func termuxNotify(title, body string) error {
	return exec.Command("termux-notification", "--title", title, "--content", body).Run()
}
