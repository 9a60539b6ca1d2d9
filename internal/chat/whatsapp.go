package chat

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"
)

// WhatsAppSession implements Session over whatsmeow with a sqlite-backed
// device store, so the login survives restarts the way the original
// linked-device session did.
type WhatsAppSession struct {
	client *whatsmeow.Client
	logger *zap.Logger
	msgs   chan Message

	// groupNames caches JID -> display name so the filter does not hit
	// the network for every message. Only the event-handler goroutine
	// touches it.
	groupNames map[string]string
}

// NewWhatsAppSession opens the device store at dbPath and prepares a
// client. Connect must be called before messages flow.
func NewWhatsAppSession(dbPath string, logger *zap.Logger) (*WhatsAppSession, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening session db %s: %w", dbPath, err)
	}

	container := sqlstore.NewWithDB(db, "sqlite3", waLog.Noop)
	if err := container.Upgrade(); err != nil {
		db.Close()
		return nil, fmt.Errorf("upgrading session db schema: %w", err)
	}

	device, err := container.GetFirstDevice()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading device from session db: %w", err)
	}

	s := &WhatsAppSession{
		client:     whatsmeow.NewClient(device, waLog.Noop),
		logger:     logger,
		msgs:       make(chan Message, 16),
		groupNames: make(map[string]string),
	}
	s.client.AddEventHandler(s.handleEvent)

	return s, nil
}

// Connect establishes the WhatsApp connection. On first run it prints a
// pairing QR code to the terminal and blocks until the phone links (or
// the code times out); later runs restore the stored session.
func (s *WhatsAppSession) Connect(ctx context.Context) error {
	if s.client.Store.ID != nil {
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("connecting session: %w", err)
		}
		return nil
	}

	qrChan, err := s.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("requesting QR channel: %w", err)
	}
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("connecting for pairing: %w", err)
	}

	for evt := range qrChan {
		switch evt.Event {
		case "code":
			fmt.Println("Scan this QR code with WhatsApp (Linked devices):")
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
		case "success":
			s.logger.Info("device linked")
			return nil
		default:
			return fmt.Errorf("pairing failed: %s", evt.Event)
		}
	}

	return fmt.Errorf("pairing channel closed before login")
}

// Disconnect tears down the connection.
func (s *WhatsAppSession) Disconnect() {
	s.client.Disconnect()
}

// Messages returns the incoming message channel.
func (s *WhatsAppSession) Messages() <-chan Message {
	return s.msgs
}

// SendText sends a plain text message to the given JID.
func (s *WhatsAppSession) SendText(ctx context.Context, chatID, text string) error {
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return fmt.Errorf("parsing chat id %q: %w", chatID, err)
	}

	_, err = s.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return fmt.Errorf("sending message to %s: %w", chatID, err)
	}

	return nil
}

// handleEvent maps whatsmeow events onto the transport-neutral message
// channel. Delivery blocks when the watcher falls behind; handlers are
// short, so this back-pressures rather than drops.
func (s *WhatsAppSession) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		text := extractText(v.Message)
		if text == "" {
			return
		}

		msg := Message{
			ChatID:  v.Info.Chat.String(),
			IsGroup: v.Info.IsGroup,
			Text:    text,
		}
		if v.Info.IsGroup {
			msg.ChatName = s.groupName(v.Info.Chat)
		}

		s.msgs <- msg

	case *events.Connected:
		s.logger.Info("whatsapp session connected")

	case *events.LoggedOut:
		s.logger.Warn("device logged out; delete the session db and re-pair")
	}
}

// groupName resolves and caches a group's display name.
func (s *WhatsAppSession) groupName(jid types.JID) string {
	if name, ok := s.groupNames[jid.String()]; ok {
		return name
	}

	info, err := s.client.GetGroupInfo(jid)
	if err != nil {
		s.logger.Warn("resolving group name",
			zap.String("jid", jid.String()),
			zap.Error(err),
		)
		return ""
	}

	s.groupNames[jid.String()] = info.Name
	return info.Name
}

// extractText pulls the text body out of a message, covering both plain
// and extended (quoted/linked) text messages.
func extractText(m *waE2E.Message) string {
	if m == nil {
		return ""
	}
	if text := m.GetConversation(); text != "" {
		return text
	}
	return m.GetExtendedTextMessage().GetText()
}
