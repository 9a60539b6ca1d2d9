package chat

import "context"

// Message is one incoming chat message with its originating conversation
// already resolved.
type Message struct {
	// ChatID is the conversation's transport identifier (JID).
	ChatID string

	// ChatName is the conversation's display name. Empty for direct
	// chats, where the watcher never looks at it.
	ChatName string

	// IsGroup reports whether the conversation is a group.
	IsGroup bool

	// Text is the message body. Empty bodies (media-only messages) are
	// filtered out before delivery.
	Text string
}

// Sender sends outbound text messages to a conversation.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) error
}

// Session is the chat-session collaborator the pipeline consumes: a
// live, authenticated connection that delivers incoming messages and
// accepts outgoing ones.
type Session interface {
	Sender

	// Connect establishes the session, running the pairing flow on
	// first use, and starts delivering messages.
	Connect(ctx context.Context) error

	// Messages returns the channel incoming messages arrive on.
	Messages() <-chan Message

	// Disconnect tears the session down. The messages channel stops
	// receiving afterwards.
	Disconnect()
}
