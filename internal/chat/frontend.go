// Package chat defines the transport-neutral message and vote types plus the
// frontend interface the request workflow talks to.
package chat

import "context"

// Message represents a normalized inbound chat message.
type Message struct {
	ID          string
	ChatID      string
	ThreadID    string // optional sub-thread within the chat, "" when absent
	SenderID    string
	SenderFirst string
	SenderUser  string // handle without the leading @, "" when the user has none
	Text        string
	IsPrivate   bool
}

// Vote represents a tapped inline button on a vote message.
type Vote struct {
	CallbackID string
	MessageID  string
	ChatID     string
	Token      string
	VoterID    string
	VoterFirst string
	VoterUser  string
}

// Button is one inline action rendered under a message.
type Button struct {
	Label string
	Token string
}

// Handlers receives normalized events from a frontend.
type Handlers struct {
	OnMessage func(ctx context.Context, msg *Message)
	OnVote    func(ctx context.Context, vote *Vote)
}

// Frontend is the unified interface to the chat transport.
type Frontend interface {
	// Listen starts receiving updates and dispatches them to the handlers.
	// It blocks until ctx is canceled.
	Listen(ctx context.Context, handlers Handlers) error

	// SendText sends a plain text message, optionally as a reply. Returns the
	// new message id.
	SendText(ctx context.Context, chatID, replyToID, text string) (string, error)

	// SendButtons sends a message with one row of inline buttons to the given
	// chat and optional thread. Returns the new message id.
	SendButtons(ctx context.Context, chatID, threadID, text string, buttons []Button) (string, error)

	// EditText replaces a message's text and removes its inline buttons.
	EditText(ctx context.Context, chatID, msgID, text string) error

	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, chatID, msgID string) error

	// AnswerCallback acknowledges a button tap with short feedback text.
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// DisplayName renders a user the way vote attributions and request lines
// show them: "First (@handle)" when a handle exists, otherwise just the
// first name.
func DisplayName(first, user string) string {
	if first == "" {
		first = "Unknown"
	}
	if user == "" {
		return first
	}
	return first + " (@" + user + ")"
}
