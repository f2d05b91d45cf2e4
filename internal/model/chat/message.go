package chat

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderBot  Sender = "bot"
	SenderUser Sender = "user"
)

// Message is a single entry in a widget transcript. Messages are never edited
// after they are appended.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Language  string    `json:"language"`
}

// NewMessage stamps a message with a fresh id.
func NewMessage(sender Sender, content, language string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Timestamp: at,
		Language:  language,
	}
}

// IsBot reports whether the message came from the assistant side.
func (m Message) IsBot() bool { return m.Sender == SenderBot }
