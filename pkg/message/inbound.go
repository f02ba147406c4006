package message

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a message received from a channel. It is treated as
// read-only once handed to the dispatcher.
type Message struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Text      string    `json:"text"`
	User      User      `json:"user"`
	Room      Room      `json:"room"`

	// Addressed is true when the bot was explicitly named or the message
	// arrived in a direct room.
	Addressed bool `json:"addressed,omitempty"`
}

// NewMessage creates a message with a fresh ID and the current timestamp.
func NewMessage(channel string, user User, room Room, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Channel:   channel,
		Text:      text,
		User:      user,
		Room:      room,
	}
}

// String returns the message text.
func (m Message) String() string {
	return m.Text
}

// IsDirectMessage reports whether the message arrived in a direct room.
func (m Message) IsDirectMessage() bool {
	return m.Room.IsDirectMessage()
}
