// Package message defines the platform-agnostic data contract between channels
// and the dispatcher: inbound messages and the envelopes sent in response.
package message

// RoomType indicates the kind of conversation.
type RoomType string

const (
	// RoomDM is a direct (one-to-one) conversation with the bot.
	RoomDM RoomType = "dm"
	// RoomGroup is a multi-participant conversation.
	RoomGroup RoomType = "group"
)

// User identifies the author of an inbound message or the target of an envelope.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Room identifies the conversation a message belongs to.
type Room struct {
	ID   string   `json:"id"`
	Type RoomType `json:"type,omitempty"`
	Name string   `json:"name,omitempty"`
}

// IsDirectMessage reports whether the room is a direct message.
func (r Room) IsDirectMessage() bool {
	return r.Type == RoomDM
}

// IsGroup reports whether the room is a group conversation.
func (r Room) IsGroup() bool {
	return r.Type == RoomGroup
}
