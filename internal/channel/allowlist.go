package channel

import (
	"strings"

	"github.com/flemzord/sbot/pkg/message"
)

// AllowList controls which users and rooms are permitted to interact with
// the bot. An empty or nil AllowList denies everyone.
type AllowList struct {
	users map[string]struct{}
	rooms map[string]struct{}
}

// NewAllowList creates an AllowList with O(1) lookups. Keys are trimmed and
// lowercased at construction time so that IsAllowed can use direct map lookups.
func NewAllowList(users, rooms []string) *AllowList {
	a := &AllowList{
		users: make(map[string]struct{}, len(users)),
		rooms: make(map[string]struct{}, len(rooms)),
	}
	for _, u := range users {
		a.users[normalize(u)] = struct{}{}
	}
	for _, r := range rooms {
		a.rooms[normalize(r)] = struct{}{}
	}
	return a
}

// Empty reports whether the list names no user and no room.
func (a *AllowList) Empty() bool {
	return a == nil || (len(a.users) == 0 && len(a.rooms) == 0)
}

// IsAllowed reports whether the message sender or room is permitted.
//
// Rules:
//   - If both maps are empty → deny (no one is allowed).
//   - If the sender's ID or name matches a user entry → allow.
//   - If the room's ID matches a room entry → allow.
//   - Otherwise → deny.
func (a *AllowList) IsAllowed(msg message.Message) bool {
	if a.Empty() {
		return false
	}

	if _, ok := a.users[normalize(msg.User.ID)]; ok {
		return true
	}
	if msg.User.Name != "" {
		if _, ok := a.users[normalize(msg.User.Name)]; ok {
			return true
		}
	}
	if _, ok := a.rooms[normalize(msg.Room.ID)]; ok {
		return true
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
