package channel

import (
	"strings"
	"unicode"

	"github.com/flemzord/sbot/pkg/message"
)

// IsAddressed reports whether text starts with the bot's name or alias,
// optionally prefixed with "@" and followed by punctuation or a space.
// Matching ignores case.
func IsAddressed(text, name, alias string) bool {
	_, ok := stripAddress(text, name, alias)
	return ok
}

// Address marks msg addressed when it arrived in a direct room or names the
// bot.
func Address(msg *message.Message, name, alias string) {
	if msg.Room.IsDirectMessage() || IsAddressed(msg.Text, name, alias) {
		msg.Addressed = true
	}
}

func stripAddress(text, name, alias string) (string, bool) {
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	trimmed = strings.TrimPrefix(trimmed, "@")
	lower := strings.ToLower(trimmed)

	for _, n := range []string{name, alias} {
		if n == "" {
			continue
		}
		n = strings.ToLower(n)
		if !strings.HasPrefix(lower, n) {
			continue
		}
		rest := trimmed[len(n):]
		if rest == "" {
			return "", true
		}
		r := []rune(rest)[0]
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			return strings.TrimLeftFunc(rest, func(r rune) bool {
				return unicode.IsSpace(r) || unicode.IsPunct(r)
			}), true
		}
	}
	return text, false
}
