package scripts

import (
	"context"
	"regexp"
	"strings"

	"github.com/flemzord/sbot/internal/bot"
	"github.com/flemzord/sbot/internal/hook"
	"github.com/flemzord/sbot/internal/memory"
)

var usersPattern = regexp.MustCompile(`(?i)users`)

// ignoreUsers discards any message mentioning users.
func ignoreUsers(_ context.Context, s *bot.State) (hook.Outcome, error) {
	if usersPattern.MatchString(s.Message.Text) {
		s.Logger.Debug("ignoring message about users")
		return hook.Stop, nil
	}
	return hook.Continue, nil
}

// swapSpareCar keeps the bot from giving away the same car twice: the first
// car handed out is the 🚗, the next one is the spare 🚙, and so on.
func swapSpareCar(_ context.Context, s *bot.State) (hook.Outcome, error) {
	for _, env := range s.Envelopes() {
		for i, text := range env.Strings {
			if !strings.Contains(text, car) {
				continue
			}
			current := memory.GetString(s.Memory, memory.Global(), KeySpareCar)
			if current == "" {
				current = car
			}
			if current != car {
				env.Strings[i] = strings.Replace(text, car, current, 1)
				s.Memory.Set(memory.Global(), KeySpareCar, car)
				continue
			}
			s.Logger.Warn("gave away the car, better get out the spare", "car", car, "spare", spareCar)
			s.Memory.Set(memory.Global(), KeySpareCar, spareCar)
		}
	}
	return hook.Continue, nil
}
