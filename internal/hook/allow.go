package hook

import (
	"context"

	"github.com/flemzord/sbot/internal/bot"
	"github.com/flemzord/sbot/internal/channel"
)

// Allow returns a hear interceptor that discards messages whose sender and
// room are not on the allow-list.
func Allow(al *channel.AllowList) Func {
	return func(_ context.Context, s *bot.State) (Outcome, error) {
		if al.IsAllowed(s.Message) {
			return Continue, nil
		}
		s.Logger.Debug("message denied by allow-list", "user", s.Message.User.ID, "room", s.Message.Room.ID)
		return Stop, nil
	}
}
