// Package scripts registers the demonstration branches and middleware that
// exercise the bot's public API: text and direct branches, custom delivery
// methods, forced branches, rich envelopes, semantic conditions, external
// lookups, settings, memory and all three middleware stages.
package scripts

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/flemzord/sbot/internal/bot"
	"github.com/flemzord/sbot/internal/dispatch"
	"github.com/flemzord/sbot/internal/hook"
	"github.com/flemzord/sbot/internal/match"
	"github.com/flemzord/sbot/internal/memory"
	"github.com/flemzord/sbot/internal/settings"
	"github.com/flemzord/sbot/pkg/message"
)

// ErrNoSettings is returned when the dispatcher has no settings provider.
var ErrNoSettings = errors.New("scripts: dispatcher has no settings provider")

// Setting names declared by the scripts.
const (
	SettingFlag       = "flag"
	SettingOMDbAPIKey = "omdb-api-key"
)

// DefaultFlag is the flag emoji used when none is configured.
const DefaultFlag = "🏳️‍🌈"

// Memory keys used by the scripts.
const (
	KeyBeetles  = "beetles"
	KeySpareCar = "spare-car"
)

const (
	car      = "🚗"
	spareCar = "🚙"
)

// Options tune the scripts. The zero value is usable.
type Options struct {
	// OMDbURL is the base URL of the film lookup API.
	OMDbURL string

	// HTTPClient performs the film lookup.
	HTTPClient *http.Client

	// ReactEvery limits how often the hello-react branch fires.
	ReactEvery time.Duration
}

func (o *Options) applyDefaults() {
	if o.OMDbURL == "" {
		o.OMDbURL = DefaultOMDbURL
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if o.ReactEvery <= 0 {
		o.ReactEvery = 3 * time.Second
	}
}

// Register adds every demonstration branch and middleware to d. Failures
// to register individual branches are joined; the others stay registered.
func Register(d *dispatch.Dispatcher, opts Options) error {
	st := d.Settings()
	if st == nil {
		return ErrNoSettings
	}
	opts.applyDefaults()

	st.Extend(map[string]settings.Option{
		SettingFlag: {
			Type:        settings.TypeString,
			Description: "Set a custom flag emoji to give your bot local flair.",
			Default:     DefaultFlag,
		},
		SettingOMDbAPIKey: {
			Type:        settings.TypeString,
			Description: "API key for omdbapi.com film lookups.",
		},
	})

	films := &omdbClient{baseURL: opts.OMDbURL, http: opts.HTTPClient}

	errs := []error{
		d.Text("hello-bots", match.MustRegexp(`(?i)\b(hi|hello) bots\b`), respond("Hello 👋")),
		d.Direct("hello-direct", match.MustRegexp(`(?i)\b(hi|hello)\b`), func(_ context.Context, s *bot.State) error {
			s.Reply("Hey there.")
			return nil
		}),
		d.Text("hello-react", match.Contains("hi", "hello"), react(":wave:")),
		d.Text("baby-react", match.Contains("baby"), react(":baby:"), bot.Forced()),
		d.Direct("ping-delay", match.MustRegexp(`(?i)ping back in (\d*)`), pingDelay),
		d.Text("attach-image", match.MustRegexp(`(?i)attach image`), attachImage),
		d.Text("door-prize-intro", match.Contains("prize"), doorPrizeIntro),
		d.Text("door-prize-award", match.MustConditions(map[string]match.Condition{
			"door": {After: "door", Range: "1-3"},
		}), doorPrizeAward),
		d.Text("movie-awards", match.MustWhen(match.Condition{Before: "awards"}), films.awards),
		d.Direct("where-from", match.Contains("where are you from"), func(_ context.Context, s *bot.State) error {
			s.Respond(s.Settings.String(SettingFlag))
			return nil
		}),
		d.Text("beetlejuice", match.Contains("beetlejuice"), beetlejuice),
	}

	d.Hear("ignore-users", ignoreUsers)
	d.Pipeline().Register(hook.StageListen, "throttle-react", hook.NewThrottle(opts.ReactEvery, 1, "hello-react"))
	d.Respond("spare-car", swapSpareCar)

	return errors.Join(errs...)
}

func respond(text string) bot.Callback {
	return func(_ context.Context, s *bot.State) error {
		s.Respond(text)
		return nil
	}
}

func react(emoji string) bot.Callback {
	return func(_ context.Context, s *bot.State) error {
		s.RespondVia("react", emoji)
		return nil
	}
}

func pingDelay(ctx context.Context, s *bot.State) error {
	secs, _ := strconv.Atoi(s.Capture(0))
	if secs > 0 {
		timer := time.NewTimer(time.Duration(secs) * time.Second)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.Respond("Ping 🏓")
	return nil
}

func attachImage(_ context.Context, s *bot.State) error {
	s.Respond(message.Attachment{
		Fallback: "See: https://www.wikiwand.com/en/Three_Laws_of_Robotics",
		Image:    "https://upload.wikimedia.org/wikipedia/en/8/8e/I_Robot_-_Runaround.jpg",
		Title: &message.Title{
			Text: "Asimov's Three Laws of Robotics",
			Link: "https://www.wikiwand.com/en/Three_Laws_of_Robotics",
		},
	})
	return nil
}

func doorPrizeIntro(_ context.Context, s *bot.State) error {
	env := s.Envelope()
	env.Write("Choose your fate! 🚪... 🎁 ")
	env.Attach(message.Attachment{Color: "#f4426e"})
	env.Payload().
		QuickReply(message.QuickReply{Text: "Door number 1"}).
		QuickReply(message.QuickReply{Text: "Door number 2"}).
		QuickReply(message.QuickReply{Text: "Door number 3"})
	s.Respond()
	return nil
}

func doorPrizeAward(_ context.Context, s *bot.State) error {
	switch s.Value("door") {
	case "1":
		s.Respond("You win nothing 💔")
	case "2":
		s.Respond("You win a monkey 🐒")
	case "3":
		s.Respond("It's a new car!! " + car)
	default:
		// Only doors 1 to 3 hold a prize; anything else gets no answer.
		s.Logger.Debug("no prize behind door", "door", s.Value("door"))
	}
	return nil
}

func beetlejuice(_ context.Context, s *bot.State) error {
	n := memory.Increment(s.Memory, memory.Global(), KeyBeetles)
	s.Logger.Debug("beetlejuice counter", "count", n)
	switch n {
	case 1:
		s.Respond("☝️")
	case 2:
		s.Respond("✌️")
	case 3:
		s.Respond("🐞")
	default:
		s.Respond("😱")
	}
	return nil
}
