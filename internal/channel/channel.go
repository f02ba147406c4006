// Package channel defines the bridge between chat transports and the
// dispatcher. It provides the Channel interface, the Mux that routes
// envelopes to the channel they came from, addressing detection, message
// chunking and allow-list filtering.
package channel

import (
	"context"

	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/pkg/message"
)

// Inbox receives inbound messages from a channel. It blocks until the
// message's cycle completes.
type Inbox func(ctx context.Context, msg message.Message) error

// Channel is the bridge between a transport and the bot.
//
// A channel receives messages from its transport, marks them addressed when
// they name the bot, and pushes them to the dispatcher via the inbox. It
// delivers response envelopes via Send.
type Channel interface {
	core.Module

	// Send delivers an envelope using the default method.
	Send(ctx context.Context, env *message.Envelope) error

	// SetInbox gives the channel the function to push inbound messages to.
	// Called during wiring, before Start().
	SetInbox(fn Inbox)
}

// MethodChannel is implemented by channels that support custom delivery
// methods beyond plain sends, such as "react".
type MethodChannel interface {
	Channel

	// SendMethod delivers env using method. It returns ErrUnknownMethod for
	// methods the channel does not support.
	SendMethod(ctx context.Context, method string, env *message.Envelope) error
}
