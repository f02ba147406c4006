package channel_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/flemzord/sbot/internal/channel"
	"github.com/flemzord/sbot/internal/channel/channeltest"
	"github.com/flemzord/sbot/pkg/message"
)

func TestMux_RoutesByChannel(t *testing.T) {
	t.Parallel()

	shell := channeltest.NewMockChannel("shell", nil)
	ws := channeltest.NewMockChannel("websocket", nil)
	mux := channel.NewMux()
	if err := mux.Register("shell", shell); err != nil {
		t.Fatal(err)
	}
	if err := mux.Register("websocket", ws); err != nil {
		t.Fatal(err)
	}

	if err := mux.Send(context.Background(), &message.Envelope{Channel: "websocket", Strings: []string{"hi"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(ws.Sent()) != 1 || len(shell.Sent()) != 0 {
		t.Errorf("ws=%d shell=%d, want 1 and 0", len(ws.Sent()), len(shell.Sent()))
	}
	if got := mux.Channels(); !slices.Equal(got, []string{"shell", "websocket"}) {
		t.Errorf("Channels() = %v", got)
	}
}

func TestMux_Errors(t *testing.T) {
	t.Parallel()

	mux := channel.NewMux()
	plain := channeltest.NewMockChannel("plain", nil)
	if err := mux.Register("plain", plain); err != nil {
		t.Fatal(err)
	}

	if err := mux.Register("plain", plain); !errors.Is(err, channel.ErrDuplicateChannel) {
		t.Errorf("duplicate Register = %v, want ErrDuplicateChannel", err)
	}

	err := mux.Send(context.Background(), &message.Envelope{Channel: "missing"})
	if !errors.Is(err, channel.ErrNoChannel) {
		t.Errorf("Send(missing) = %v, want ErrNoChannel", err)
	}

	err = mux.Send(context.Background(), (&message.Envelope{Channel: "plain"}).Via("react"))
	if !errors.Is(err, channel.ErrUnknownMethod) {
		t.Errorf("Send(react) = %v, want ErrUnknownMethod", err)
	}
}

func TestMux_CustomMethod(t *testing.T) {
	t.Parallel()

	ch := channeltest.NewMockChannel("shell", nil, "react")
	mux := channel.NewMux()
	_ = mux.Register("shell", ch)

	env := (&message.Envelope{Channel: "shell", Strings: []string{":wave:"}}).Via("react")
	if err := mux.Send(context.Background(), env); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := ch.Sent(); len(got) != 1 || got[0].Method != "react" {
		t.Errorf("Sent() = %+v", got)
	}
}
