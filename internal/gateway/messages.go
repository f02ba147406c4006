package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/flemzord/sbot/internal/channel"
	"github.com/flemzord/sbot/pkg/message"
	"github.com/google/uuid"
)

// errRoomBusy is returned when a room already has a request in flight.
var errRoomBusy = errors.New("gateway: room has a request in flight")

// InboundMessage is the JSON body accepted by POST /api/messages, the
// WebSocket endpoint and message webhooks.
type InboundMessage struct {
	Text string       `json:"text"`
	User message.User `json:"user"`
	Room message.Room `json:"room"`
}

// Reply is the JSON answer to an inbound message: the envelopes the bot
// sent to the message's room while handling it.
type Reply struct {
	MessageID string              `json:"message_id"`
	Room      string              `json:"room"`
	Envelopes []*message.Envelope `json:"envelopes"`
}

// collector gathers envelopes sent to a room while its request is in flight.
type collector struct {
	mu   sync.Mutex
	envs []*message.Envelope
}

func (c *collector) add(env *message.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
}

func (c *collector) drain() []*message.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.envs
	c.envs = nil
	if out == nil {
		out = []*message.Envelope{}
	}
	return out
}

// toMessage validates in and builds the message to dispatch. A missing room
// gets a fresh direct room so replies cannot leak to other clients.
func (in InboundMessage) toMessage(roomPrefix string) (message.Message, error) {
	if strings.TrimSpace(in.Text) == "" {
		return message.Message{}, errors.New("text is required")
	}
	user := in.User
	if user.ID == "" {
		user.ID = "anonymous"
	}
	room := in.Room
	if room.ID == "" {
		room = message.Room{ID: roomPrefix + uuid.NewString(), Type: message.RoomDM}
	}
	if room.Type == "" {
		room.Type = message.RoomGroup
	}
	return message.NewMessage(ChannelName, user, room, in.Text), nil
}

// exchange dispatches msg and returns what the bot sent to its room.
func (g *Gateway) exchange(ctx context.Context, msg message.Message) (Reply, error) {
	c := &collector{}

	g.mu.Lock()
	if _, busy := g.pending[msg.Room.ID]; busy {
		g.mu.Unlock()
		return Reply{}, fmt.Errorf("%w: %s", errRoomBusy, msg.Room.ID)
	}
	g.pending[msg.Room.ID] = c
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, msg.Room.ID)
		g.mu.Unlock()
	}()

	if err := g.push(ctx, msg); err != nil {
		return Reply{}, err
	}
	return Reply{MessageID: msg.ID, Room: msg.Room.ID, Envelopes: c.drain()}, nil
}

// handlePostMessage serves POST /api/messages.
func (g *Gateway) handlePostMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in InboundMessage
		body := http.MaxBytesReader(w, r.Body, g.config.MaxBodyBytes)
		if err := json.NewDecoder(body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		msg, err := in.toMessage("http:")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		reply, err := g.exchange(r.Context(), msg)
		if err != nil {
			writeJSON(w, exchangeStatus(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

// handleWebhookMessage accepts a signed InboundMessage from a webhook
// source. The source name prefixes generated rooms and names anonymous
// users.
func (g *Gateway) handleWebhookMessage(ctx context.Context, source string, body []byte, _ http.Header) (any, error) {
	var in InboundMessage
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("gateway: webhook %s: %w", source, err)
	}
	if in.User.ID == "" {
		in.User = message.User{ID: source, Name: source}
	}
	msg, err := in.toMessage("webhook:" + source + ":")
	if err != nil {
		return nil, fmt.Errorf("gateway: webhook %s: %w", source, err)
	}
	reply, err := g.exchange(ctx, msg)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func exchangeStatus(err error) int {
	switch {
	case errors.Is(err, errRoomBusy):
		return http.StatusConflict
	case errors.Is(err, channel.ErrNoInbox):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
