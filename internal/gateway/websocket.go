package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/flemzord/sbot/pkg/message"
	"github.com/google/uuid"
)

const wsWriteTimeout = 10 * time.Second

// wsError is sent back over the socket when an inbound frame is rejected.
type wsError struct {
	Error string `json:"error"`
}

// handleWebSocket serves /ws. Each connection is its own direct room unless
// the client names one with ?room=; envelopes the bot sends to that room are
// written to the socket as they are delivered.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	roomType := message.RoomGroup
	if room == "" {
		room = "ws:" + uuid.NewString()
		roomType = message.RoomDM
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	g.mu.Lock()
	if _, taken := g.conns[room]; taken {
		g.mu.Unlock()
		_ = conn.Close(websocket.StatusPolicyViolation, "room already connected")
		return
	}
	g.conns[room] = conn
	g.mu.Unlock()
	g.metrics.RecordConnection(1)

	g.logger.Info("websocket connected", "room", room)
	g.readLoop(r.Context(), conn, message.Room{ID: room, Type: roomType})

	g.mu.Lock()
	delete(g.conns, room)
	g.mu.Unlock()
	g.metrics.RecordConnection(-1)
	g.logger.Info("websocket disconnected", "room", room)
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, room message.Room) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var in InboundMessage
		if err := json.Unmarshal(data, &in); err != nil {
			g.sendError(ctx, conn, "invalid message format")
			continue
		}
		in.Room = room

		msg, err := in.toMessage("")
		if err != nil {
			g.sendError(ctx, conn, err.Error())
			continue
		}
		if err := g.push(ctx, msg); err != nil {
			g.logger.Warn("websocket message failed", "room", room.ID, "error", err)
			g.sendError(ctx, conn, "message failed")
		}
	}
}

func (g *Gateway) sendError(ctx context.Context, conn *websocket.Conn, detail string) {
	if err := writeFrame(ctx, conn, wsError{Error: detail}); err != nil {
		g.logger.Debug("websocket error frame not sent", "error", err)
	}
}

// writeEnvelope writes env to conn as a JSON text frame.
func writeEnvelope(ctx context.Context, conn *websocket.Conn, env *message.Envelope) error {
	return writeFrame(ctx, conn, env)
}

func writeFrame(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
