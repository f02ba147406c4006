package hook

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/flemzord/sbot/internal/bot"
)

// AuditRecord is one JSON Lines entry written by AuditInterceptor.
type AuditRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	MessageID   string    `json:"message_id"`
	Channel     string    `json:"channel"`
	RoomID      string    `json:"room_id"`
	UserID      string    `json:"user_id"`
	InboundText string    `json:"inbound_text"`
	Outbound    []string  `json:"outbound"`
	Methods     []string  `json:"methods,omitempty"`
}

// AuditInterceptor writes a JSON Lines audit entry for every cycle that
// reaches the respond stage. Register it last so it sees the final batch.
type AuditInterceptor struct {
	writer io.Writer
	mu     sync.Mutex
	now    func() time.Time
}

// NewAuditInterceptor creates an audit interceptor that writes JSON Lines
// to w. In production, w is typically an *os.File; in tests, a *bytes.Buffer.
func NewAuditInterceptor(w io.Writer) *AuditInterceptor {
	return &AuditInterceptor{
		writer: w,
		now:    time.Now,
	}
}

// Compile-time interface check.
var _ Interceptor = (*AuditInterceptor)(nil)

// Intercept writes one record and always continues.
func (a *AuditInterceptor) Intercept(_ context.Context, s *bot.State) (Outcome, error) {
	msg := s.Message
	record := AuditRecord{
		Timestamp:   a.now(),
		MessageID:   msg.ID,
		Channel:     msg.Channel,
		RoomID:      msg.Room.ID,
		UserID:      msg.User.ID,
		InboundText: msg.Text,
	}

	for _, env := range s.Envelopes() {
		record.Outbound = append(record.Outbound, env.Text())
		if env.Method != "" {
			record.Methods = append(record.Methods, env.Method)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := json.NewEncoder(a.writer).Encode(record); err != nil {
		return Continue, err
	}
	return Continue, nil
}
