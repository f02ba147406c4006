package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

// SignatureHeader carries the HMAC-SHA256 signature of a webhook body.
const SignatureHeader = "X-Signature-256"

// WebhookHandler processes a validated webhook payload and returns the JSON
// value to answer with, or nil for a plain acknowledgement.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, source string, body []byte, headers http.Header) (any, error)
}

// WebhookHandlerFunc adapts a function to WebhookHandler.
type WebhookHandlerFunc func(ctx context.Context, source string, body []byte, headers http.Header) (any, error)

// HandleWebhook implements WebhookHandler.
func (f WebhookHandlerFunc) HandleWebhook(ctx context.Context, source string, body []byte, headers http.Header) (any, error) {
	return f(ctx, source, body, headers)
}

type webhookEntry struct {
	handler WebhookHandler
	secret  string
}

// WebhookDispatcher routes incoming webhooks to registered handlers with HMAC validation.
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]webhookEntry
	maxBody  int64
	logger   *slog.Logger
}

// NewWebhookDispatcher creates a ready-to-use dispatcher. Bodies larger than
// maxBody bytes are rejected; zero means unlimited.
func NewWebhookDispatcher(logger *slog.Logger, maxBody int64) *WebhookDispatcher {
	return &WebhookDispatcher{
		handlers: make(map[string]webhookEntry),
		maxBody:  maxBody,
		logger:   logger,
	}
}

// Register adds a handler for the given source with an optional HMAC secret.
func (d *WebhookDispatcher) Register(source string, h WebhookHandler, secret string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[source] = webhookEntry{handler: h, secret: secret}
}

// Sources returns the number of registered sources.
func (d *WebhookDispatcher) Sources() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// ServeHTTP implements http.Handler. It extracts the source from the chi URL param,
// validates HMAC if configured, and dispatches to the registered handler.
func (d *WebhookDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	source := chi.URLParam(r, "source")
	if source == "" {
		http.Error(w, "missing source", http.StatusBadRequest)
		return
	}

	d.mu.RLock()
	entry, ok := d.handlers[source]
	d.mu.RUnlock()

	if !ok {
		d.logger.Warn("webhook received for unregistered source", "source", source)
		http.Error(w, "unknown source", http.StatusNotFound)
		return
	}

	reader := io.Reader(r.Body)
	if d.maxBody > 0 {
		reader = http.MaxBytesReader(w, r.Body, d.maxBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if entry.secret != "" {
		if !validateHMAC(body, r.Header.Get(SignatureHeader), entry.secret) {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	resp, err := entry.handler.HandleWebhook(r.Context(), source, body, r.Header)
	if err != nil {
		d.logger.Error("webhook handler failed", "source", source, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if resp == nil {
		resp = map[string]bool{"ok": true}
	}
	writeJSON(w, http.StatusOK, resp)
}

// validateHMAC checks HMAC-SHA256 signature in constant time.
func validateHMAC(body []byte, signature, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(sign(body, secret)), []byte(signature)) == 1
}

// sign returns the SignatureHeader value for body.
func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
