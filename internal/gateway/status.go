package gateway

import (
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime   time.Duration   `json:"uptime_seconds"`
	Metrics  MetricsSnapshot `json:"metrics"`
	Branches int             `json:"branches"`
	Webhooks int             `json:"webhooks"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime:   time.Since(g.startedAt).Truncate(time.Second),
			Metrics:  g.metrics.Snapshot(),
			Webhooks: g.webhooks.Sources(),
		}
		if g.bot != nil {
			resp.Branches = g.bot.Registry().Len()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
