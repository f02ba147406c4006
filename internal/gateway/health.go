package gateway

import "net/http"

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"` // "ok" or "degraded"
	Branches int    `json:"branches"`
}

// handleHealth returns an http.HandlerFunc for GET /health. It reports
// degraded with 503 when the gateway was started without an inbox, since it
// cannot take messages.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}

		if g.bot != nil {
			resp.Branches = g.bot.Registry().Len()
		}

		g.mu.Lock()
		wired := g.inbox != nil
		g.mu.Unlock()

		code := http.StatusOK
		if !wired {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
