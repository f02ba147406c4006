// Package gateway provides an HTTP server for messaging, administration,
// monitoring, and webhooks. It binds to loopback by default and follows the
// module system pattern.
package gateway

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/flemzord/sbot/internal/bot"
	"github.com/flemzord/sbot/internal/config"
	"github.com/flemzord/sbot/internal/core"
)

// handleListBranches returns the registered branches in evaluation order.
func (g *Gateway) handleListBranches() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out := []bot.Info{}
		if g.bot != nil {
			for _, b := range g.bot.Registry().Branches() {
				out = append(out, b.Info())
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// handleGetAllModules lists all compiled modules (for /api/modules).
func (g *Gateway) handleGetAllModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Name:      m.ID.Name(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// secretPattern matches keys that likely contain secrets.
var secretPattern = regexp.MustCompile(`(?i)(secret|token|password|pass|key)`)

// handleGetConfig returns the current config with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.configPath == "" {
			http.Error(w, "config path not set", http.StatusServiceUnavailable)
			return
		}

		cfg, err := config.Load(g.configPath)
		if err != nil {
			http.Error(w, "failed to load config", http.StatusInternalServerError)
			return
		}

		generic, err := configMap(cfg)
		if err != nil {
			http.Error(w, "failed to serialize config", http.StatusInternalServerError)
			return
		}
		redactSecrets(generic)
		writeJSON(w, http.StatusOK, generic)
	}
}

// configMap converts cfg to a generic map, decoding module sections so their
// keys can be redacted too.
func configMap(cfg *config.Config) (map[string]any, error) {
	modules := make(map[string]any, len(cfg.Modules))
	for id, node := range cfg.Modules {
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		modules[id] = v
	}

	raw, err := json.Marshal(struct {
		*config.Config
		Modules map[string]any `json:"modules"`
	}{cfg, modules})
	if err != nil {
		return nil, err
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// redactSecrets walks a map and replaces values whose keys match the secret pattern.
func redactSecrets(m map[string]any) {
	for k, v := range m {
		if secretPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = "***REDACTED***"
			}
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			redactSecrets(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					redactSecrets(sub)
				}
			}
		}
	}
}

// handleReloadConfig triggers a hot-reload of the configuration.
func (g *Gateway) handleReloadConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.configPath == "" || g.reloader == nil {
			http.Error(w, "reload not available", http.StatusServiceUnavailable)
			return
		}

		if err := g.reloader.HandleReload(r.Context(), g.configPath); err != nil {
			g.logger.Error("config reload failed", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
