package gateway

import "time"

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string                      `yaml:"bind"`
	Auth            AuthConfig                  `yaml:"auth"`
	Webhooks        map[string]WebhookSourceCfg `yaml:"webhooks"`
	ReadTimeout     time.Duration               `yaml:"read_timeout"`
	WriteTimeout    time.Duration               `yaml:"write_timeout"`
	ShutdownTimeout time.Duration               `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps inbound message and webhook bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// MaxMessageLength splits outgoing strings longer than this many bytes,
	// keeping fenced code blocks together where possible. Zero disables it.
	MaxMessageLength int `yaml:"max_message_length"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	c.Auth.defaults()
}

// AuthConfig configures authentication for admin and messaging endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`

	// RateLimit is the sustained number of authentication attempts allowed
	// per second across all clients; Burst is the bucket size.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

func (a *AuthConfig) defaults() {
	if a.RateLimit <= 0 {
		a.RateLimit = 10
	}
	if a.Burst <= 0 {
		a.Burst = 20
	}
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}

// WebhookSourceCfg holds per-source webhook configuration. Each configured
// source accepts inbound chat messages signed with Secret.
type WebhookSourceCfg struct {
	Secret string `yaml:"secret"`
}
