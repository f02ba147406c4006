package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/flemzord/sbot/internal/channel"
	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/internal/dispatch"
	"github.com/flemzord/sbot/internal/settings"
	"github.com/flemzord/sbot/pkg/message"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// ChannelName is the channel name inbound HTTP, WebSocket and webhook
// messages carry. Like every channel module it is the module ID.
const ChannelName = "gateway.http"

// MethodReact is the custom delivery method the gateway accepts besides
// plain sends. Reactions are delivered like any other envelope, with the
// method preserved so clients can render them.
const MethodReact = "react"

// ErrNoRecipient is returned by Send when no request or connection is
// waiting on the envelope's room.
var ErrNoRecipient = errors.New("gateway: no client for room")

// Reloader reloads the configuration from disk.
type Reloader interface {
	HandleReload(ctx context.Context, configPath string) error
}

// Gateway is the HTTP gateway module. It exposes health, status, metrics,
// admin and webhook endpoints, and doubles as a chat channel: messages
// posted to /api/messages or sent over /ws are pushed to the dispatcher and
// the envelopes the bot sends back are returned to the client.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	metrics   *Metrics
	webhooks  *WebhookDispatcher
	limiter   *rate.Limiter
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	bot        *dispatch.Dispatcher
	settings   *settings.Settings
	reloader   Reloader
	configPath string
	gatherer   prometheus.Gatherer

	mu      sync.Mutex
	inbox   channel.Inbox
	pending map[string]*collector
	conns   map[string]*websocket.Conn
}

// Compile-time interface guards.
var (
	_ core.Module           = (*Gateway)(nil)
	_ core.Configurable     = (*Gateway)(nil)
	_ core.Provisioner      = (*Gateway)(nil)
	_ core.Validator        = (*Gateway)(nil)
	_ core.Starter          = (*Gateway)(nil)
	_ core.Stopper          = (*Gateway)(nil)
	_ channel.MethodChannel = (*Gateway)(nil)
)

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ChannelName,
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger.With("component", "gateway")
	g.metrics = &Metrics{}
	g.webhooks = NewWebhookDispatcher(g.logger, g.config.MaxBodyBytes)
	g.limiter = rate.NewLimiter(rate.Limit(g.config.Auth.RateLimit), g.config.Auth.Burst)
	g.init()

	for source, cfg := range g.config.Webhooks {
		g.webhooks.Register(source, WebhookHandlerFunc(g.handleWebhookMessage), cfg.Secret)
		g.logger.Info("webhook source configured", "source", source, "signed", cfg.Secret != "")
	}

	ctx.RegisterService("gateway.metrics", g.metrics)
	ctx.RegisterService("gateway.webhooks", g.webhooks)
	return nil
}

func (g *Gateway) init() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		g.pending = make(map[string]*collector)
	}
	if g.conns == nil {
		g.conns = make(map[string]*websocket.Conn)
	}
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// SetInbox implements channel.Channel.
func (g *Gateway) SetInbox(fn channel.Inbox) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inbox = fn
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	g.init()
	g.resolveServices()

	if reg, ok := core.Service[*prometheus.Registry](g.appCtx, "metrics.registry"); ok {
		if err := g.metrics.Register(reg); err != nil {
			return fmt.Errorf("gateway: registering metrics: %w", err)
		}
	}

	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// resolveServices binds optional services. Missing services degrade the
// endpoints that need them.
func (g *Gateway) resolveServices() {
	if g.appCtx == nil {
		return
	}
	if d, ok := core.Service[*dispatch.Dispatcher](g.appCtx, "bot.dispatcher"); ok {
		g.bot = d
	}
	if s, ok := core.Service[*settings.Settings](g.appCtx, "bot.settings"); ok {
		g.settings = s
	}
	if r, ok := core.Service[Reloader](g.appCtx, "reload.handler"); ok {
		g.reloader = r
	}
	if p, ok := core.Service[string](g.appCtx, "config.path"); ok {
		g.configPath = p
	}
	if reg, ok := core.Service[*prometheus.Registry](g.appCtx, "metrics.registry"); ok {
		g.gatherer = reg
	}
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	g.mu.Lock()
	for room, conn := range g.conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(g.conns, room)
	}
	g.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// Send implements channel.Channel.
func (g *Gateway) Send(ctx context.Context, env *message.Envelope) error {
	return g.deliver(ctx, env)
}

// SendMethod implements channel.MethodChannel. Only MethodReact is
// supported.
func (g *Gateway) SendMethod(ctx context.Context, method string, env *message.Envelope) error {
	if method != MethodReact {
		return fmt.Errorf("%w: %s", channel.ErrUnknownMethod, method)
	}
	return g.deliver(ctx, env)
}

// deliver hands env to the HTTP request or WebSocket connection waiting on
// its room.
func (g *Gateway) deliver(ctx context.Context, env *message.Envelope) error {
	env = channel.SplitEnvelope(env, channel.ChunkConfig{
		MaxLength:      g.config.MaxMessageLength,
		PreserveBlocks: true,
	})

	g.mu.Lock()
	c, pending := g.pending[env.Room.ID]
	conn, connected := g.conns[env.Room.ID]
	g.mu.Unlock()

	switch {
	case pending:
		c.add(env.Clone())
	case connected:
		if err := writeEnvelope(ctx, conn, env); err != nil {
			g.metrics.RecordError()
			return fmt.Errorf("gateway: websocket write: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrNoRecipient, env.Room.ID)
	}
	g.metrics.RecordEnvelope()
	return nil
}

// push addresses msg and hands it to the inbox.
func (g *Gateway) push(ctx context.Context, msg message.Message) error {
	g.mu.Lock()
	inbox := g.inbox
	g.mu.Unlock()
	if inbox == nil {
		return channel.ErrNoInbox
	}

	if g.settings != nil {
		channel.Address(&msg, g.settings.String("name"), g.settings.String("alias"))
	} else if msg.Room.IsDirectMessage() {
		msg.Addressed = true
	}

	g.metrics.RecordMessage()
	if err := inbox(ctx, msg); err != nil {
		g.metrics.RecordError()
		return err
	}
	return nil
}
