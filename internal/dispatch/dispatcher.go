// Package dispatch runs the message cycle: hear, match, listen and callback
// for each matched branch, respond, then deliver.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/sbot/internal/bot"
	"github.com/flemzord/sbot/internal/hook"
	"github.com/flemzord/sbot/internal/match"
	"github.com/flemzord/sbot/internal/memory"
	"github.com/flemzord/sbot/internal/settings"
	"github.com/flemzord/sbot/pkg/message"
)

// TracerName is the instrumentation scope of dispatcher spans.
const TracerName = "github.com/flemzord/sbot/internal/dispatch"

// CatchAllID is the branch ID reported for the catch-all callback.
const CatchAllID = "catch-all"

var (
	// ErrCallback wraps an error returned, or a value panicked, by a branch
	// callback.
	ErrCallback = errors.New("dispatch: callback failed")

	// ErrDelivery wraps the errors of envelopes the transport could not
	// deliver.
	ErrDelivery = errors.New("dispatch: delivery failed")

	// ErrNoSender is reported for each envelope when no transport is set.
	ErrNoSender = errors.New("dispatch: no sender configured")
)

// Status is the terminal state of a cycle.
type Status string

const (
	// StatusDiscarded means hear middleware stopped the cycle.
	StatusDiscarded Status = "discarded"
	// StatusUnmatched means no branch matched and no catch-all is set.
	StatusUnmatched Status = "unmatched"
	// StatusSilent means branches fired but produced no envelopes.
	StatusSilent Status = "silent"
	// StatusSuppressed means respond middleware stopped delivery.
	StatusSuppressed Status = "suppressed"
	// StatusDelivered means the envelope batch was handed to the transport.
	StatusDelivered Status = "delivered"
)

// Result summarises a completed cycle.
type Result struct {
	Status Status

	// Fired lists the IDs of branches whose callback ran, in order.
	Fired []string

	// Failures holds one ErrCallback-wrapped error per failed callback.
	Failures []error

	// Envelopes is the batch after the respond stage.
	Envelopes []*message.Envelope
}

// Sender delivers envelopes. *channel.Mux implements it.
type Sender interface {
	Send(ctx context.Context, env *message.Envelope) error
}

// Config holds the dependencies of a Dispatcher. Registry, Pipeline and
// Memory are created when nil.
type Config struct {
	Registry *bot.Registry
	Pipeline *hook.Pipeline
	Sender   Sender
	Memory   memory.Store
	Settings *settings.Settings
	Logger   *slog.Logger
	Metrics  *Metrics
	Tracer   trace.Tracer
}

// Dispatcher processes inbound messages. It is safe for concurrent use:
// each call to Receive runs its cycle on the caller's goroutine.
type Dispatcher struct {
	registry *bot.Registry
	pipeline *hook.Pipeline
	sender   Sender
	memory   memory.Store
	settings *settings.Settings
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer

	mu       sync.RWMutex
	catchAll bot.Callback
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		registry: cfg.Registry,
		pipeline: cfg.Pipeline,
		sender:   cfg.Sender,
		memory:   cfg.Memory,
		settings: cfg.Settings,
		logger:   logger.With("component", "dispatch"),
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
	}
	if d.registry == nil {
		d.registry = bot.NewRegistry(logger)
	}
	if d.pipeline == nil {
		d.pipeline = hook.NewPipeline(hook.WithLogger(logger))
	}
	if d.memory == nil {
		d.memory = memory.NewInMemoryStore()
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(TracerName)
	}
	return d
}

// Registry returns the branch registry.
func (d *Dispatcher) Registry() *bot.Registry { return d.registry }

// Pipeline returns the middleware pipeline.
func (d *Dispatcher) Pipeline() *hook.Pipeline { return d.pipeline }

// Memory returns the memory store handed to every cycle.
func (d *Dispatcher) Memory() memory.Store { return d.memory }

// Settings returns the settings provider, which may be nil.
func (d *Dispatcher) Settings() *settings.Settings { return d.settings }

// SetSender replaces the transport. Used when channels are wired after the
// dispatcher is built.
func (d *Dispatcher) SetSender(s Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sender = s
}

// Text registers a global branch.
func (d *Dispatcher) Text(id string, spec match.Spec, cb bot.Callback, opts ...bot.Option) error {
	return d.registry.Register(bot.NewBranch(id, spec, cb, opts...))
}

// Direct registers a branch that only considers addressed messages.
func (d *Dispatcher) Direct(id string, spec match.Spec, cb bot.Callback, opts ...bot.Option) error {
	opts = append(opts, bot.Directed())
	return d.registry.Register(bot.NewBranch(id, spec, cb, opts...))
}

// Hear registers hear-stage middleware.
func (d *Dispatcher) Hear(name string, fn hook.Func) { d.pipeline.Hear(name, fn) }

// Listen registers listen-stage middleware.
func (d *Dispatcher) Listen(name string, fn hook.Func) { d.pipeline.Listen(name, fn) }

// Respond registers respond-stage middleware.
func (d *Dispatcher) Respond(name string, fn hook.Func) { d.pipeline.Respond(name, fn) }

// CatchAll sets the callback run when no branch matches. A nil callback
// clears it.
func (d *Dispatcher) CatchAll(cb bot.Callback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.catchAll = cb
}

// Receive runs one cycle for msg. The returned error is nil or wraps
// ErrDelivery; callback failures are reported in Result.Failures.
func (d *Dispatcher) Receive(ctx context.Context, msg message.Message) (Result, error) {
	start := time.Now()

	ctx, span := d.tracer.Start(ctx, "dispatch.cycle", trace.WithAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.channel", msg.Channel),
		attribute.Bool("message.addressed", msg.Addressed),
	))
	defer span.End()

	res, err := d.cycle(ctx, msg)

	span.SetAttributes(
		attribute.String("dispatch.status", string(res.Status)),
		attribute.StringSlice("dispatch.fired", res.Fired),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	d.metrics.observeCycle(res.Status, time.Since(start))

	d.logger.Debug("cycle complete",
		"message", msg.ID,
		"status", res.Status,
		"fired", res.Fired,
		"envelopes", len(res.Envelopes),
		"duration", time.Since(start),
	)
	return res, err
}

func (d *Dispatcher) cycle(ctx context.Context, msg message.Message) (Result, error) {
	s := bot.NewState(msg, bot.Deps{
		Memory:   d.memory,
		Settings: d.settings,
		Logger:   d.logger,
	})

	if d.runStage(ctx, hook.StageHear, s) == hook.Stop {
		return Result{Status: StatusDiscarded}, nil
	}

	matches := d.registry.MatchAll(msg)
	var res Result
	if len(matches) == 0 {
		d.mu.RLock()
		catchAll := d.catchAll
		d.mu.RUnlock()
		if catchAll == nil {
			return Result{Status: StatusUnmatched}, nil
		}
		b := bot.NewBranch(CatchAllID, match.Spec{}, catchAll)
		d.execute(ctx, s, &b, match.Result{Matched: true}, &res)
	} else {
		d.executeAll(ctx, s, matches, &res)
	}

	envs := s.Envelopes()
	if len(envs) == 0 {
		res.Status = StatusSilent
		return res, nil
	}

	if d.runStage(ctx, hook.StageRespond, s) == hook.Stop {
		res.Status = StatusSuppressed
		res.Envelopes = s.Envelopes()
		return res, nil
	}

	res.Envelopes = s.Envelopes()
	res.Status = StatusDelivered
	return res, d.deliver(ctx, res.Envelopes)
}

// executeAll runs listen and the callback for each match in order. Only the
// first non-forced branch fires; forced branches fire in addition.
func (d *Dispatcher) executeAll(ctx context.Context, s *bot.State, matches []bot.Match, res *Result) {
	firedNonForced := false
	for _, m := range matches {
		if s.Done() || ctx.Err() != nil {
			return
		}
		if firedNonForced && !m.Branch.Force {
			continue
		}

		b := m.Branch
		s.SetBranch(&b, m.Result)
		if d.runStage(ctx, hook.StageListen, s) == hook.Stop {
			// Whatever listen wrote belongs to the skipped branch.
			s.DiscardPending()
			d.logger.Debug("branch skipped by listen middleware", "branch", b.ID)
			continue
		}

		d.execute(ctx, s, &b, m.Result, res)
		if !b.Force {
			firedNonForced = true
		}
	}
	s.SetBranch(nil, match.NoMatch)
}

// execute invokes a branch callback. A failed callback still counts as
// fired; envelopes it committed are kept and its pending one is dropped.
func (d *Dispatcher) execute(ctx context.Context, s *bot.State, b *bot.Branch, m match.Result, res *Result) {
	s.SetBranch(b, m)

	ctx, span := d.tracer.Start(ctx, "dispatch.callback", trace.WithAttributes(
		attribute.String("branch.id", b.ID),
		attribute.Bool("branch.force", b.Force),
	))
	defer span.End()

	err := safeCall(ctx, b.Callback, s)
	res.Fired = append(res.Fired, b.ID)
	d.metrics.observeFired(b.ID)

	if err != nil {
		s.DiscardPending()
		err = fmt.Errorf("%w: branch %s: %w", ErrCallback, b.ID, err)
		res.Failures = append(res.Failures, err)
		d.metrics.observeFailure(b.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.Error("branch callback failed", "branch", b.ID, "error", err)
		return
	}
	s.Commit()
}

func (d *Dispatcher) runStage(ctx context.Context, stage hook.Stage, s *bot.State) hook.Outcome {
	if d.pipeline.Len(stage) == 0 {
		return hook.Continue
	}
	ctx, span := d.tracer.Start(ctx, "dispatch."+string(stage))
	defer span.End()

	outcome := d.pipeline.Run(ctx, stage, s)
	span.SetAttributes(attribute.String("hook.outcome", outcome.String()))
	if id := s.BranchID(); id != "" {
		span.SetAttributes(attribute.String("branch.id", id))
	}
	return outcome
}

// deliver sends every envelope in order. Failures do not stop later
// envelopes; they are joined under ErrDelivery.
func (d *Dispatcher) deliver(ctx context.Context, envs []*message.Envelope) error {
	d.mu.RLock()
	sender := d.sender
	d.mu.RUnlock()

	ctx, span := d.tracer.Start(ctx, "dispatch.deliver", trace.WithAttributes(
		attribute.Int("envelopes", len(envs)),
	))
	defer span.End()

	var errs []error
	for _, env := range envs {
		var err error
		if sender == nil {
			err = ErrNoSender
		} else {
			err = sender.Send(ctx, env)
		}
		d.metrics.observeDelivery(env.DeliveryMethod(), err)
		if err != nil {
			d.logger.Warn("envelope delivery failed",
				"envelope", env.ID,
				"channel", env.Channel,
				"method", env.DeliveryMethod(),
				"error", err,
			)
			errs = append(errs, fmt.Errorf("envelope %s: %w", env.ID, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	err := fmt.Errorf("%w: %w", ErrDelivery, errors.Join(errs...))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func safeCall(ctx context.Context, cb bot.Callback, s *bot.State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return cb(ctx, s)
}
