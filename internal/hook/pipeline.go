package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/sbot/internal/bot"
)

type entry struct {
	name string
	ic   Interceptor
}

// Pipeline manages interceptor registration and execution.
// Interceptors run strictly in registration order within a stage.
// Thread-safe: registrations use a write lock, executions use a read lock.
type Pipeline struct {
	mu      sync.RWMutex
	stages  map[Stage][]entry
	stall   time.Duration
	logger  *slog.Logger
	observe func(stage Stage, name string, outcome Outcome, err error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStallTimeout bounds each interceptor call. Zero disables the guard.
func WithStallTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.stall = d }
}

// WithLogger sets the logger errors and stalls are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithObserver registers a callback invoked after every interceptor call.
func WithObserver(fn func(stage Stage, name string, outcome Outcome, err error)) Option {
	return func(p *Pipeline) { p.observe = fn }
}

// NewPipeline creates a new empty pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		stages: make(map[Stage][]entry),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "hook")
	return p
}

// Register appends an interceptor to a stage. The name identifies it in
// logs; an empty name is replaced by its position.
func (p *Pipeline) Register(stage Stage, name string, ic Interceptor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if name == "" {
		name = fmt.Sprintf("%s#%d", stage, len(p.stages[stage]))
	}
	p.stages[stage] = append(p.stages[stage], entry{name: name, ic: ic})
}

// Hear registers a hear-stage interceptor function.
func (p *Pipeline) Hear(name string, fn Func) { p.Register(StageHear, name, fn) }

// Listen registers a listen-stage interceptor function.
func (p *Pipeline) Listen(name string, fn Func) { p.Register(StageListen, name, fn) }

// Respond registers a respond-stage interceptor function.
func (p *Pipeline) Respond(name string, fn Func) { p.Register(StageRespond, name, fn) }

// SetStallTimeout replaces the stall timeout. Used on config reload.
func (p *Pipeline) SetStallTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stall = d
}

// Len returns the number of interceptors registered for a stage.
func (p *Pipeline) Len(stage Stage) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.stages[stage])
}

// Run executes the interceptors of a stage in order and short-circuits on
// Stop. At the hear and respond stages a Stop also finishes the state; a
// listen Stop only concerns the current branch.
func (p *Pipeline) Run(ctx context.Context, stage Stage, s *bot.State) Outcome {
	p.mu.RLock()
	entries := p.stages[stage]
	stall := p.stall
	p.mu.RUnlock()

	for _, e := range entries {
		outcome, err := p.call(ctx, stall, e, s)
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, ErrPanic) {
				level = slog.LevelError
			}
			p.logger.Log(ctx, level, "hook: "+string(stage)+" error",
				"interceptor", e.name,
				"branch", s.BranchID(),
				"error", err,
			)
		}
		if p.observe != nil {
			p.observe(stage, e.name, outcome, err)
		}
		if outcome == Stop {
			if stage != StageListen {
				s.Finish()
			}
			return Stop
		}
	}
	return Continue
}

func (p *Pipeline) call(ctx context.Context, stall time.Duration, e entry, s *bot.State) (Outcome, error) {
	if stall <= 0 {
		return safeIntercept(ctx, e.ic, s)
	}

	cctx, cancel := context.WithTimeout(ctx, stall)
	defer cancel()

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		o, err := safeIntercept(cctx, e.ic, s)
		done <- result{o, err}
	}()

	select {
	case r := <-done:
		return r.outcome, r.err
	case <-cctx.Done():
		if err := ctx.Err(); err != nil {
			return Stop, err
		}
		return Stop, fmt.Errorf("%w: %s exceeded %s", ErrStalled, e.name, stall)
	}
}

func safeIntercept(ctx context.Context, ic Interceptor, s *bot.State) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Stop
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return ic.Intercept(ctx, s)
}
