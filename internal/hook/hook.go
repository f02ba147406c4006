// Package hook provides the middleware system of the dispatch cycle.
// Interceptors run at three stages: hear (every message, before matching),
// listen (each matched branch, before its callback) and respond (the
// envelope batch, before delivery). Each returns an explicit Outcome.
package hook

import (
	"context"
	"errors"

	"github.com/flemzord/sbot/internal/bot"
)

// Stage identifies where in the cycle an interceptor executes.
type Stage string

const (
	// StageHear runs once per message before matching. Stop discards the
	// message.
	StageHear Stage = "hear"

	// StageListen runs once per matched branch before its callback. Stop
	// skips only that branch.
	StageListen Stage = "listen"

	// StageRespond runs once per cycle over the envelope batch. Stop
	// suppresses delivery. Interceptors may alter the envelopes in place.
	StageRespond Stage = "respond"
)

// Stages lists every stage in cycle order.
var Stages = []Stage{StageHear, StageListen, StageRespond}

// Outcome signals the pipeline what to do after an interceptor executes.
type Outcome int

const (
	// Continue tells the pipeline to run the next interceptor.
	Continue Outcome = iota

	// Stop aborts the rest of the stage.
	Stop
)

func (o Outcome) String() string {
	if o == Stop {
		return "stop"
	}
	return "continue"
}

var (
	// ErrStalled is reported when an interceptor exceeds the stall timeout.
	// The stage is forced to Stop.
	ErrStalled = errors.New("hook: middleware stalled")

	// ErrPanic wraps a value recovered from a panicking interceptor.
	ErrPanic = errors.New("hook: middleware panicked")
)

// Interceptor is the middleware extension point.
type Interceptor interface {
	// Intercept runs the middleware logic. The returned Outcome is honoured
	// even when err is non-nil; errors are logged, never propagated.
	Intercept(ctx context.Context, s *bot.State) (Outcome, error)
}

// Func adapts a function to Interceptor.
type Func func(ctx context.Context, s *bot.State) (Outcome, error)

// Intercept implements Interceptor.
func (f Func) Intercept(ctx context.Context, s *bot.State) (Outcome, error) {
	return f(ctx, s)
}
