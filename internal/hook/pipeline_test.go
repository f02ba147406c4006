package hook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flemzord/sbot/internal/bot"
	"github.com/flemzord/sbot/pkg/message"
)

func testState() *bot.State {
	return bot.NewState(message.Message{ID: "m1", Text: "hello"}, bot.Deps{})
}

func record(order *[]string, name string, out Outcome) Func {
	return func(context.Context, *bot.State) (Outcome, error) {
		*order = append(*order, name)
		return out, nil
	}
}

func TestPipeline_RunsInRegistrationOrder(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	var order []string
	p.Hear("a", record(&order, "a", Continue))
	p.Hear("b", record(&order, "b", Continue))
	p.Hear("c", record(&order, "c", Continue))

	if got := p.Run(context.Background(), StageHear, testState()); got != Continue {
		t.Fatalf("Run() = %v, want continue", got)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("order = %v, want [a b c]", order)
	}
}

func TestPipeline_StopShortCircuits(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	var order []string
	p.Hear("a", record(&order, "a", Stop))
	p.Hear("b", record(&order, "b", Continue))

	s := testState()
	if got := p.Run(context.Background(), StageHear, s); got != Stop {
		t.Fatalf("Run() = %v, want stop", got)
	}
	if len(order) != 1 {
		t.Errorf("order = %v, want only a", order)
	}
	if !s.Done() {
		t.Error("hear Stop should finish the state")
	}
}

func TestPipeline_ListenStopDoesNotFinish(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	p.Listen("skip", func(context.Context, *bot.State) (Outcome, error) { return Stop, nil })

	s := testState()
	if got := p.Run(context.Background(), StageListen, s); got != Stop {
		t.Fatalf("Run() = %v, want stop", got)
	}
	if s.Done() {
		t.Error("listen Stop must not finish the state")
	}
}

func TestPipeline_ErrorsLoggedOutcomeHonoured(t *testing.T) {
	t.Parallel()

	var seen []error
	p := NewPipeline(WithObserver(func(_ Stage, _ string, _ Outcome, err error) {
		seen = append(seen, err)
	}))
	var order []string
	p.Respond("fails", func(context.Context, *bot.State) (Outcome, error) {
		order = append(order, "fails")
		return Continue, errors.New("boom")
	})
	p.Respond("next", record(&order, "next", Continue))

	if got := p.Run(context.Background(), StageRespond, testState()); got != Continue {
		t.Fatalf("Run() = %v, want continue", got)
	}
	if len(order) != 2 {
		t.Errorf("order = %v, error must not stop the stage", order)
	}
	if len(seen) != 2 || seen[0] == nil || seen[1] != nil {
		t.Errorf("observed errors = %v", seen)
	}
}

func TestPipeline_PanicIsStop(t *testing.T) {
	t.Parallel()

	var gotErr error
	p := NewPipeline(WithObserver(func(_ Stage, _ string, _ Outcome, err error) { gotErr = err }))
	p.Hear("panics", func(context.Context, *bot.State) (Outcome, error) { panic("kaboom") })

	if got := p.Run(context.Background(), StageHear, testState()); got != Stop {
		t.Fatalf("Run() = %v, want stop", got)
	}
	if !errors.Is(gotErr, ErrPanic) {
		t.Errorf("err = %v, want ErrPanic", gotErr)
	}
}

func TestPipeline_StallTimeout(t *testing.T) {
	t.Parallel()

	var gotErr error
	p := NewPipeline(
		WithStallTimeout(20*time.Millisecond),
		WithObserver(func(_ Stage, _ string, _ Outcome, err error) { gotErr = err }),
	)
	p.Hear("slow", func(ctx context.Context, _ *bot.State) (Outcome, error) {
		<-ctx.Done()
		return Continue, nil
	})
	var order []string
	p.Hear("after", record(&order, "after", Continue))

	if got := p.Run(context.Background(), StageHear, testState()); got != Stop {
		t.Fatalf("Run() = %v, want stop", got)
	}
	if !errors.Is(gotErr, ErrStalled) {
		t.Errorf("err = %v, want ErrStalled", gotErr)
	}
	if len(order) != 0 {
		t.Error("stage should stop after a stall")
	}
}

func TestPipeline_FastInterceptorWithStallGuard(t *testing.T) {
	t.Parallel()

	p := NewPipeline(WithStallTimeout(time.Second))
	var order []string
	p.Hear("fast", record(&order, "fast", Continue))

	if got := p.Run(context.Background(), StageHear, testState()); got != Continue {
		t.Fatalf("Run() = %v, want continue", got)
	}
}

func TestPipeline_EmptyStageContinues(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	for _, stage := range Stages {
		if got := p.Run(context.Background(), stage, testState()); got != Continue {
			t.Errorf("Run(%s) = %v", stage, got)
		}
		if p.Len(stage) != 0 {
			t.Errorf("Len(%s) = %d", stage, p.Len(stage))
		}
	}
}
