package hook

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/flemzord/sbot/internal/bot"
)

// Throttle is a listen interceptor that limits how often the given branches
// may fire. Each branch gets its own token bucket.
type Throttle struct {
	every    time.Duration
	burst    int
	branches []string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewThrottle lets each listed branch fire at most burst times per every.
// With no branch IDs, every branch is throttled.
func NewThrottle(every time.Duration, burst int, branchIDs ...string) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		every:    every,
		burst:    burst,
		branches: branchIDs,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Compile-time interface check.
var _ Interceptor = (*Throttle)(nil)

// Intercept stops the branch when its bucket is empty.
func (t *Throttle) Intercept(_ context.Context, s *bot.State) (Outcome, error) {
	id := s.BranchID()
	if len(t.branches) > 0 && !slices.Contains(t.branches, id) {
		return Continue, nil
	}
	if t.limiter(id).Allow() {
		return Continue, nil
	}
	s.Logger.Debug("branch throttled", "branch", id)
	return Stop, nil
}

func (t *Throttle) limiter(id string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[id]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.every), t.burst)
		t.limiters[id] = l
	}
	return l
}
