package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Upstream API names
const (
	Anthropic = "anthropic"
	Arxiv     = "arxiv"
	Twitter   = "twitter"
	Web       = "web"
)

// Limit describes a token bucket as "N calls per period"
type Limit struct {
	Calls  int
	Period time.Duration
	Burst  int
}

// DefaultLimits are the published quotas for each upstream
var DefaultLimits = map[string]Limit{
	Anthropic: {Calls: 50, Period: time.Minute, Burst: 5},
	Arxiv:     {Calls: 3, Period: time.Second, Burst: 1},
	Twitter:   {Calls: 100, Period: 15 * time.Minute, Burst: 10},
	Web:       {Calls: 10, Period: time.Second, Burst: 10},
}

// Registry hands out one shared limiter per upstream
type Registry struct {
	mu       sync.Mutex
	limits   map[string]Limit
	limiters map[string]*rate.Limiter
}

// NewRegistry creates a registry; nil limits means DefaultLimits
func NewRegistry(limits map[string]Limit) *Registry {
	if limits == nil {
		limits = DefaultLimits
	}
	return &Registry{
		limits:   limits,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Limiter returns the limiter for name. Unknown names get the web limit.
func (r *Registry) Limiter(name string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[name]; ok {
		return l
	}

	limit, ok := r.limits[name]
	if !ok {
		limit = r.limits[Web]
	}
	l := newLimiter(limit)
	r.limiters[name] = l
	return l
}

// Wait blocks until a call to name is allowed or ctx is done
func (r *Registry) Wait(ctx context.Context, name string) error {
	if err := r.Limiter(name).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", name, err)
	}
	return nil
}

func newLimiter(l Limit) *rate.Limiter {
	if l.Calls <= 0 || l.Period <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := l.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(l.Period/time.Duration(l.Calls)), burst)
}
