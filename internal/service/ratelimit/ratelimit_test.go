package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestDefaultLimitRates(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		name  string
		every time.Duration
		burst int
	}{
		{Anthropic, time.Minute / 50, 5},
		{Arxiv, time.Second / 3, 1},
		{Twitter, 15 * time.Minute / 100, 10},
		{Web, time.Second / 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := r.Limiter(tt.name)
			if l.Limit() != rate.Every(tt.every) {
				t.Errorf("limit = %v, want %v", l.Limit(), rate.Every(tt.every))
			}
			if l.Burst() != tt.burst {
				t.Errorf("burst = %d, want %d", l.Burst(), tt.burst)
			}
		})
	}
}

func TestLimiterIsShared(t *testing.T) {
	r := NewRegistry(nil)
	if r.Limiter(Arxiv) != r.Limiter(Arxiv) {
		t.Fatal("expected the same limiter for repeated lookups")
	}
	if r.Limiter("unknown").Limit() != r.Limiter(Web).Limit() {
		t.Error("unknown upstream should fall back to the web limit")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	r := NewRegistry(map[string]Limit{"slow": {Calls: 1, Period: time.Hour, Burst: 1}})
	ctx := context.Background()

	if err := r.Wait(ctx, "slow"); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	err := r.Wait(ctx, "slow")
	if err == nil {
		t.Fatal("second call should be refused before the deadline")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("unexpected cancel: %v", err)
	}
}

func TestZeroLimitIsUnlimited(t *testing.T) {
	r := NewRegistry(map[string]Limit{"free": {}})
	if r.Limiter("free").Limit() != rate.Inf {
		t.Error("zero limit should be unlimited")
	}
}
