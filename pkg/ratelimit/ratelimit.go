package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Limiter spaces operations at a fixed interval with optional positive jitter.
// The first Wait returns immediately. It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
	next     time.Time
}

// NewLimiter creates a limiter allowing rps operations per second. Jitter adds
// up to jitter*interval of extra delay per operation and is clamped to [0, 1].
// If rps is <= 0, the limiter never blocks.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	l := &Limiter{jitter: jitter}
	if rps > 0 {
		l.interval = time.Duration(float64(time.Second) / rps)
	}
	return l
}

// Wait blocks until the caller's slot comes up or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.interval == 0 {
		return nil
	}

	l.mu.Lock()
	now := time.Now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.interval)
	delay := slot.Sub(now)
	if l.jitter > 0 {
		delay += time.Duration(float64(l.interval) * l.jitter * rand.Float64())
	}
	l.mu.Unlock()

	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Group keeps one Limiter per key so unrelated hosts don't share a budget.
type Group struct {
	mu       sync.Mutex
	rps      float64
	jitter   float64
	limiters map[string]*Limiter
}

// NewGroup creates a Group whose limiters share rps and jitter settings.
func NewGroup(rps, jitter float64) *Group {
	return &Group{rps: rps, jitter: jitter, limiters: make(map[string]*Limiter)}
}

// For returns the limiter for key, creating it on first use.
func (g *Group) For(key string) *Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limiters[key]
	if !ok {
		l = NewLimiter(g.rps, g.jitter)
		g.limiters[key] = l
	}
	return l
}

// Wait is shorthand for g.For(key).Wait(ctx).
func (g *Group) Wait(ctx context.Context, key string) error {
	if g == nil {
		return nil
	}
	return g.For(key).Wait(ctx)
}
