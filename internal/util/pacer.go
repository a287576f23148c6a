package util

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces consecutive operations at least interval apart. The first
// operation never waits. A nil Pacer never waits.
type Pacer struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time // earliest start of the next operation

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewPacer returns a Pacer for interval, or nil when interval is not
// positive.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return nil
	}
	return &Pacer{interval: interval, now: time.Now, after: time.After}
}

// Interval returns the configured spacing.
func (p *Pacer) Interval() time.Duration {
	if p == nil {
		return 0
	}
	return p.interval
}

// Wait blocks until the next operation may start or ctx is done. The slot is
// reserved on return, so concurrent callers are serialised.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}

	p.mu.Lock()
	now := p.now()
	start := p.next
	if start.Before(now) {
		start = now
	}
	p.next = start.Add(p.interval)
	p.mu.Unlock()

	delay := start.Sub(now)
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		p.release(start)
		return ctx.Err()
	case <-p.after(delay):
		return nil
	}
}

// release gives back a reserved slot that was not used.
func (p *Pacer) release(start time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next.Equal(start.Add(p.interval)) {
		p.next = start
	}
}
