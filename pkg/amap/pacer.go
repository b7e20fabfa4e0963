package amap

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum gap between the completion of one outbound call
// and the start of the next. One Pacer is shared by every call the client
// makes, whatever the endpoint, because the service's courtesy limit is
// account-wide. Clock and sleep are injectable so tests run without waiting.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a Pacer with the given minimum inter-call spacing.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Wait blocks until the spacing since the last completed call has elapsed.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	var d time.Duration
	if !p.last.IsZero() {
		d = p.interval - p.now().Sub(p.last)
	}
	p.mu.Unlock()

	if d <= 0 {
		return nil
	}
	return p.sleep(ctx, d)
}

// Done records the completion time of an outbound call.
func (p *Pacer) Done() {
	p.mu.Lock()
	p.last = p.now()
	p.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
