package views

import (
	"context"
	"time"

	"htnadmin/internal/logging"
	"htnadmin/internal/types"
)

// DefaultBadgeInterval is how often the pending-approvals badge is refreshed.
const DefaultBadgeInterval = 60 * time.Second

// StatsSource is what the poller reads.
type StatsSource interface {
	Stats(ctx context.Context) (*types.Stats, error)
}

// BadgePoller keeps the pending-approvals badge current.
type BadgePoller struct {
	src      StatsSource
	interval time.Duration
	onChange func(int)
}

// NewBadgePoller polls src every interval and calls onChange when the
// pending-approvals count differs from the last value seen.
func NewBadgePoller(src StatsSource, interval time.Duration, onChange func(int)) *BadgePoller {
	if interval <= 0 {
		interval = DefaultBadgeInterval
	}
	return &BadgePoller{src: src, interval: interval, onChange: onChange}
}

// Run polls once immediately and then on every tick until ctx is done.
// Failed polls are logged and skipped.
func (p *BadgePoller) Run(ctx context.Context) {
	last := -1
	poll := func() {
		stats, err := p.src.Stats(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logging.ViewsDebug("Badge poll failed: %v", err)
			}
			return
		}
		if stats.PendingApprovals != last {
			last = stats.PendingApprovals
			p.onChange(last)
		}
	}

	poll()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.ViewsDebug("Badge poller stopped")
			return
		case <-ticker.C:
			poll()
		}
	}
}

// Start runs the poller in a goroutine and returns a function that stops
// it and waits for it to exit.
func (p *BadgePoller) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
