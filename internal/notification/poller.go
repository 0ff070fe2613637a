package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultPollInterval = 30 * time.Second

type Refresher interface {
	Refresh(ctx context.Context) ([]Notification, error)
}

// Poller refreshes once on start and then on every tick until ctx ends.
type Poller struct {
	refresher Refresher
	interval  time.Duration
	logger    *zap.Logger

	// OnRefresh, when set, runs after every successful refresh.
	OnRefresh func(items []Notification)
}

func NewPoller(refresher Refresher, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{refresher: refresher, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("notification poller started", zap.Duration("interval", p.interval))

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification poller stopped")
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	items, err := p.refresher.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("notification poll failed", zap.Error(err))
		}
		return
	}
	if p.OnRefresh != nil {
		p.OnRefresh(items)
	}
}
