package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/logger"
	"github.com/adiwardana/cabtrack/internal/pkg/models"
)

const defaultPollInterval = 15 * time.Second

// Lister is the poll side of the ride API
type Lister interface {
	ListCabs(ctx context.Context) ([]models.CabUpdate, error)
}

// Poller periodically pulls a full fleet listing as a safety net for push
// gaps. Poll failures are logged and skipped; staleness sweeping still runs
// so a dead backend surfaces as a stale fleet rather than a frozen one.
type Poller struct {
	interval time.Duration
	lister   Lister
	agg      *Aggregator

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewPoller creates a fallback poller bound to the given aggregator
func NewPoller(cfg models.FleetConfig, lister Lister, agg *Aggregator) *Poller {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		interval: interval,
		lister:   lister,
		agg:      agg,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop. The first poll fires immediately so the
// aggregator is seeded without waiting a full interval.
func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go p.run(ctx)
	})
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	issuedAt := models.Now()
	updates, err := p.lister.ListCabs(ctx)
	if err != nil {
		logger.Warn("Fleet poll failed", logger.Err(err))
	} else {
		p.agg.MergePoll(issuedAt, updates)
	}

	if flagged := p.agg.SweepStale(models.Now()); flagged > 0 {
		logger.Debug("Marked stale fleet records", logger.Int("count", flagged))
	}
}

// Stop halts the poll loop and waits for it to exit
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}
