package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/models"
)

// Sink persists raw location samples as they arrive from the push
// transport. Best-effort: callers log failures and move on, a broken sink
// never blocks fleet tracking.
type Sink interface {
	Store(ctx context.Context, cabID string, pos models.Coordinate, observedAt time.Time) error
	Close() error
}

// Noop discards every sample
type Noop struct{}

func (Noop) Store(ctx context.Context, cabID string, pos models.Coordinate, observedAt time.Time) error {
	return nil
}

func (Noop) Close() error { return nil }

// New builds the sink selected by configuration
func New(cfg models.Config) (Sink, error) {
	switch cfg.Sink.Driver {
	case "", "none":
		return Noop{}, nil
	case "redis":
		return NewRedisSink(cfg.Redis)
	case "sqlite":
		return NewSQLiteSink(cfg.SQLite)
	default:
		return nil, fmt.Errorf("unknown sink driver %q", cfg.Sink.Driver)
	}
}
