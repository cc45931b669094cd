package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Config holds pool sizing.
type Config struct {
	Workers int `mapstructure:"workers"`
}

// DefaultConfig returns a pool sized for background inference loops.
func DefaultConfig() *Config {
	return &Config{Workers: 32}
}

// Pool runs background tasks on a fixed set of ants workers.
type Pool struct {
	pool   *ants.Pool
	logger *zap.Logger
	closed atomic.Bool

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Submitted int64
	Completed int64
	Failed    int64
	Running   int
}

// New creates a pool.
func New(cfg *Config, log *zap.Logger) (*Pool, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p, err := ants.NewPool(cfg.Workers, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}

	return &Pool{pool: p, logger: log}, nil
}

// Submit schedules fn on the pool. The returned error only reflects
// scheduling; fn's own error is counted and logged.
func (p *Pool) Submit(name string, fn func() error) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	p.submitted.Add(1)

	return p.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				p.failed.Add(1)
				p.logger.Error("task panicked", zap.String("task", name), zap.Any("panic", r))
			}
		}()

		if err := fn(); err != nil {
			p.failed.Add(1)
			p.logger.Warn("task failed", zap.String("task", name), zap.Error(err))
			return
		}
		p.completed.Add(1)
	})
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Running:   p.pool.Running(),
	}
}

// Shutdown stops accepting tasks and waits for running ones until ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	timeout := 30 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	return p.pool.ReleaseTimeout(timeout)
}
