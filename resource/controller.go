package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits for background work.
type Config struct {
	// MaxWorkers is the maximum number of concurrent background jobs.
	// If 0, defaults to 1.
	MaxWorkers int64

	// IOLimitBytesPerSec is the maximum IO throughput for background work.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller bounds concurrency and IO throughput for background work
// such as bulk copies and verification.
//
// A nil Controller applies no limits; all methods are safe to call on it.
type Controller struct {
	workers   *semaphore.Weighted
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}

	c := &Controller{
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquireWorker reserves a worker slot.
// Blocks until a slot is free or ctx is canceled.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// TryAcquireWorker reserves a worker slot without blocking.
// Returns true if acquired.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	return c.workers.TryAcquire(1)
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// WaitIO waits until the IO limit allows the specified number of bytes.
// Requests larger than the burst are drained in burst-sized slices.
func (c *Controller) WaitIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > burst {
		if err := c.ioLimiter.WaitN(ctx, burst); err != nil {
			return err
		}
		bytes -= burst
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}
