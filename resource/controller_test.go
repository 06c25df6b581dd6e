package resource

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Workers(t *testing.T) {
	c := NewController(Config{MaxWorkers: 2})

	// Acquire 2
	require.NoError(t, c.AcquireWorker(context.Background()))
	require.NoError(t, c.AcquireWorker(context.Background()))

	// Try 3rd
	assert.False(t, c.TryAcquireWorker())

	// Acquire 3rd (should block/timeout)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.AcquireWorker(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Release 1
	c.ReleaseWorker()

	// Try 3rd again
	assert.True(t, c.TryAcquireWorker())
}

func TestController_DefaultWorkers(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireWorker(context.Background()))
	assert.False(t, c.TryAcquireWorker())
	c.ReleaseWorker()
}

func TestController_NilAppliesNoLimits(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireWorker(context.Background()))
	assert.True(t, c.TryAcquireWorker())
	c.ReleaseWorker()
	require.NoError(t, c.WaitIO(context.Background(), 1<<30))
}

func TestController_UnlimitedIO(t *testing.T) {
	c := NewController(Config{MaxWorkers: 1})

	require.NoError(t, c.WaitIO(context.Background(), 1<<30))
}

func TestController_WaitIOTimesOut(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 8})

	// The bucket starts full, so the first burst is free.
	require.NoError(t, c.WaitIO(context.Background(), 8))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.WaitIO(ctx, 8)
	require.Error(t, err)
}

func TestController_WaitIOSplitsOversizedRequests(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// Larger than the burst; must not fail with a burst-exceeded error.
	require.NoError(t, c.WaitIO(context.Background(), 1<<20))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.WaitIO(ctx, 3<<20)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "exceeds limiter's burst")
}

func TestRateLimitedWriter(t *testing.T) {
	c := NewController(Config{MaxWorkers: 1})

	var sb strings.Builder
	w := NewRateLimitedWriter(&sb, c, context.Background())

	n, err := w.Write([]byte("throttled"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, "throttled", sb.String())
}

func TestRateLimitedReader(t *testing.T) {
	c := NewController(Config{MaxWorkers: 1})

	r := NewRateLimitedReader(strings.NewReader("throttled"), c, context.Background())

	buf := make([]byte, 4)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "thro", string(buf))
}

func TestRateLimitedWriterCanceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 8})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sb strings.Builder
	w := NewRateLimitedWriter(&sb, c, ctx)

	_, err := w.Write([]byte("data"))
	require.Error(t, err)
	assert.Zero(t, sb.Len())
}
