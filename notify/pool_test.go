package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	pool := NewPool(2, 16, time.Second, discardLogger())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		ok := pool.Submit(func(ctx context.Context) {
			ran.Add(1)
		})
		assert.True(t, ok)
	}

	pool.Shutdown()
	assert.Equal(t, int32(10), ran.Load(), "Shutdown drains accepted jobs")
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	pool := NewPool(1, 4, time.Second, discardLogger())
	pool.Shutdown()

	ok := pool.Submit(func(ctx context.Context) {})
	assert.False(t, ok)

	// Повторный Shutdown безопасен.
	pool.Shutdown()
}

func TestPoolJobGetsDeadline(t *testing.T) {
	pool := NewPool(1, 1, 50*time.Millisecond, discardLogger())

	deadlineSet := make(chan bool, 1)
	pool.Submit(func(ctx context.Context) {
		_, ok := ctx.Deadline()
		deadlineSet <- ok
	})
	pool.Shutdown()

	assert.True(t, <-deadlineSet, "jobs run under their own timeout, not the request context")
}
