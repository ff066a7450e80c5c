package worker_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mexihaiti/remesa-backend/internal/worker"
)

func TestPool_RunsSubmittedJobs(t *testing.T) {
	pool := worker.NewPool(4)

	var count int64
	for i := 0; i < 100; i++ {
		ok := pool.Submit(func() { atomic.AddInt64(&count, 1) })
		assert.True(t, ok)
	}

	pool.Stop()
	assert.Equal(t, int64(100), atomic.LoadInt64(&count))
}

func TestPool_StopWaitsForInFlightJobs(t *testing.T) {
	pool := worker.NewPool(1)

	done := make(chan struct{})
	pool.Submit(func() { close(done) })
	pool.Stop()

	select {
	case <-done:
	default:
		t.Fatal("Stop returned before the queued job ran")
	}
}

func TestPool_SubmitDropsWhenFull(t *testing.T) {
	// No workers, so nothing drains the queue.
	pool := worker.NewPool(0)

	submitted := 0
	for i := 0; i < 2000; i++ {
		if pool.Submit(func() {}) {
			submitted++
		}
	}

	assert.Equal(t, 1024, submitted, "queue capacity bounds accepted jobs")
}
