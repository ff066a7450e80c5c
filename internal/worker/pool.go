package worker

import (
	"sync"
)

// Pool runs queued jobs on a fixed set of goroutines. It backs the
// post-commit notification dispatch: submission is non-blocking so a full
// queue can never stall a ledger mutation.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan func()
}

// NewPool starts n workers draining a bounded job queue.
func NewPool(n int) *Pool {
	p := &Pool{jobs: make(chan func(), 1024)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
			}
		}()
	}
	return p
}

// Submit enqueues a job. It reports false, dropping the job, when the
// queue is full.
func (p *Pool) Submit(job func()) bool {
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}
