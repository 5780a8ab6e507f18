package pipeline

import (
	"context"
	"image"
	"runtime"
	"sync"

	"github.com/ironsheep/photoscan/internal/enhance"
)

// Job is one photo in a batch.
type Job struct {
	ID       string
	Image    image.Image
	Settings enhance.Settings
}

// JobResult is the outcome of one Job. Exactly one of Result and Err is set.
type JobResult struct {
	ID     string
	Result *Result
	Err    error
}

// Pool runs Processor calls on a fixed number of workers.
type Pool struct {
	processor *Processor
	workers   int
}

// NewPool creates a pool. workers <= 0 uses runtime.NumCPU().
func NewPool(processor *Processor, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{processor: processor, workers: workers}
}

// Workers returns the pool's concurrency.
func (p *Pool) Workers() int {
	return p.workers
}

// ProcessBatch processes jobs concurrently and returns results in job order.
//
// Cancelling ctx stops jobs that have not started; their results carry
// ctx.Err(). Jobs already running finish normally.
func (p *Pool) ProcessBatch(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))
	queue := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.workers && w < len(jobs); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				results[i] = p.run(ctx, jobs[i])
			}
		}()
	}

	next := 0
feed:
	for ; next < len(jobs); next++ {
		select {
		case <-ctx.Done():
			break feed
		case queue <- next:
		}
	}
	close(queue)

	for i := next; i < len(jobs); i++ {
		results[i] = JobResult{ID: jobs[i].ID, Err: ctx.Err()}
	}

	wg.Wait()
	return results
}

func (p *Pool) run(ctx context.Context, job Job) JobResult {
	if err := ctx.Err(); err != nil {
		return JobResult{ID: job.ID, Err: err}
	}
	res, err := p.processor.Process(job.Image, job.Settings)
	if err != nil {
		return JobResult{ID: job.ID, Err: err}
	}
	return JobResult{ID: job.ID, Result: res}
}
