// Package workerpool runs independent jobs on a bounded number of goroutines.
package workerpool

import (
	"context"
	"runtime"
	"sync"
)

// maxWorkers caps the pool size when the caller does not choose one.
const maxWorkers = 32

// WorkerPool provides a reusable worker pool pattern for parallel processing.
// It manages job distribution across multiple workers and collects results.
type WorkerPool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// New creates a new worker pool with the specified number of workers.
// If numWorkers is 0 or negative, it defaults to the number of CPUs (at most maxWorkers).
// If numJobs is less than numWorkers, the pool is sized to match numJobs.
func New[Job any, Result any](numWorkers, numJobs int) *WorkerPool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = min(runtime.NumCPU(), maxWorkers)
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}

	return &WorkerPool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numJobs),
		results:    make(chan Result, numJobs),
	}
}

// Start begins the worker pool with the provided worker function.
// The workerFn is called for each job and should return a result.
func (p *WorkerPool[Job, Result]) Start(workerFn func(Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- workerFn(job)
			}
		}()
	}
}

// Submit adds a job to the worker pool's job queue.
func (p *WorkerPool[Job, Result]) Submit(job Job) {
	p.jobs <- job
}

// Close closes the job channel. The results channel is closed once every worker
// has finished.
func (p *WorkerPool[Job, Result]) Close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Results returns the results channel for collecting worker outputs.
func (p *WorkerPool[Job, Result]) Results() <-chan Result {
	return p.results
}

type indexed[T any] struct {
	index int
	value T
	err   error
}

// Map applies fn to every input on the pool and returns the outputs in input order,
// whatever order the workers finish in. The first error (by input index) is returned
// and the context passed to the remaining jobs is cancelled.
func Map[In any, Out any](ctx context.Context, numWorkers int, inputs []In, fn func(context.Context, int, In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(inputs))
	if len(inputs) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := New[int, indexed[Out]](numWorkers, len(inputs))
	pool.Start(func(i int) indexed[Out] {
		if err := ctx.Err(); err != nil {
			return indexed[Out]{index: i, err: err}
		}
		v, err := fn(ctx, i, inputs[i])
		if err != nil {
			cancel()
		}
		return indexed[Out]{index: i, value: v, err: err}
	})
	for i := range inputs {
		pool.Submit(i)
	}
	pool.Close()

	errs := make([]error, len(inputs))
	for r := range pool.Results() {
		out[r.index] = r.value
		errs[r.index] = r.err
	}
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		// Jobs that only saw the cancellation are not the cause.
		if first == nil || (first == context.Canceled && err != context.Canceled) {
			first = err
		}
	}
	if first != nil {
		return nil, first
	}
	return out, nil
}
