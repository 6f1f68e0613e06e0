package concurrent

import (
	"context"
	"sync"

	"github.com/lintang-b-s/olrwebtool/pkg/util"
)

// Job carries its position in the input so results can be put back in order.
type Job[T any] struct {
	Index   int
	Payload T
}

type Result[G any] struct {
	Index int
	Value G
}

type JobFunc[T any, G any] func(ctx context.Context, job T) G

type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan Job[T]
	results    chan Result[G]
	wg         sync.WaitGroup
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job[T], jobQueueSize),
		results:    make(chan Result[G], jobQueueSize),
	}
}

func (wp *WorkerPool[T, G]) worker(ctx context.Context, jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		if util.StopConcurrentOperation(ctx) {
			// drain so producers blocked on AddJob can finish.
			continue
		}
		res := jobFunc(ctx, job.Payload)
		select {
		case wp.results <- Result[G]{Index: job.Index, Value: res}:
		case <-ctx.Done():
		}
	}
}

func (wp *WorkerPool[T, G]) Start(ctx context.Context, jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, jobFunc)
	}
}

// Wait blocks until every worker returned, then closes the results channel. Call it after Close.
func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) AddJob(ctx context.Context, index int, job T) error {
	select {
	case wp.jobQueue <- Job[T]{Index: index, Payload: job}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *WorkerPool[T, G]) CollectResults() <-chan Result[G] {
	return wp.results
}

// Close tells the workers no more jobs are coming.
func (wp *WorkerPool[T, G]) Close() {
	close(wp.jobQueue)
}
