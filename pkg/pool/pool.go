package pool

import (
	"context"
	"sync"
)

// WorkerFunc defines the function signature for a worker that processes an item and may return an error.
type WorkerFunc[T any] func(ctx context.Context, item T) error

// Result is the outcome of one processed item.
type Result[T any] struct {
	Item T
	Err  error
}

// Run executes a worker pool over items and returns the errors that occurred.
// Items not yet handed to a worker when ctx is cancelled are skipped.
func Run[T any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T]) []error {
	var errs []error
	RunEach(ctx, items, numWorkers, workerFunc, func(r Result[T]) {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	})
	return errs
}

// RunEach is like Run but reports every processed item to onResult as soon as it finishes.
// onResult is called from a single goroutine and may be nil.
func RunEach[T any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T], onResult func(Result[T])) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(items) && len(items) > 0 {
		numWorkers = len(items)
	}

	var wg sync.WaitGroup
	taskChan := make(chan T, numWorkers)
	resultChan := make(chan Result[T], numWorkers)

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range taskChan {
				select {
				case <-ctx.Done():
					return
				default:
					resultChan <- Result[T]{Item: item, Err: workerFunc(ctx, item)}
				}
			}
		}()
	}

	go func() {
	OUT:
		for _, item := range items {
			select {
			case taskChan <- item:
			case <-ctx.Done():
				// Stop feeding tasks if the context is cancelled
				break OUT
			}
		}
		close(taskChan)
		wg.Wait()
		close(resultChan)
	}()

	for r := range resultChan {
		if onResult != nil {
			onResult(r)
		}
	}
}
