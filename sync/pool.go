// ABOUTME: Bounded worker pool for per-item pipeline stages
// ABOUTME: Fans tasks across a fixed number of goroutines with context cancellation
package sync

import (
	"context"
	"sync"
)

// defaultWorkers bounds concurrent in-flight merchant requests per store.
// The client's shared rate limiter keeps aggregate request rate flat
// regardless of pool width.
const defaultWorkers = 4

// runPool executes fn for each index in [0, tasks) across a bounded set of
// workers. It stops handing out new tasks once the context is cancelled;
// in-flight tasks run to completion.
func runPool(ctx context.Context, workers, tasks int, fn func(ctx context.Context, index int)) {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > tasks {
		workers = tasks
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				fn(ctx, i)
			}
		}()
	}

	for i := 0; i < tasks; i++ {
		select {
		case <-ctx.Done():
			close(indexes)
			wg.Wait()
			return
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()
}
