package charts

import (
	"fmt"
	"sync"
)

// renderTask pairs a histogram input with its slot in the output list so that
// concurrent rendering keeps the column order deterministic.
type renderTask struct {
	slot int
	name string
	vals []float64
}

const renderWorkers = 4

// renderAll renders histogram tasks on a bounded worker pool, writing each
// artifact into its slot. The first render failure is returned.
func renderAll(tasks []renderTask, out []Artifact) error {
	workers := min(len(tasks), renderWorkers)
	if workers == 0 {
		return nil
	}

	queue := make(chan renderTask, len(tasks))
	for _, task := range tasks {
		queue <- task
	}
	close(queue)

	errs := make(chan error, len(tasks))
	wg := sync.WaitGroup{}
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for task := range queue {
				art, err := Histogram(task.name, task.vals)
				if err != nil {
					errs <- fmt.Errorf("render histogram for %s: %w", task.name, err)
					continue
				}
				out[task.slot] = art
			}
		}()
	}
	wg.Wait()
	close(errs)

	return <-errs
}
