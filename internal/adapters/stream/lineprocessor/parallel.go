package lineprocessor

import (
	"context"
	"runtime"
	"sync"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
)

// Constants for parallel processing
const (
	// DefaultWorkers is the default number of worker goroutines
	DefaultWorkers = 0 // 0 means use runtime.NumCPU()

	// MaxJobQueueSize limits the number of pending jobs
	MaxJobQueueSize = 32
)

// lineJob is a half-open index range of the input slice.
type lineJob struct {
	start, end int
}

func resolveWorkers(n int) int {
	if n <= DefaultWorkers {
		return runtime.NumCPU()
	}
	return n
}

// normalizeParallel fans index ranges out to workers. Each worker writes only
// its own indices of out, so no ordering step is needed afterwards.
func (p *Processor) normalizeParallel(ctx context.Context, lines, out []string) (domain.Diagnostics, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan lineJob, MaxJobQueueSize)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	total := domain.NewDiagnostics()

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := domain.NewDiagnostics()
			for job := range jobs {
				diag, err := p.normalizeRange(ctx, lines, out, job.start, job.end)
				local.Merge(diag)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					cancel()
					break
				}
			}
			// Drain so the producer never blocks on a stopped worker.
			for range jobs {
			}
			mu.Lock()
			total.Merge(local)
			mu.Unlock()
		}()
	}

produce:
	for start := 0; start < len(lines); start += p.batchSize {
		end := start + p.batchSize
		if end > len(lines) {
			end = len(lines)
		}
		select {
		case jobs <- lineJob{start: start, end: end}:
		case <-ctx.Done():
			break produce
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return total, firstErr
	}
	if err := ctx.Err(); err != nil {
		// Cancelled by the caller while producing.
		return total, err
	}
	return total, nil
}
