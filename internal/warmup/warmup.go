package warmup

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
)

// WarmupConfig defines configuration for warming up the system
type WarmupConfig struct {
	// Number of concurrent warmup routines to run
	Concurrency int
	// Number of iterations per routine
	Iterations int
	// Sample text size for warmup
	SampleTextSize int
	// Warmup duration (0 means no time limit)
	Duration time.Duration
	// Whether to perform GC after warmup
	ForceGC bool
}

// DefaultWarmupConfig returns the default warmup configuration
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{
		Concurrency:    runtime.NumCPU(),
		Iterations:     1000,
		SampleTextSize: 1000,
		Duration:       5 * time.Second,
		ForceGC:        true,
	}
}

// Manager handles system warmup operations
type Manager struct {
	logger      ports.Logger
	normalizers []ports.Normalizer
	processors  []ports.LineProcessor
	config      WarmupConfig
}

// NewManager creates a new warmup manager
func NewManager(logger ports.Logger, config WarmupConfig) *Manager {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &Manager{
		logger: logger,
		config: config,
	}
}

// RegisterNormalizer adds a normalizer to be warmed up
func (wm *Manager) RegisterNormalizer(norm ports.Normalizer) {
	wm.normalizers = append(wm.normalizers, norm)
}

// RegisterLineProcessor adds a line processor to be warmed up
func (wm *Manager) RegisterLineProcessor(proc ports.LineProcessor) {
	wm.processors = append(wm.processors, proc)
}

// WarmUp runs the warmup process for all registered components and returns
// the number of normalization calls made.
func (wm *Manager) WarmUp(ctx context.Context) int64 {
	startTime := time.Now()
	wm.logger.Info("Starting system warmup",
		"components", len(wm.normalizers)+len(wm.processors),
		"concurrency", wm.config.Concurrency,
		"iterations", wm.config.Iterations,
	)

	// Create a context with timeout if duration is specified
	warmupCtx := ctx
	if wm.config.Duration > 0 {
		var cancel context.CancelFunc
		warmupCtx, cancel = context.WithTimeout(ctx, wm.config.Duration)
		defer cancel()
	}

	calls := wm.warmUpNormalizers(warmupCtx)
	calls += wm.warmUpLineProcessors(warmupCtx)

	// Force garbage collection if configured
	if wm.config.ForceGC {
		wm.logger.Debug("Forcing garbage collection after warmup")
		runtime.GC()
	}

	wm.logger.Info("System warmup completed",
		"calls", calls,
		"duration", time.Since(startTime),
	)
	return calls
}

// run starts Concurrency routines that each call fn up to iterations times.
func (wm *Manager) run(ctx context.Context, iterations int, fn func(ctx context.Context)) int64 {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int64
	)
	for i := 0; i < wm.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var done int64
			for j := 0; j < iterations; j++ {
				if ctx.Err() != nil {
					break
				}
				fn(ctx)
				done++
			}
			mu.Lock()
			total += done
			mu.Unlock()
		}()
	}
	wg.Wait()
	return total
}

// warmUpNormalizers runs warmup for all registered normalizers
func (wm *Manager) warmUpNormalizers(ctx context.Context) int64 {
	if len(wm.normalizers) == 0 {
		return 0
	}
	wm.logger.Debug("Warming up normalizers", "count", len(wm.normalizers))

	sampleText := generateSampleText(wm.config.SampleTextSize)
	return wm.run(ctx, wm.config.Iterations, func(context.Context) {
		for _, normalizer := range wm.normalizers {
			_ = normalizer.Normalize(sampleText)
		}
	}) * int64(len(wm.normalizers))
}

// warmUpLineProcessors runs warmup for all registered line processors
func (wm *Manager) warmUpLineProcessors(ctx context.Context) int64 {
	if len(wm.processors) == 0 {
		return 0
	}
	wm.logger.Debug("Warming up line processors", "count", len(wm.processors))

	lines := strings.Split(generateSampleLines(wm.config.SampleTextSize), "\n")
	return wm.run(ctx, wm.config.Iterations/10, func(ctx context.Context) { // Fewer iterations for batches
		for _, processor := range wm.processors {
			_, _, _ = processor.NormalizeLines(ctx, lines)
		}
	}) * int64(len(wm.processors)*len(lines))
}

// Helper functions for generating test data

// sampleWords mixes standard spellings with the variants normalizers rewrite.
var sampleWords = []string{
	"azul", "fell-awen", "aγrum", "aɣrum", "yeţţa", "yetta", "εlam", "ɛlam",
	"Γef", "Ɣef", "Σli", "Ɛli", "yeğğa", "yeǧǧa", "yeşşa", "yeṣṣa", "tanemmirt",
	"Tom", "d", "n", "i", "ur", "ara", "tura", "42",
}

// generateSampleText creates sample text of roughly the specified size in bytes
func generateSampleText(size int) string {
	var sb strings.Builder
	for i := 0; sb.Len() < size; i++ {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(sampleWords[i%len(sampleWords)])
	}
	return sb.String()
}

// generateSampleLines splits sample text into short sentences, one per line
func generateSampleLines(size int) string {
	words := strings.Fields(generateSampleText(size))
	var sb strings.Builder
	for i, w := range words {
		sb.WriteString(w)
		switch {
		case i == len(words)-1:
		case i%7 == 6:
			sb.WriteString(".\n")
		default:
			sb.WriteString(" ")
		}
	}
	return sb.String()
}
