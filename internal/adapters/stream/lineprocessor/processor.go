package lineprocessor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
)

// Constants for line processing
const (
	// DefaultChunkSize defines the default size of each chunk for reading
	DefaultChunkSize = 64 * 1024 // 64KB

	// DefaultBatchSize defines how many lines to process in one batch
	DefaultBatchSize = 256

	// ContextCheckFrequency defines how often to check for context cancellation
	ContextCheckFrequency = 500 // lines

	// MaxLineSize is the longest line ProcessLines accepts.
	MaxLineSize = 1024 * 1024
)

// ProcessingConfig defines configuration for line processing
type ProcessingConfig struct {
	ChunkSize   int
	BatchSize   int
	UseParallel bool
	// Workers is the goroutine count for parallel mode; 0 means runtime.NumCPU().
	Workers int
}

// Processor normalizes sequences of lines while keeping their count and order.
type Processor struct {
	logger     ports.Logger
	normalizer ports.LineNormalizer

	chunkSize   int
	batchSize   int
	useParallel bool
	workers     int
}

var _ ports.LineProcessor = (*Processor)(nil)

// NewProcessor creates a new line processor
func NewProcessor(
	logger ports.Logger,
	normalizer ports.LineNormalizer,
	config ProcessingConfig,
) *Processor {
	// Use defaults if not specified
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}

	return &Processor{
		logger:      logger,
		normalizer:  normalizer,
		chunkSize:   config.ChunkSize,
		batchSize:   config.BatchSize,
		useParallel: config.UseParallel,
		workers:     resolveWorkers(config.Workers),
	}
}

// NormalizeLines returns a slice of the same length where out[i] is the
// normalized form of lines[i].
func (p *Processor) NormalizeLines(ctx context.Context, lines []string) ([]string, domain.Diagnostics, error) {
	startTime := time.Now()
	out := make([]string, len(lines))

	var (
		diag domain.Diagnostics
		err  error
	)
	if p.useParallel && len(lines) > p.batchSize {
		diag, err = p.normalizeParallel(ctx, lines, out)
	} else {
		diag, err = p.normalizeRange(ctx, lines, out, 0, len(lines))
	}
	if err != nil {
		p.logger.Warn("Normalization cancelled by context", "error", err)
		return nil, diag, err
	}

	if diag.UnsettledLines > 0 {
		p.logger.Warn("Lines still changing at the pass bound",
			"lines", diag.UnsettledLines,
		)
	}

	p.logger.Debug("Line normalization completed",
		"lines", diag.Lines,
		"changed", diag.ChangedLines,
		"substitutions", diag.Substitutions,
		"parallel", p.useParallel,
		"duration", time.Since(startTime),
	)
	return out, diag, nil
}

// normalizeRange normalizes lines[start:end] into the same indices of out.
func (p *Processor) normalizeRange(ctx context.Context, lines, out []string, start, end int) (domain.Diagnostics, error) {
	diag := domain.NewDiagnostics()
	for i := start; i < end; i++ {
		if (i-start)%ContextCheckFrequency == 0 {
			if err := ctx.Err(); err != nil {
				return diag, err
			}
		}
		line := p.normalizer.NormalizeLine(lines[i])
		out[i] = line.Text
		diag.Add(lines[i], line)
	}
	return diag, nil
}

// ProcessLines reads r line by line and writes one normalized line per input
// line to w. Blank lines are kept, line endings become "\n". It returns the
// diagnostics and the number of bytes read.
func (p *Processor) ProcessLines(ctx context.Context, reader io.Reader, writer io.Writer) (domain.Diagnostics, int64, error) {
	startTime := time.Now()
	counter := &countingReader{r: reader}

	scanner := bufio.NewScanner(counter)
	scanner.Buffer(make([]byte, 0, p.chunkSize), MaxLineSize)
	out := bufio.NewWriterSize(writer, p.chunkSize)

	total := domain.NewDiagnostics()
	batch := make([]string, 0, p.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		normalized, diag, err := p.NormalizeLines(ctx, batch)
		if err != nil {
			return err
		}
		total.Merge(diag)
		for _, line := range normalized {
			if _, err := out.WriteString(line); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if err := out.WriteByte('\n'); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		batch = append(batch, strings.TrimSuffix(scanner.Text(), "\r"))
		if len(batch) == p.batchSize {
			if err := flush(); err != nil {
				return total, counter.n, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading from input", "error", err)
		return total, counter.n, fmt.Errorf("read input: %w", err)
	}
	if err := flush(); err != nil {
		return total, counter.n, err
	}
	if err := out.Flush(); err != nil {
		return total, counter.n, fmt.Errorf("write output: %w", err)
	}

	p.logger.Debug("Line processing completed",
		"lines", total.Lines,
		"changed", total.ChangedLines,
		"bytes_processed", counter.n,
		"duration", time.Since(startTime),
	)
	return total, counter.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
