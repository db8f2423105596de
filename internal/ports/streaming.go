package ports

import (
	"context"
	"io"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
)

// LineProcessor normalizes line-oriented text, either in memory or as a stream.
type LineProcessor interface {
	// NormalizeLines returns a slice of the same length as lines, index for index.
	NormalizeLines(ctx context.Context, lines []string) ([]string, domain.Diagnostics, error)

	// ProcessLines reads reader line by line and writes one normalized line per
	// input line to writer.
	ProcessLines(ctx context.Context, reader io.Reader, writer io.Writer) (domain.Diagnostics, int64, error)
}

// CorpusSplitter turns a raw record stream into an aligned parallel corpus.
type CorpusSplitter interface {
	Split(ctx context.Context, reader io.Reader) (domain.ParallelCorpus, domain.SplitStats, error)
}
