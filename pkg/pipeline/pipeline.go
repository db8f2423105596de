// Package pipeline runs the corpus split and target-side normalization as one
// step.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/logger"
	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/normalizer"
	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/stream/lineprocessor"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/splitter"
	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
	"github.com/baditaflorin/l"
)

// Result is the output of one pipeline run. Normalized[i] is the normalized
// form of Corpus.Records[i].TargetText.
type Result struct {
	Corpus      domain.ParallelCorpus
	Normalized  []string
	SplitStats  domain.SplitStats
	Diagnostics domain.Diagnostics
	Duration    time.Duration
}

// SourceLines returns the source side, unchanged.
func (r Result) SourceLines() []string { return r.Corpus.SourceLines() }

// TargetLines returns the original target side, unchanged.
func (r Result) TargetLines() []string { return r.Corpus.TargetLines() }

// Warnings lists unmapped characters with transliteration hints.
func (r Result) Warnings() []domain.UnmappedCharacterWarning {
	return r.Diagnostics.Warnings(normalizer.Suggest)
}

// Pipeline splits a record stream and normalizes its target side.
type Pipeline struct {
	splitter  ports.CorpusSplitter
	processor ports.LineProcessor
	table     *rules.Table
	logger    ports.Logger
}

// Option defines a functional option for configuring a Pipeline.
type Option func(*pipelineConfig)

type pipelineConfig struct {
	Layout     splitter.Layout
	Header     string
	SkipHeader bool
	Quoted     bool
	Language   string
	RulesFile  string
	Table      *rules.Table
	Normalizer ports.LineNormalizer
	Processing lineprocessor.ProcessingConfig
	Logger     ports.Logger
}

// WithLayout sets the record layout. LayoutPair input written by the pairing
// stage has its header skipped automatically.
func WithLayout(layout splitter.Layout) Option {
	return func(cfg *pipelineConfig) {
		cfg.Layout = layout
	}
}

// WithHeader sets a custom header line to skip.
func WithHeader(header string) Option {
	return func(cfg *pipelineConfig) {
		cfg.Header = header
	}
}

// WithSkipHeader drops the first line of the input whatever it holds.
func WithSkipHeader() Option {
	return func(cfg *pipelineConfig) {
		cfg.SkipHeader = true
	}
}

// WithQuotedFields reads CSV-quoted fields instead of taking them verbatim.
func WithQuotedFields() Option {
	return func(cfg *pipelineConfig) {
		cfg.Quoted = true
	}
}

// WithLanguage selects a built-in rule table by language code.
func WithLanguage(language string) Option {
	return func(cfg *pipelineConfig) {
		cfg.Language = language
	}
}

// WithRulesFile loads the rule table from a YAML file. It takes precedence
// over WithLanguage.
func WithRulesFile(path string) Option {
	return func(cfg *pipelineConfig) {
		cfg.RulesFile = path
	}
}

// WithTable injects an already built rule table.
func WithTable(table *rules.Table) Option {
	return func(cfg *pipelineConfig) {
		cfg.Table = table
	}
}

// WithNormalizer injects a line normalizer, bypassing table resolution.
func WithNormalizer(n ports.LineNormalizer) Option {
	return func(cfg *pipelineConfig) {
		cfg.Normalizer = n
	}
}

// WithWorkers enables parallel normalization with n workers (0 = NumCPU).
func WithWorkers(n int) Option {
	return func(cfg *pipelineConfig) {
		cfg.Processing.UseParallel = true
		cfg.Processing.Workers = n
	}
}

// WithBatchSize sets how many lines a worker takes at a time.
func WithBatchSize(n int) Option {
	return func(cfg *pipelineConfig) {
		cfg.Processing.BatchSize = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(lg l.Logger) Option {
	return func(cfg *pipelineConfig) {
		cfg.Logger = logger.FromExisting(lg)
	}
}

// WithPortsLogger sets a logger already adapted to the module's interface.
func WithPortsLogger(lg ports.Logger) Option {
	return func(cfg *pipelineConfig) {
		cfg.Logger = lg
	}
}

// New creates a pipeline. Without a table, normalizer or rules file the
// built-in Kabyle table is used.
func New(opts ...Option) (*Pipeline, error) {
	config := &pipelineConfig{
		Layout:   splitter.LayoutPair,
		Language: "kab",
	}
	for _, opt := range opts {
		opt(config)
	}

	if config.Logger == nil {
		config.Logger = logger.NewNopLogger()
	}
	if config.Header == "" && config.Layout == splitter.LayoutPair {
		config.Header = splitter.PairHeader
	}

	norm := config.Normalizer
	table := config.Table
	if norm == nil {
		if table == nil {
			var err error
			table, err = rules.Resolve(config.RulesFile, config.Language)
			if err != nil {
				return nil, err
			}
		}
		sn, err := normalizer.NewSubstitutionNormalizer(table)
		if err != nil {
			return nil, err
		}
		norm = sn
	}

	return &Pipeline{
		splitter: splitter.New(splitter.Config{
			Layout:        config.Layout,
			Header:        config.Header,
			SkipFirstLine: config.SkipHeader,
			Quoted:        config.Quoted,
		}, config.Logger),
		processor: lineprocessor.NewProcessor(config.Logger, norm, config.Processing),
		table:     table,
		logger:    config.Logger,
	}, nil
}

// Table returns the rule table in use, or nil when a normalizer was injected.
func (p *Pipeline) Table() *rules.Table {
	return p.table
}

// Run splits records and normalizes the target side. Split errors, including
// domain.ErrEmptyCorpus, are returned as is together with the split stats.
func (p *Pipeline) Run(ctx context.Context, records io.Reader) (Result, error) {
	start := time.Now()

	corpus, stats, err := p.splitter.Split(ctx, records)
	result := Result{Corpus: corpus, SplitStats: stats}
	if err != nil {
		return result, err
	}

	normalized, diag, err := p.processor.NormalizeLines(ctx, corpus.TargetLines())
	if err != nil {
		return result, fmt.Errorf("normalize target lines: %w", err)
	}
	result.Normalized = normalized
	result.Diagnostics = diag
	result.Duration = time.Since(start)

	p.logger.Info("Pipeline completed",
		"pairs", corpus.Len(),
		"skipped", stats.Skipped,
		"changed", diag.ChangedLines,
		"substitutions", diag.Substitutions,
		"unmapped", diag.Unmapped,
		"duration", result.Duration,
	)
	return result, nil
}
