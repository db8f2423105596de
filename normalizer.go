// normalizer.go
// Package corpusnormalizer rewrites text to the canonical character set of a
// target orthography. Each rule maps a non-standard character or short
// sequence onto its standard form; at every position the longest matching
// pattern wins, and the result is stable:
//
//	Normalize(Normalize(s)) == Normalize(s)
//
// The built-in Kabyle table is used unless another language, a YAML table
// file or an explicit rule list is configured with the functional options.
package corpusnormalizer

import (
	"context"
	"errors"
	"sync"

	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/logger"
	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/normalizer"
	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/stream/lineprocessor"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
	"github.com/baditaflorin/l"
)

// DefaultLanguage selects the built-in table when nothing else is configured.
const DefaultLanguage = "kab"

// Rule maps a pattern onto its replacement.
type Rule = domain.SubstitutionRule

// Line is the result of normalizing one line.
type Line = domain.NormalizedLine

// Diagnostics aggregates counters over many lines.
type Diagnostics = domain.Diagnostics

// Warning reports a character no rule maps and the alphabet does not know.
type Warning = domain.UnmappedCharacterWarning

// Config holds configuration options for the normalizer.
type Config struct {
	Language  string
	RulesFile string
	// Rules, when set, replace any table file or built-in table.
	Rules    []Rule
	Alphabet string
	// Compose composes combining sequences (NFC) before matching.
	Compose bool
	Workers int
	// Logger for tracing normalization.
	Logger l.Logger
}

// Option defines a functional option for configuring the normalizer.
type Option func(*Config)

// WithLanguage selects a built-in table by ISO 639-3 code.
func WithLanguage(language string) Option {
	return func(cfg *Config) {
		cfg.Language = language
	}
}

// WithRulesFile loads the table from a YAML file.
func WithRulesFile(path string) Option {
	return func(cfg *Config) {
		cfg.RulesFile = path
	}
}

// WithRules uses an explicit rule list. An empty alphabet disables the
// unmapped-character report.
func WithRules(rs []Rule, alphabet string) Option {
	return func(cfg *Config) {
		cfg.Rules = rs
		cfg.Alphabet = alphabet
	}
}

// WithCompose toggles composition of combining sequences before matching.
// Compatibility characters such as U+F900 are never rewritten.
func WithCompose(compose bool) Option {
	return func(cfg *Config) {
		cfg.Compose = compose
	}
}

// WithWorkers sets the goroutine count of NormalizeAll (0 = NumCPU).
func WithWorkers(n int) Option {
	return func(cfg *Config) {
		cfg.Workers = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger l.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = logger
	}
}

// Normalizer applies one substitution table. It is safe for concurrent use.
type Normalizer struct {
	norm      *normalizer.SubstitutionNormalizer
	processor *lineprocessor.Processor
}

// New creates a Normalizer.
func New(opts ...Option) (*Normalizer, error) {
	config := &Config{
		Language: DefaultLanguage,
		Compose:  true,
	}
	for _, opt := range opts {
		opt(config)
	}

	if config.Logger == nil {
		var err error
		config.Logger, err = createDefaultLogger()
		if err != nil {
			return nil, err
		}
	}

	table, err := resolveTable(config)
	if err != nil {
		return nil, err
	}
	norm, err := normalizer.NewSubstitutionNormalizer(table, normalizer.WithCompose(config.Compose))
	if err != nil {
		return nil, err
	}

	log := logger.FromExisting(config.Logger)
	log.Debug("Normalizer created", "table", table.Meta().Name, "rules", table.Len())
	return &Normalizer{
		norm: norm,
		processor: lineprocessor.NewProcessor(log, norm, lineprocessor.ProcessingConfig{
			UseParallel: true,
			Workers:     config.Workers,
		}),
	}, nil
}

func resolveTable(config *Config) (*rules.Table, error) {
	if len(config.Rules) > 0 {
		return rules.NewTable(rules.Meta{
			Name:     "custom",
			Language: config.Language,
			Alphabet: config.Alphabet,
		}, config.Rules)
	}
	return rules.Resolve(config.RulesFile, config.Language)
}

// Normalize returns the normalized text.
func (n *Normalizer) Normalize(text string) string {
	return n.norm.Normalize(text)
}

// NormalizeLine normalizes text and reports substitutions and unmapped
// characters.
func (n *Normalizer) NormalizeLine(text string) Line {
	return n.norm.NormalizeLine(text)
}

// NormalizeAll normalizes lines in parallel. The result has the same length
// and order as lines.
func (n *Normalizer) NormalizeAll(ctx context.Context, lines []string) ([]string, Diagnostics, error) {
	return n.processor.NormalizeLines(ctx, lines)
}

// Rules returns the rules in effect.
func (n *Normalizer) Rules() []Rule {
	return n.norm.Table().Rules()
}

// Warnings lists the unmapped characters of d with ASCII look-alike hints.
func Warnings(d Diagnostics) []Warning {
	return d.Warnings(normalizer.Suggest)
}

var (
	defaultOnce       sync.Once
	defaultNormalizer *Normalizer
	defaultErr        error
)

// NormalizeWithDefaults normalizes text with the built-in Kabyle table.
func NormalizeWithDefaults(text string) (string, error) {
	defaultOnce.Do(func() {
		lg := logger.NewNopLogger()
		table, err := rules.Builtin(DefaultLanguage)
		if err != nil {
			defaultErr = err
			return
		}
		norm, err := normalizer.NewSubstitutionNormalizer(table)
		if err != nil {
			defaultErr = err
			return
		}
		defaultNormalizer = &Normalizer{
			norm:      norm,
			processor: lineprocessor.NewProcessor(lg, norm, lineprocessor.ProcessingConfig{}),
		}
	})
	if defaultNormalizer == nil {
		if defaultErr == nil {
			defaultErr = errors.New("default normalizer unavailable")
		}
		return text, defaultErr
	}
	return defaultNormalizer.Normalize(text), nil
}
