package normalizer

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
	"github.com/baditaflorin/go_corpus_normalizer/internal/pool"
	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
)

// DefaultMaxPasses bounds the rewrite loop. Validated tables settle after one
// pass unless composition joins a replacement with a following combining
// mark.
const DefaultMaxPasses = 8

// Config holds normalizer options.
type Config struct {
	// Compose applies NFC to combining sequences before every pass so
	// decomposed input matches precomposed patterns.
	Compose   bool
	MaxPasses int
}

// DefaultConfig returns the options used by the CLI and the server.
func DefaultConfig() Config {
	return Config{Compose: true, MaxPasses: DefaultMaxPasses}
}

// Option configures a SubstitutionNormalizer.
type Option func(*Config)

// WithCompose toggles the composition pre-pass. Only a base character and
// the combining marks after it are composed; characters NFC would merely
// replace, such as CJK compatibility ideographs, are left alone.
func WithCompose(compose bool) Option {
	return func(cfg *Config) {
		cfg.Compose = compose
	}
}

// WithMaxPasses sets the rewrite loop bound.
func WithMaxPasses(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxPasses = n
		}
	}
}

// SubstitutionNormalizer rewrites text with a rules.Table using longest-match
// scanning. It is safe for concurrent use.
type SubstitutionNormalizer struct {
	table   *rules.Table
	config  Config
	buffers *pool.BufferPool
}

var _ ports.LineNormalizer = (*SubstitutionNormalizer)(nil)

// NewSubstitutionNormalizer creates a normalizer bound to table.
func NewSubstitutionNormalizer(table *rules.Table, opts ...Option) (*SubstitutionNormalizer, error) {
	if table == nil {
		return nil, errors.New("normalizer: nil substitution table")
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SubstitutionNormalizer{
		table:   table,
		config:  cfg,
		buffers: pool.NewBufferPool(256),
	}, nil
}

// Table returns the table the normalizer applies.
func (n *SubstitutionNormalizer) Table() *rules.Table {
	return n.table
}

// Normalize returns the normalized text only.
func (n *SubstitutionNormalizer) Normalize(text string) string {
	out, _, _ := n.rewrite(text)
	return out
}

// NormalizeLine normalizes one line and reports what it did. The returned
// text is a fixpoint unless Unsettled is set.
func (n *SubstitutionNormalizer) NormalizeLine(text string) domain.NormalizedLine {
	out, count, settled := n.rewrite(text)
	line := domain.NormalizedLine{Text: out, Substitutions: count, Unsettled: !settled}
	if n.table.HasAlphabet() {
		for _, r := range out {
			if n.table.IsSuspect(r) {
				line.Unmapped = append(line.Unmapped, r)
			}
		}
	}
	return line
}

// rewrite applies up to MaxPasses rewriting passes. settled reports whether
// one more pass would leave the text unchanged.
func (n *SubstitutionNormalizer) rewrite(text string) (out string, total int, settled bool) {
	if text == "" {
		return "", 0, true
	}

	for passes := 0; ; passes++ {
		if n.config.Compose {
			text = compose(text)
		}
		next, count := n.pass(text)
		if count == 0 {
			return text, total, true
		}
		if passes == n.config.MaxPasses {
			return text, total, false
		}
		total += count
		text = next
	}
}

// compose applies NFC to each base character followed by combining marks and
// copies everything else unchanged.
func compose(s string) string {
	var (
		b    strings.Builder
		last int
	)
	for i := 0; i < len(s); {
		r, width := utf8.DecodeRuneInString(s[i:])
		if !unicode.Is(unicode.M, r) {
			i += width
			continue
		}

		start := i
		if start > last {
			_, prev := utf8.DecodeLastRuneInString(s[last:start])
			start -= prev
		}
		end := i + width
		for end < len(s) {
			next, nw := utf8.DecodeRuneInString(s[end:])
			if !unicode.Is(unicode.M, next) {
				break
			}
			end += nw
		}

		segment := s[start:end]
		if !norm.NFC.IsNormalString(segment) {
			if b.Len() == 0 {
				b.Grow(len(s))
			}
			b.WriteString(s[last:start])
			b.WriteString(norm.NFC.String(segment))
			last = end
		}
		i = end
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// pass performs one left-to-right scan. Unchanged input is returned as is
// without allocating.
func (n *SubstitutionNormalizer) pass(s string) (string, int) {
	var buf *[]byte
	count, last := 0, 0

	for i := 0; i < len(s); {
		replacement, size, ok := n.table.Match(s, i)
		if !ok {
			_, width := utf8.DecodeRuneInString(s[i:])
			i += width
			continue
		}
		if buf == nil {
			buf = n.buffers.Get(len(s) + len(replacement))
		}
		*buf = append(*buf, s[last:i]...)
		*buf = append(*buf, replacement...)
		i += size
		last = i
		count++
	}

	if buf == nil {
		return s, 0
	}
	*buf = append(*buf, s[last:]...)
	out := string(*buf)
	n.buffers.Put(buf)
	return out, count
}
