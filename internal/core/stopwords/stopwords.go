// Package stopwords derives a frequency-based stopword list from normalized
// text, tokenized on a table's word alphabet.
package stopwords

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/checker"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
)

// Default selection thresholds.
const (
	DefaultRelCutoff = 0.005
	DefaultMinCount  = 10
	DefaultMaxWords  = 500
)

// DefaultExclude lists words never reported, whatever their frequency.
var DefaultExclude = []string{"mary"}

// Config controls word selection. A zero threshold disables that test; a
// word is kept when it passes any enabled test, or always when both are off.
type Config struct {
	RelCutoff float64
	MinCount  int
	// MaxWords caps the list; 0 keeps every selected word.
	MaxWords int
	Exclude  []string
}

// DefaultConfig returns the thresholds used by the fetch pipeline.
func DefaultConfig() Config {
	return Config{
		RelCutoff: DefaultRelCutoff,
		MinCount:  DefaultMinCount,
		MaxWords:  DefaultMaxWords,
		Exclude:   DefaultExclude,
	}
}

// Word is one selected stopword.
type Word struct {
	Text      string
	Count     int
	Frequency float64
}

// Frequencies holds token counts over a text.
type Frequencies struct {
	Counts map[string]int
	Total  int
}

// Builder tokenizes text and selects stopwords.
type Builder struct {
	table   *rules.Table
	config  Config
	exclude map[string]struct{}
}

// New creates a builder. The table must declare an alphabet.
func New(table *rules.Table, config Config) (*Builder, error) {
	if !table.HasAlphabet() {
		return nil, fmt.Errorf("%w: %s", checker.ErrNoAlphabet, table.Meta().Name)
	}
	b := &Builder{table: table, config: config, exclude: make(map[string]struct{})}
	for _, w := range config.Exclude {
		b.exclude[strings.ToLower(w)] = struct{}{}
	}
	return b, nil
}

// Tokenize returns the lowercased runs of word-alphabet letters in text.
func (b *Builder) Tokenize(text string) []string {
	var (
		tokens []string
		word   strings.Builder
	)
	for _, r := range norm.NFC.String(text) {
		r = unicode.ToLower(r)
		if b.table.InWordAlphabet(r) {
			word.WriteRune(r)
			continue
		}
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	if word.Len() > 0 {
		tokens = append(tokens, word.String())
	}
	return tokens
}

// Count tokenizes r line by line.
func (b *Builder) Count(ctx context.Context, r io.Reader) (Frequencies, error) {
	freq := Frequencies{Counts: make(map[string]int)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%checker.ContextCheckFrequency == 0 {
			if err := ctx.Err(); err != nil {
				return freq, err
			}
		}
		for _, tok := range b.Tokenize(scanner.Text()) {
			freq.Counts[tok]++
			freq.Total++
		}
	}
	if err := scanner.Err(); err != nil {
		return freq, fmt.Errorf("read input at line %d: %w", lineNo+1, err)
	}
	return freq, nil
}

// Select applies the thresholds and returns words by decreasing count, ties
// broken alphabetically.
func (b *Builder) Select(freq Frequencies) []Word {
	if freq.Total == 0 {
		return nil
	}
	relOn := b.config.RelCutoff > 0
	minOn := b.config.MinCount > 0

	var words []Word
	for text, count := range freq.Counts {
		if _, skip := b.exclude[text]; skip {
			continue
		}
		rel := float64(count) / float64(freq.Total)
		keep := !relOn && !minOn
		if relOn && rel >= b.config.RelCutoff {
			keep = true
		}
		if minOn && count >= b.config.MinCount {
			keep = true
		}
		if keep {
			words = append(words, Word{Text: text, Count: count, Frequency: rel})
		}
	}

	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Text < words[j].Text
	})
	if b.config.MaxWords > 0 && len(words) > b.config.MaxWords {
		words = words[:b.config.MaxWords]
	}
	return words
}

// Build counts r and selects stopwords from it.
func (b *Builder) Build(ctx context.Context, r io.Reader) ([]Word, error) {
	freq, err := b.Count(ctx, r)
	if err != nil {
		return nil, err
	}
	return b.Select(freq), nil
}

// Texts returns the words alone, in list order.
func Texts(words []Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Text
	}
	return out
}
