package normalizer

import (
	"fmt"
	"sync"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
)

// NormalizerFactory builds normalizers from a rules file or a built-in
// language table. Resolved tables are cached, so repeated requests for the
// same source share one immutable table.
type NormalizerFactory struct {
	opts []Option

	mu     sync.Mutex
	tables map[string]*rules.Table
}

// NewNormalizerFactory creates a factory whose normalizers use opts.
func NewNormalizerFactory(opts ...Option) *NormalizerFactory {
	return &NormalizerFactory{
		opts:   opts,
		tables: make(map[string]*rules.Table),
	}
}

// CreateNormalizer returns a normalizer for the table in rulesFile, or for
// the built-in table of language when rulesFile is empty.
func (f *NormalizerFactory) CreateNormalizer(rulesFile, language string) (*SubstitutionNormalizer, error) {
	table, err := f.table(rulesFile, language)
	if err != nil {
		return nil, err
	}
	return NewSubstitutionNormalizer(table, f.opts...)
}

func (f *NormalizerFactory) table(rulesFile, language string) (*rules.Table, error) {
	key := "lang:" + language
	if rulesFile != "" {
		key = "file:" + rulesFile
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tables[key]; ok {
		return t, nil
	}
	t, err := rules.Resolve(rulesFile, language)
	if err != nil {
		return nil, fmt.Errorf("resolve substitution table: %w", err)
	}
	f.tables[key] = t
	return t, nil
}
