package ports

import "github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"

// Normalizer defines the interface for text normalization.
type Normalizer interface {
	Normalize(text string) string
}

// LineNormalizer is a Normalizer that also reports what it did to a line.
type LineNormalizer interface {
	Normalizer
	NormalizeLine(text string) domain.NormalizedLine
}
