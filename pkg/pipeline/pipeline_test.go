package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/splitter"
)

func TestRunPairLayout(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	input := strings.Join([]string{
		splitter.PairHeader,
		"He ate bread.\tYeţţa aγrum.",
		"broken line",
		"Hello!\tAzul!",
		"Ali left.\tΣli yeffeγ ö.",
	}, "\n")

	res, err := p.Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"He ate bread.", "Hello!", "Ali left."}, res.SourceLines())
	assert.Equal(t, []string{"Yeţţa aγrum.", "Azul!", "Σli yeffeγ ö."}, res.TargetLines())
	assert.Equal(t, []string{"Yetta aɣrum.", "Azul!", "Ɛli yeffeɣ ö."}, res.Normalized)
	assert.Equal(t, 1, res.SplitStats.Skipped)
	assert.Equal(t, 2, res.Diagnostics.ChangedLines)

	warnings := res.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, 'ö', warnings[0].Rune)
	assert.Equal(t, "o", warnings[0].Suggestion)
}

func TestRunTatoebaLayoutParallel(t *testing.T) {
	p, err := New(WithLayout(splitter.LayoutTatoeba), WithWorkers(3), WithBatchSize(2))
	require.NoError(t, err)

	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("1\tHe ate.\t2\tYeţţa.\n")
	}

	res, err := p.Run(context.Background(), strings.NewReader(sb.String()))
	require.NoError(t, err)
	require.Len(t, res.Normalized, 50)
	assert.Equal(t, res.Corpus.Len(), len(res.Normalized))
	for _, line := range res.Normalized {
		assert.Equal(t, "Yetta.", line)
	}
}

func TestRunEmptyCorpus(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	_, err = p.Run(context.Background(), strings.NewReader(""))
	assert.True(t, errors.Is(err, domain.ErrEmptyCorpus))
}

func TestRunCustomTable(t *testing.T) {
	table, err := rules.NewTable(rules.Meta{Name: "example"}, []domain.SubstitutionRule{
		{Pattern: "ε", Replacement: "e"},
		{Pattern: "ḍ", Replacement: "d"},
		{Pattern: "ṛ", Replacement: "r"},
	})
	require.NoError(t, err)

	p, err := New(WithTable(table))
	require.NoError(t, err)
	assert.Same(t, table, p.Table())

	res, err := p.Run(context.Background(), strings.NewReader("frog\tamεḍqaṛ\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"amedqar"}, res.Normalized)
}

func TestNewUnknownLanguage(t *testing.T) {
	_, err := New(WithLanguage("zz"))
	assert.Error(t, err)
}
