package splitter

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/logger"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
)

func newSplitter(config Config) *Splitter {
	return New(config, logger.NewNopLogger())
}

func TestSplitPairLayout(t *testing.T) {
	input := PairHeader + "\n" +
		"Hello.\tAzul.\n" +
		"How are you?\tAmek telliḍ?\r\n" +
		"\n" +
		"I'm fine.\t Labas. \n"

	corpus, stats, err := newSplitter(Config{Header: PairHeader}).Split(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello.", "How are you?", "I'm fine."}, corpus.SourceLines())
	assert.Equal(t, []string{"Azul.", "Amek telliḍ?", "Labas."}, corpus.TargetLines())
	assert.Equal(t, 3, stats.Valid)
	assert.Zero(t, stats.Skipped)
	for i, r := range corpus.Records {
		assert.Equal(t, i, r.Ordinal)
	}
}

func TestSplitCSVQuotedPairsFile(t *testing.T) {
	// Header and quoting as written by Python's csv module.
	input := "English\tKabyle\r\n" +
		"\"He said \"\"hi\"\".\"\t\"Yenna-d \"\"azul\"\".\"\r\n" +
		"Tom left.\tYeffeɣ Tom.\r\n" +
		"\"unterminated\tfield\r\n"

	tests := []struct {
		name    string
		config  Config
		sources []string
		targets []string
		skipped int
	}{
		{
			name:    "verbatim",
			config:  Config{Header: PairHeader},
			sources: []string{"English", `"He said ""hi""."`, "Tom left.", `"unterminated`},
			targets: []string{"Kabyle", `"Yenna-d ""azul""."`, "Yeffeɣ Tom.", "field"},
			skipped: 0,
		},
		{
			name:    "skip first line and unquote",
			config:  Config{Header: PairHeader, SkipFirstLine: true, Quoted: true},
			sources: []string{`He said "hi".`, "Tom left."},
			targets: []string{`Yenna-d "azul".`, "Yeffeɣ Tom."},
			skipped: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			corpus, stats, err := newSplitter(tc.config).Split(context.Background(), strings.NewReader(input))
			require.NoError(t, err)
			assert.Equal(t, tc.sources, corpus.SourceLines())
			assert.Equal(t, tc.targets, corpus.TargetLines())
			assert.Equal(t, tc.skipped, stats.Skipped)
		})
	}
}

func TestSplitTatoebaLayout(t *testing.T) {
	input := "1\tHello.\t10\tAzul.\n2\tThanks.\t20\tTanemmirt.\n"

	corpus, _, err := newSplitter(Config{Layout: LayoutTatoeba}).Split(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello.", "Thanks."}, corpus.SourceLines())
	assert.Equal(t, []string{"Azul.", "Tanemmirt."}, corpus.TargetLines())
}

func TestSplitSkipsMalformedRecords(t *testing.T) {
	valid := []string{"a\tA", "b\tB", "c\tC", "d\tD"}
	malformed := []string{"only one field", "x\ty\tz", "\tmissing source", "missing target\t "}

	var lines []string
	for i := range valid {
		lines = append(lines, valid[i], malformed[i])
	}

	corpus, stats, err := newSplitter(Config{}).Split(context.Background(), strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)

	assert.Equal(t, len(valid), corpus.Len())
	assert.Equal(t, len(valid), stats.Valid)
	assert.Equal(t, len(malformed), stats.Skipped)
	require.Len(t, stats.Errors, len(malformed))
	assert.Equal(t, 2, stats.Errors[0].Line)
	assert.Equal(t, 1, stats.Errors[0].Fields)
	assert.Equal(t, []string{"A", "B", "C", "D"}, corpus.TargetLines())

	// Ordinals keep the position in the input, malformed records included.
	assert.Equal(t, []int{0, 2, 4, 6}, []int{
		corpus.Records[0].Ordinal, corpus.Records[1].Ordinal,
		corpus.Records[2].Ordinal, corpus.Records[3].Ordinal,
	})
}

func TestSplitCapsReportedErrors(t *testing.T) {
	input := strings.Repeat("bad\n", 10) + "good\tGOOD\n"

	_, stats, err := newSplitter(Config{MaxReportedErrors: 3}).Split(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Skipped)
	assert.Len(t, stats.Errors, 3)
}

func TestSplitEmptyCorpus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		skipped int
	}{
		{"no records", "", 0},
		{"header only", PairHeader + "\n", 0},
		{"only malformed", "nope\nstill nope\n", 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			corpus, stats, err := newSplitter(Config{Header: PairHeader}).Split(context.Background(), strings.NewReader(tc.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrEmptyCorpus))
			assert.Zero(t, corpus.Len())
			assert.Equal(t, tc.skipped, stats.Skipped)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestSplitUnreadableStream(t *testing.T) {
	_, _, err := newSplitter(Config{}).Split(context.Background(), failingReader{})
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.False(t, errors.Is(err, domain.ErrEmptyCorpus))
}

func TestParseLayout(t *testing.T) {
	layout, err := ParseLayout("Tatoeba")
	require.NoError(t, err)
	assert.Equal(t, LayoutTatoeba, layout)

	layout, err = ParseLayout("")
	require.NoError(t, err)
	assert.Equal(t, LayoutPair, layout)

	_, err = ParseLayout("csv")
	assert.Error(t, err)
}
