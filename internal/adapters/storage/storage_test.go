package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/logger"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
)

func TestWriteLines(t *testing.T) {
	lines := []string{"Azul.", "", "Teččeɣ aɣrum."}
	want := "Azul.\n\nTeččeɣ aɣrum.\n"

	for _, compress := range []bool{false, true} {
		t.Run(map[bool]string{false: "plain", true: "xz"}[compress], func(t *testing.T) {
			dir := t.TempDir()
			w, err := NewFileWriter(dir, compress, logger.NewNopLogger())
			require.NoError(t, err)

			a, err := w.WriteLines("kab.txt", lines)
			require.NoError(t, err)
			assert.Equal(t, 3, a.Lines)
			assert.Equal(t, compress, a.Compressed)
			assert.Equal(t, w.Path("kab.txt"), a.Path)

			info, err := os.Stat(a.Path)
			require.NoError(t, err)
			assert.Equal(t, info.Size(), a.Bytes)

			sum, err := HashFile(a.Path)
			require.NoError(t, err)
			assert.Equal(t, sum, a.BLAKE3)

			r, err := Open(a.Path)
			require.NoError(t, err)
			defer r.Close()
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, want, string(data))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestArtifactAbort(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(dir, false, logger.NewNopLogger())
	require.NoError(t, err)

	aw, err := w.Create("pairs.tsv")
	require.NoError(t, err)
	_, err = aw.Write([]byte("half"))
	require.NoError(t, err)
	aw.Abort()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManifestRoundTripAndVerify(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(dir, false, logger.NewNopLogger())
	require.NoError(t, err)
	a, err := w.WriteLines("eng.txt", []string{"Hello."})
	require.NoError(t, err)

	table, err := rules.Builtin("kab")
	require.NoError(t, err)

	m := NewManifest("eng", "kab", table)
	m.AddArtifact(a)
	m.SetSplit(domain.SplitStats{Valid: 1, Skipped: 2})
	diag := domain.NewDiagnostics()
	diag.Add("ö", domain.NormalizedLine{Text: "ö", Unmapped: []rune{'ö'}})
	m.SetDiagnostics(diag, func(r rune) string { return "o" })

	path, err := WriteManifest(dir, m)
	require.NoError(t, err)

	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, got.RunID)
	assert.Len(t, got.RunID, 36)
	assert.Equal(t, "kabyle-latin", got.Table.Name)
	assert.Equal(t, 10, got.Table.Rules)
	assert.Equal(t, &SplitSummary{Valid: 1, Skipped: 2}, got.Split)
	require.Len(t, got.Normalized.Warnings, 1)
	assert.Equal(t, UnmappedInfo{Char: "ö", CodePoint: "U+00F6", Count: 1, Suggestion: "o"}, got.Normalized.Warnings[0])

	require.NoError(t, got.Verify(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "eng.txt"), []byte("tampered\n"), 0o644))
	err = got.Verify(dir)
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
}

func TestSQLiteExport(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "corpus.db")
	corpus := domain.ParallelCorpus{Records: []domain.SentencePairRecord{
		{Ordinal: 0, SourceText: "Hello.", TargetText: "Azul."},
		{Ordinal: 2, SourceText: "Bread.", TargetText: "Aγrum."},
	}}
	exporter := NewSQLiteExporter(logger.NewNopLogger())

	n, err := exporter.Export(ctx, path, corpus, []string{"Azul.", "Aɣrum."})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A second export replaces the table.
	_, err = exporter.Export(ctx, path, corpus, []string{"Azul.", "Aɣrum."})
	require.NoError(t, err)

	rows, err := LoadPairs(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []PairRow{
		{Ordinal: 0, Source: "Hello.", Target: "Azul.", TargetNormalized: "Azul."},
		{Ordinal: 2, Source: "Bread.", Target: "Aγrum.", TargetNormalized: "Aɣrum."},
	}, rows)

	_, err = exporter.Export(ctx, path, corpus, []string{"only one"})
	assert.Error(t, err)
}
