package checker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
)

func kabyleChecker(t *testing.T) *Checker {
	t.Helper()
	table, err := rules.Builtin("kab")
	require.NoError(t, err)
	c, err := New(table)
	require.NoError(t, err)
	return c
}

func TestDisallowed(t *testing.T) {
	c := kabyleChecker(t)

	tests := []struct {
		in   string
		want []rune
	}{
		{"Azul fell-awen!", nil},
		{"Ɣef 42 n tikkal, «ɛlam».", nil},
		{"Yeţţa aγrum γef Σli", []rune{'ţ', 'Σ', 'γ'}},
		{"ÖÖ ö", []rune{'Ö', 'ö'}},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Disallowed(tc.in))
		})
	}
}

func TestCheck(t *testing.T) {
	c := kabyleChecker(t)
	input := "Azul.\n\n  Yeţţa aγrum.  \nTanemmirt.\nγ γ\n"

	report, err := c.Check(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 4, report.Checked)
	assert.Equal(t, 2, report.Problematic)
	require.Len(t, report.Lines, 2)
	assert.Equal(t, LineReport{Line: 3, Text: "Yeţţa aγrum.", Disallowed: []rune{'ţ', 'γ'}}, report.Lines[0])
	assert.Equal(t, 5, report.Lines[1].Line)
	assert.Equal(t, 3, report.Counts['γ'])
	assert.Equal(t, 2, report.Counts['ţ'])

	assert.Equal(t, report, c.CheckLines(strings.Split(strings.TrimSuffix(input, "\n"), "\n")))
}

func TestNewWithoutAlphabet(t *testing.T) {
	table := rules.MustTable(rules.Meta{Name: "bare"}, []domain.SubstitutionRule{{Pattern: "x", Replacement: "y"}})
	_, err := New(table)
	assert.True(t, errors.Is(err, ErrNoAlphabet))
}
