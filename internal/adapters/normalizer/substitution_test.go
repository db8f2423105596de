package normalizer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
)

func newNormalizer(t *testing.T, meta rules.Meta, rs []domain.SubstitutionRule, opts ...Option) *SubstitutionNormalizer {
	t.Helper()
	table, err := rules.NewTable(meta, rs)
	require.NoError(t, err)
	n, err := NewSubstitutionNormalizer(table, opts...)
	require.NoError(t, err)
	return n
}

func kabyle(t *testing.T) *SubstitutionNormalizer {
	t.Helper()
	table, err := rules.Builtin("kab")
	require.NoError(t, err)
	n, err := NewSubstitutionNormalizer(table)
	require.NoError(t, err)
	return n
}

func TestNormalizeExample(t *testing.T) {
	n := newNormalizer(t, rules.Meta{Name: "example"}, []domain.SubstitutionRule{
		{Pattern: "ε", Replacement: "e"},
		{Pattern: "ḍ", Replacement: "d"},
		{Pattern: "ṛ", Replacement: "r"},
	})

	line := n.NormalizeLine("amεḍqaṛ")
	assert.Equal(t, "amedqar", line.Text)
	assert.Equal(t, 3, line.Substitutions)
	assert.Empty(t, line.Unmapped)
}

func TestNormalizeLongestMatch(t *testing.T) {
	n := newNormalizer(t, rules.Meta{Name: "overlap"}, []domain.SubstitutionRule{
		{Pattern: "ţ", Replacement: "ṭ"},
		{Pattern: "ţţ", Replacement: "tt"},
	})

	tests := []struct {
		name  string
		input string
		want  string
		subs  int
	}{
		{"superset wins", "aţţa", "atta", 1},
		{"prefix alone", "aţa", "aṭa", 1},
		{"superset then prefix", "ţţţ", "ttṭ", 2},
		{"no match", "abc", "abc", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			line := n.NormalizeLine(tc.input)
			assert.Equal(t, tc.want, line.Text)
			assert.Equal(t, tc.subs, line.Substitutions)
		})
	}
}

func TestNormalizeEmptyLine(t *testing.T) {
	n := kabyle(t)
	line := n.NormalizeLine("")
	assert.Equal(t, "", line.Text)
	assert.Zero(t, line.Substitutions)
	assert.Empty(t, line.Unmapped)
}

func TestNormalizeKabyleTable(t *testing.T) {
	n := kabyle(t)

	tests := []struct {
		input string
		want  string
	}{
		{"Yeţţaţ aγrum.", "Yettaţ aɣrum."},
		{"Γef wayen", "Ɣef wayen"},
		{"ϵlam", "ɛlam"},
		{"εlam", "ɛlam"},
		{"Σli yeğğa", "Ɛli yeǧǧa"},
		{"Ԑli", "Ɛli"},
		{"yeşşa", "yeṣṣa"},
		{"Yeţţa", "Yetta"},
		{"yețța", "yetta"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, n.Normalize(tc.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := kabyle(t)

	inputs := []string{
		"",
		"Azul fell-awen!",
		"Yeţţaţ aγrum, ϵlam d Σli.",
		"ţţţţţ",
		"Tom yeğğa-t 3 tikkal.",
		"Привет мир ε γ",
		"s\u0327a\u0326",
		"\u0510\u0301",
	}

	for _, s := range inputs {
		t.Run(fmt.Sprintf("%q", s), func(t *testing.T) {
			once := n.Normalize(s)
			twice := n.Normalize(once)
			assert.Equal(t, once, twice)

			line := n.NormalizeLine(once)
			assert.Zero(t, line.Substitutions)
		})
	}
}

func TestChainedTableRejected(t *testing.T) {
	// ab→c, cb→d, ... mb→n: every replacement followed by "b" is the next
	// pattern, so one pass can never reach a fixpoint.
	rs := []domain.SubstitutionRule{{Pattern: "ab", Replacement: "c"}}
	for r := 'c'; r < 'n'; r++ {
		rs = append(rs, domain.SubstitutionRule{Pattern: string(r) + "b", Replacement: string(r + 1)})
	}
	_, err := rules.NewTable(rules.Meta{Name: "chain"}, rs)
	assert.ErrorIs(t, err, rules.ErrInvalidTable)
}

func TestNormalizeIdempotentOnEveryShortString(t *testing.T) {
	n := newNormalizer(t, rules.Meta{Name: "overlapping"}, []domain.SubstitutionRule{
		{Pattern: "ab", Replacement: "x"},
		{Pattern: "ba", Replacement: "y"},
		{Pattern: "ţ", Replacement: "ṭ"},
		{Pattern: "ţţ", Replacement: "tt"},
		{Pattern: "z", Replacement: "s"},
		{Pattern: "ş", Replacement: "ṣ"},
	})

	letters := []string{"a", "b", "c", "s", "z", "ţ"}
	inputs := []string{""}
	for length := 0; length < 5; length++ {
		next := make([]string, 0, len(inputs)*len(letters))
		for _, prefix := range inputs {
			for _, letter := range letters {
				next = append(next, prefix+letter)
			}
		}
		for _, s := range next {
			line := n.NormalizeLine(s)
			require.False(t, line.Unsettled, "%q", s)
			require.Equal(t, line.Text, n.Normalize(line.Text), "%q", s)
		}
		inputs = next
	}
}

func TestNormalizeReportsUnsettledLine(t *testing.T) {
	table, err := rules.NewTable(rules.Meta{Name: "composing"}, []domain.SubstitutionRule{
		{Pattern: "z", Replacement: "s"},
		{Pattern: "\u015f", Replacement: "\u1e63"},
	})
	require.NoError(t, err)

	// z→s leaves s + combining cedilla, which composes to U+015F on the next pass.
	full, err := NewSubstitutionNormalizer(table)
	require.NoError(t, err)
	line := full.NormalizeLine("z\u0327a")
	assert.Equal(t, "\u1e63a", line.Text)
	assert.Equal(t, 2, line.Substitutions)
	assert.False(t, line.Unsettled)

	bounded, err := NewSubstitutionNormalizer(table, WithMaxPasses(1))
	require.NoError(t, err)
	line = bounded.NormalizeLine("z\u0327a")
	assert.Equal(t, "\u015fa", line.Text)
	assert.True(t, line.Unsettled)

	diag := domain.NewDiagnostics()
	diag.Add("z\u0327a", line)
	assert.Equal(t, 1, diag.UnsettledLines)
}

func TestNormalizePreservesStandardText(t *testing.T) {
	n := kabyle(t)

	inputs := []string{
		"Azul fell-awen!",
		"Ɣef wayen i d-yenna, 42 n tikkal.",
		"Tom d Mary, «ɛlam» ?",
		"日本語 and English 123",
		"ḍḥṛṣṭẓčǧ",
	}

	for _, s := range inputs {
		line := n.NormalizeLine(s)
		assert.Equal(t, s, line.Text)
		assert.Zero(t, line.Substitutions)
	}
}

func TestNormalizeDecomposedInput(t *testing.T) {
	n := kabyle(t)

	// s + combining cedilla composes to U+015F, which the table maps to U+1E63.
	line := n.NormalizeLine("yes\u0327a")
	assert.Equal(t, 1, line.Substitutions)
	assert.Equal(t, "ye\u1e63a", line.Text)

	raw, err := NewSubstitutionNormalizer(n.Table(), WithCompose(false))
	require.NoError(t, err)
	assert.Equal(t, "yes\u0327a", raw.Normalize("yes\u0327a"))
}

func TestNormalizeLeavesCompatibilityCharacters(t *testing.T) {
	n := kabyle(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"cjk compatibility ideograph", "\uf900\uf901 ε", "\uf900\uf901 ɛ"},
		{"angstrom sign", "\u212b", "\u212b"},
		{"ohm sign next to a fix", "\u2126 γ", "\u2126 ɣ"},
		{"combining sequence still composes", "\uf900 e\u0301", "\uf900 \u00e9"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, n.Normalize(tc.input))
		})
	}
}

func TestNormalizeReportsUnmapped(t *testing.T) {
	n := kabyle(t)

	line := n.NormalizeLine("Yeqqim ö Ʃ, 2+2=4 ε")
	assert.Equal(t, "Yeqqim ö Ʃ, 2+2=4 ɛ", line.Text)
	assert.Equal(t, []rune{'ö', 'Ʃ'}, line.Unmapped)

	noAlphabet := newNormalizer(t, rules.Meta{Name: "bare"}, []domain.SubstitutionRule{
		{Pattern: "x", Replacement: "y"},
	})
	assert.Empty(t, noAlphabet.NormalizeLine("ö").Unmapped)
}

func TestNormalizeConcurrentUse(t *testing.T) {
	n := kabyle(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if got := n.Normalize("Yeţţa aγrum"); got != "Yetta aɣrum" {
					t.Errorf("got %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestNewSubstitutionNormalizerNilTable(t *testing.T) {
	_, err := NewSubstitutionNormalizer(nil)
	assert.Error(t, err)
}

func TestNormalizerFactory(t *testing.T) {
	f := NewNormalizerFactory(WithMaxPasses(4))

	a, err := f.CreateNormalizer("", "kab")
	require.NoError(t, err)
	b, err := f.CreateNormalizer("", "kab")
	require.NoError(t, err)
	assert.Same(t, a.Table(), b.Table())
	assert.Equal(t, 4, a.config.MaxPasses)

	_, err = f.CreateNormalizer("", "zz")
	assert.Error(t, err)
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, "o", Suggest('ö'))
	assert.Equal(t, "", Suggest('a'))
}
