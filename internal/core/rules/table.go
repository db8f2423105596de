// Package rules holds the immutable substitution tables that drive the
// character normalizer, and the longest-match lookup over them.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
)

// ErrInvalidTable is wrapped by every table validation failure.
var ErrInvalidTable = errors.New("invalid substitution table")

// Meta describes a table: which orthography it targets and which letters that
// orthography considers standard.
type Meta struct {
	Name     string
	Language string
	Version  string
	// Alphabet lists the standard lowercase letters. Empty disables the
	// unmapped-character diagnostics.
	Alphabet string
	// WordAlphabet lists the letters that form words when building stopword
	// lists. Empty means Alphabet.
	WordAlphabet string
}

// Table is an immutable, validated rule list plus its lookup trie. It is safe
// for concurrent use.
type Table struct {
	meta     Meta
	rules    []domain.SubstitutionRule
	alphabet map[rune]struct{}
	words    map[rune]struct{}
	root     *node
}

// NewTable validates rules and builds the lookup structure. Patterns and
// replacements are stored NFC-composed.
func NewTable(meta Meta, rules []domain.SubstitutionRule) (*Table, error) {
	t := &Table{
		meta:  meta,
		rules: make([]domain.SubstitutionRule, 0, len(rules)),
		root:  newNode(),
	}

	seen := make(map[string]int, len(rules))
	for i, r := range rules {
		pattern := norm.NFC.String(r.Pattern)
		if pattern == "" {
			return nil, fmt.Errorf("%w: rule %d has an empty pattern", ErrInvalidTable, i)
		}
		if prev, dup := seen[pattern]; dup {
			return nil, fmt.Errorf("%w: rule %d repeats the pattern %q of rule %d", ErrInvalidTable, i, pattern, prev)
		}
		seen[pattern] = i
		t.rules = append(t.rules, domain.SubstitutionRule{
			Pattern:     pattern,
			Replacement: norm.NFC.String(r.Replacement),
			Note:        r.Note,
		})
	}

	// Output must never contain a match the scan did not already see, or
	// normalizing it again would change it.
	for i, r := range t.rules {
		for j, other := range t.rules {
			if strings.Contains(r.Replacement, other.Pattern) {
				return nil, fmt.Errorf("%w: replacement %q of rule %d contains the pattern %q of rule %d",
					ErrInvalidTable, r.Replacement, i, other.Pattern, j)
			}
			if r.Replacement == "" && utf8.RuneCountInString(other.Pattern) > 1 {
				return nil, fmt.Errorf("%w: rule %d deletes text, which can join the pattern %q of rule %d",
					ErrInvalidTable, i, other.Pattern, j)
			}
			if overlaps(r.Replacement, other.Pattern) {
				return nil, fmt.Errorf("%w: replacement %q of rule %d can join the pattern %q of rule %d",
					ErrInvalidTable, r.Replacement, i, other.Pattern, j)
			}
		}
		t.root.insert(r.Pattern, i)
	}

	t.meta.Alphabet = norm.NFC.String(meta.Alphabet)
	t.meta.WordAlphabet = norm.NFC.String(meta.WordAlphabet)
	t.alphabet = letterSet(t.meta.Alphabet)
	t.words = t.alphabet
	if t.meta.WordAlphabet != "" {
		t.words = letterSet(t.meta.WordAlphabet)
	}

	return t, nil
}

func letterSet(letters string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(letters))
	for _, r := range letters {
		if unicode.IsSpace(r) {
			continue
		}
		set[unicode.ToLower(r)] = struct{}{}
	}
	return set
}

// overlaps reports whether pattern can span the edge of replacement with
// neighbouring text: a suffix of replacement starts pattern, a prefix of
// replacement ends it, or replacement sits inside it.
func overlaps(replacement, pattern string) bool {
	if replacement == "" {
		return false
	}
	if strings.Contains(pattern, replacement) {
		return true
	}
	r, p := []rune(replacement), []rune(pattern)
	for k := 1; k < len(p) && k < len(r); k++ {
		if string(r[len(r)-k:]) == string(p[:k]) || string(r[:k]) == string(p[len(p)-k:]) {
			return true
		}
	}
	return false
}

// MustTable is NewTable for tables known to be valid at compile time.
func MustTable(meta Meta, rules []domain.SubstitutionRule) *Table {
	t, err := NewTable(meta, rules)
	if err != nil {
		panic(err)
	}
	return t
}

// Meta returns the table description.
func (t *Table) Meta() Meta { return t.meta }

// Len returns the number of rules.
func (t *Table) Len() int { return len(t.rules) }

// Rules returns a copy of the rules in table order.
func (t *Table) Rules() []domain.SubstitutionRule {
	out := make([]domain.SubstitutionRule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Match returns the replacement for the longest pattern starting at byte
// offset i of s, and the byte length of that pattern.
func (t *Table) Match(s string, i int) (replacement string, size int, ok bool) {
	rule, size := t.root.longest(s, i)
	if rule < 0 {
		return "", 0, false
	}
	return t.rules[rule].Replacement, size, true
}

// HasAlphabet reports whether the table declares its standard letters.
func (t *Table) HasAlphabet() bool {
	return len(t.alphabet) > 0
}

// InAlphabet reports whether r, case-folded to lower case, is a standard letter.
func (t *Table) InAlphabet(r rune) bool {
	_, ok := t.alphabet[unicode.ToLower(r)]
	return ok
}

// InWordAlphabet reports whether r, case-folded to lower case, can be part of
// a word.
func (t *Table) InWordAlphabet(r rune) bool {
	_, ok := t.words[unicode.ToLower(r)]
	return ok
}

// IsSuspect reports whether r, left in the text after substitution, looks
// non-standard: a letter outside the alphabet or a stray combining mark.
// Digits, punctuation, symbols and whitespace are never suspect.
func (t *Table) IsSuspect(r rune) bool {
	if !t.HasAlphabet() {
		return false
	}
	if unicode.Is(unicode.Mn, r) {
		return true
	}
	if !unicode.IsLetter(r) {
		return false
	}
	return !t.InAlphabet(r)
}
