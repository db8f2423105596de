package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyCorpus is returned when splitting yields no valid record.
var ErrEmptyCorpus = errors.New("empty corpus: no valid sentence pair records")

// MalformedRecordError describes a record that could not be decomposed into
// source and target text. It is recovered locally: the record is skipped.
type MalformedRecordError struct {
	// Line is the 1-based physical line number in the input stream.
	Line   int
	Fields int
	Reason string
}

func (e MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at line %d (%d fields): %s", e.Line, e.Fields, e.Reason)
}

// UnmappedCharacterWarning reports a suspect character that no rule maps and
// that is not part of the target alphabet.
type UnmappedCharacterWarning struct {
	Rune  rune
	Count int
	// Suggestion is an ASCII approximation of the rune, if one is known.
	Suggestion string
}

func (w UnmappedCharacterWarning) String() string {
	if w.Suggestion != "" {
		return fmt.Sprintf("%q (U+%04X) x%d, looks like %q", w.Rune, w.Rune, w.Count, w.Suggestion)
	}
	return fmt.Sprintf("%q (U+%04X) x%d", w.Rune, w.Rune, w.Count)
}
