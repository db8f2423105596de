// Package checker reports letters that fall outside a table's alphabet.
package checker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
)

// ErrNoAlphabet is returned for tables that do not declare standard letters.
var ErrNoAlphabet = errors.New("substitution table declares no alphabet")

// ContextCheckFrequency defines how often to check for context cancellation
const ContextCheckFrequency = 1000 // lines

// LineReport lists the disallowed letters of one line.
type LineReport struct {
	// Line is 1-based and counts blank lines.
	Line       int
	Text       string
	Disallowed []rune
}

// Report is the result of checking a whole text.
type Report struct {
	Checked     int
	Problematic int
	Lines       []LineReport
	// Counts holds occurrences of each disallowed letter over all lines.
	Counts map[rune]int
}

// Checker finds non-standard letters. Digits, punctuation, symbols, marks and
// whitespace are ignored; letters are compared case-insensitively.
type Checker struct {
	table *rules.Table
}

// New creates a checker for table's alphabet.
func New(table *rules.Table) (*Checker, error) {
	if !table.HasAlphabet() {
		return nil, fmt.Errorf("%w: %s", ErrNoAlphabet, table.Meta().Name)
	}
	return &Checker{table: table}, nil
}

// Disallowed returns the distinct disallowed letters of s in code point order.
func (c *Checker) Disallowed(s string) []rune {
	var found []rune
	seen := make(map[rune]struct{})
	for _, r := range norm.NFC.String(s) {
		if !unicode.IsLetter(r) || c.table.InAlphabet(r) {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		found = append(found, r)
	}
	sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
	return found
}

// CheckLines checks an in-memory sequence.
func (c *Checker) CheckLines(lines []string) Report {
	report := Report{Counts: make(map[rune]int)}
	for i, line := range lines {
		c.checkLine(&report, i+1, line)
	}
	return report
}

// Check reads r line by line.
func (c *Checker) Check(ctx context.Context, r io.Reader) (Report, error) {
	report := Report{Counts: make(map[rune]int)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%ContextCheckFrequency == 0 {
			if err := ctx.Err(); err != nil {
				return report, err
			}
		}
		c.checkLine(&report, lineNo, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("read input at line %d: %w", lineNo+1, err)
	}
	return report, nil
}

func (c *Checker) checkLine(report *Report, lineNo int, line string) {
	text := strings.TrimSpace(line)
	if text == "" {
		return
	}
	report.Checked++

	disallowed := c.Disallowed(text)
	if len(disallowed) == 0 {
		return
	}
	report.Problematic++
	report.Lines = append(report.Lines, LineReport{Line: lineNo, Text: text, Disallowed: disallowed})
	for _, r := range norm.NFC.String(text) {
		if unicode.IsLetter(r) && !c.table.InAlphabet(r) {
			report.Counts[r]++
		}
	}
}
