package domain

import "sort"

// SentencePairRecord is one aligned unit of the corpus.
type SentencePairRecord struct {
	// Ordinal is the position of the record in the input stream (0-based).
	Ordinal    int
	SourceText string
	TargetText string
}

// ParallelCorpus is an ordered sequence of aligned sentence pairs.
type ParallelCorpus struct {
	Records []SentencePairRecord
}

// Len returns the number of aligned pairs.
func (c ParallelCorpus) Len() int {
	return len(c.Records)
}

// SourceLines returns the source-language side, in record order.
func (c ParallelCorpus) SourceLines() []string {
	lines := make([]string, len(c.Records))
	for i, r := range c.Records {
		lines[i] = r.SourceText
	}
	return lines
}

// TargetLines returns the target-language side, in record order.
func (c ParallelCorpus) TargetLines() []string {
	lines := make([]string, len(c.Records))
	for i, r := range c.Records {
		lines[i] = r.TargetText
	}
	return lines
}

// SubstitutionRule maps a non-standard character or short sequence onto its
// canonical form.
type SubstitutionRule struct {
	Pattern     string `yaml:"pattern" json:"pattern"`
	Replacement string `yaml:"replacement" json:"replacement"`
	Note        string `yaml:"note,omitempty" json:"note,omitempty"`
}

// NormalizedLine is the result of applying a rule table to one line.
type NormalizedLine struct {
	Text          string
	Substitutions int
	// Unmapped holds suspect runes in order of appearance, duplicates included.
	Unmapped []rune
	// Unsettled is set when the pass bound was reached while the text was
	// still changing.
	Unsettled bool
}

// Diagnostics aggregates normalization counters over many lines.
type Diagnostics struct {
	Lines         int
	ChangedLines  int
	Substitutions int
	Unmapped      int
	UnmappedRunes map[rune]int
	// UnsettledLines counts lines that hit the pass bound.
	UnsettledLines int
}

// NewDiagnostics returns empty diagnostics ready for accumulation.
func NewDiagnostics() Diagnostics {
	return Diagnostics{UnmappedRunes: make(map[rune]int)}
}

// Add folds the result for one original line into the aggregate. A line
// counts as changed when its text differs, composition included.
func (d *Diagnostics) Add(original string, line NormalizedLine) {
	if d.UnmappedRunes == nil {
		d.UnmappedRunes = make(map[rune]int)
	}
	d.Lines++
	if line.Text != original {
		d.ChangedLines++
	}
	d.Substitutions += line.Substitutions
	if line.Unsettled {
		d.UnsettledLines++
	}
	d.Unmapped += len(line.Unmapped)
	for _, r := range line.Unmapped {
		d.UnmappedRunes[r]++
	}
}

// Merge folds another aggregate into d.
func (d *Diagnostics) Merge(other Diagnostics) {
	if d.UnmappedRunes == nil {
		d.UnmappedRunes = make(map[rune]int)
	}
	d.Lines += other.Lines
	d.ChangedLines += other.ChangedLines
	d.Substitutions += other.Substitutions
	d.Unmapped += other.Unmapped
	d.UnsettledLines += other.UnsettledLines
	for r, n := range other.UnmappedRunes {
		d.UnmappedRunes[r] += n
	}
}

// Warnings returns one warning per distinct unmapped rune, most frequent
// first. The suggest function may be nil.
func (d Diagnostics) Warnings(suggest func(rune) string) []UnmappedCharacterWarning {
	warnings := make([]UnmappedCharacterWarning, 0, len(d.UnmappedRunes))
	for r, n := range d.UnmappedRunes {
		w := UnmappedCharacterWarning{Rune: r, Count: n}
		if suggest != nil {
			w.Suggestion = suggest(r)
		}
		warnings = append(warnings, w)
	}
	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].Count != warnings[j].Count {
			return warnings[i].Count > warnings[j].Count
		}
		return warnings[i].Rune < warnings[j].Rune
	})
	return warnings
}

// SplitStats reports what the splitter did with the record stream.
type SplitStats struct {
	Valid   int
	Skipped int
	// Errors holds the first few malformed records; Skipped is authoritative.
	Errors []MalformedRecordError
}
