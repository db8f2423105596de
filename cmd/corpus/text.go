package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/normalizer"
	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/storage"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/checker"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/stopwords"
)

// FixCmd normalizes a text file line by line.
type FixCmd struct {
	Input string `arg:"" help:"Text file, one sentence per line" type:"existingfile"`
	Out   string `short:"o" help:"Output file (default: <input>_fixed.<ext>)" type:"path"`
}

func (c *FixCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.fixFile(ctx, c.Input, c.Out)
	return err
}

// fixedName derives the default output of fix: kab.txt becomes kab_fixed.txt,
// a name without extension gets _fixed.txt.
func fixedName(input string) string {
	ext := filepath.Ext(input)
	if ext == "" || ext == filepath.Base(input) {
		return input + "_fixed.txt"
	}
	return strings.TrimSuffix(input, ext) + "_fixed" + ext
}

// fixFile streams input through the normalizer into output, which replaces
// any existing file only once complete.
func (a *app) fixFile(ctx context.Context, input, output string) (domain.Diagnostics, error) {
	if output == "" {
		output = fixedName(input)
	}
	in, err := os.Open(input)
	if err != nil {
		return domain.Diagnostics{}, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	fw, err := storage.NewFileWriter(filepath.Dir(output), false, a.log)
	if err != nil {
		return domain.Diagnostics{}, err
	}
	aw, err := fw.Create(filepath.Base(output))
	if err != nil {
		return domain.Diagnostics{}, err
	}
	diag, _, err := a.processor().ProcessLines(ctx, in, aw)
	if err != nil {
		aw.Abort()
		return diag, err
	}
	artifact, err := aw.Commit()
	if err != nil {
		return diag, err
	}

	a.printf("Fixed %d lines. Corrected file saved as '%s'.\n", diag.ChangedLines, artifact.Path)
	a.printWarnings(diag.Warnings(normalizer.Suggest))
	return diag, nil
}

func (a *app) printWarnings(warnings []domain.UnmappedCharacterWarning) {
	if len(warnings) == 0 {
		return
	}
	a.printf("%d unmapped character(s) left untouched:\n", len(warnings))
	for _, w := range warnings {
		a.printf("  %s\n", w)
	}
}

// CheckCmd lists lines holding letters outside the table's alphabet.
type CheckCmd struct {
	Input       string `arg:"" help:"Text file, one sentence per line" type:"existingfile"`
	Fix         bool   `help:"Also write a normalized copy of the file"`
	FixedOutput string `name:"fixed-output" help:"Output file for --fix (default: <input>_fixed.<ext>)" type:"path"`
	Quiet       bool   `short:"q" help:"Print totals only"`
}

func (c *CheckCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	chk, err := checker.New(a.table())
	if err != nil {
		return fmt.Errorf("table %s: %w", a.table().Meta().Name, err)
	}
	in, err := os.Open(c.Input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	report, err := chk.Check(ctx, in)
	in.Close()
	if err != nil {
		return err
	}

	if !c.Quiet {
		for _, lr := range report.Lines {
			chars := make([]string, len(lr.Disallowed))
			for i, r := range lr.Disallowed {
				chars[i] = string(r)
			}
			a.printf("Line %d: %s\n  Disallowed characters: %s\n\n", lr.Line, lr.Text, strings.Join(chars, ", "))
		}
	}
	a.printf("Checked %d sentences. Found %d sentence(s) with disallowed characters.\n", report.Checked, report.Problematic)
	a.printCounts(report.Counts)

	if c.Fix {
		if _, err := a.fixFile(ctx, c.Input, c.FixedOutput); err != nil {
			return err
		}
	}
	return nil
}

// printCounts lists disallowed letters by frequency, noting whether the
// table rewrites them.
func (a *app) printCounts(counts map[rune]int) {
	if len(counts) == 0 {
		return
	}
	chars := make([]rune, 0, len(counts))
	for r := range counts {
		chars = append(chars, r)
	}
	sort.Slice(chars, func(i, j int) bool {
		if counts[chars[i]] != counts[chars[j]] {
			return counts[chars[i]] > counts[chars[j]]
		}
		return chars[i] < chars[j]
	})

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHAR\tCODE\tCOUNT\tFIX")
	for _, r := range chars {
		fix := "-"
		if out := a.norm.Normalize(string(r)); out != string(r) {
			fix = out
		} else if s := normalizer.Suggest(r); s != "" {
			fix = "? " + s
		}
		fmt.Fprintf(tw, "%c\tU+%04X\t%d\t%s\n", r, r, counts[r], fix)
	}
	tw.Flush()
}

// StopwordsCmd builds a frequency-based stopword list.
type StopwordsCmd struct {
	Input     string  `arg:"" help:"Text file, normally the normalized target side" type:"existingfile"`
	Out       string  `arg:"" optional:"" help:"Output file (default: <target-lang>_stopwords.txt next to the input)" type:"path"`
	Top       int     `help:"How many of the most frequent stopwords to print" default:"20"`
	RelCutoff float64 `name:"rel-cutoff" help:"Minimum relative frequency (negative = configured value)" default:"-1"`
	MinCount  int     `name:"min-count" help:"Minimum absolute count (negative = configured value)" default:"-1"`
	MaxWords  int     `name:"max-words" help:"Maximum list size (negative = configured value)" default:"-1"`
}

func (c *StopwordsCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg.Stopwords.Builder()
	if c.RelCutoff >= 0 {
		cfg.RelCutoff = c.RelCutoff
	}
	if c.MinCount >= 0 {
		cfg.MinCount = c.MinCount
	}
	if c.MaxWords >= 0 {
		cfg.MaxWords = c.MaxWords
	}
	b, err := stopwords.New(a.table(), cfg)
	if err != nil {
		return err
	}

	in, err := os.Open(c.Input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()
	words, err := b.Build(ctx, in)
	if err != nil {
		return err
	}

	out := c.Out
	if out == "" {
		out = filepath.Join(filepath.Dir(c.Input), a.cfg.TargetLang+"_stopwords.txt")
	}
	fw, err := storage.NewFileWriter(filepath.Dir(out), false, a.log)
	if err != nil {
		return err
	}
	artifact, err := fw.WriteLines(filepath.Base(out), stopwords.Texts(words))
	if err != nil {
		return err
	}

	a.printf("Generated %d stopwords in '%s'.\n", len(words), artifact.Path)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for i, w := range words {
		if i == c.Top {
			break
		}
		fmt.Fprintf(tw, "%s\t%d\t%.4f\n", w.Text, w.Count, w.Frequency)
	}
	return tw.Flush()
}

// RulesCmd prints the substitution table in effect.
type RulesCmd struct {
	Languages bool `help:"List the languages with a built-in table instead"`
}

func (c *RulesCmd) Run(g *Globals) error {
	out := g.writer()
	if c.Languages {
		for _, lang := range rules.Languages() {
			fmt.Fprintln(out, lang)
		}
		return nil
	}

	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	meta := a.table().Meta()
	a.printf("%s (language %s, version %s)\n", meta.Name, meta.Language, meta.Version)
	if meta.Alphabet != "" {
		a.printf("Alphabet: %s\n", meta.Alphabet)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, r := range a.table().Rules() {
		fmt.Fprintf(tw, "%s\t->\t%s\t%s\n", r.Pattern, r.Replacement, r.Note)
	}
	return tw.Flush()
}
