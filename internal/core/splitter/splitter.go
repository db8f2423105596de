// Package splitter turns tab-separated sentence-pair records into an aligned
// parallel corpus.
package splitter

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
)

// Layout names the field arrangement of a record.
type Layout int

const (
	// LayoutPair is "source<TAB>target", as written by the pairing stage.
	LayoutPair Layout = iota
	// LayoutTatoeba is "srcID<TAB>source<TAB>tgtID<TAB>target", the Tatoeba
	// sentence-pairs export.
	LayoutTatoeba
)

// Fields returns how many tab-separated fields a record of this layout has.
func (l Layout) Fields() int {
	if l == LayoutTatoeba {
		return 4
	}
	return 2
}

func (l Layout) String() string {
	if l == LayoutTatoeba {
		return "tatoeba"
	}
	return "pair"
}

// ParseLayout maps a layout name to its value.
func ParseLayout(name string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pair":
		return LayoutPair, nil
	case "tatoeba":
		return LayoutTatoeba, nil
	}
	return LayoutPair, fmt.Errorf("unknown record layout %q (want pair or tatoeba)", name)
}

// PairHeader is the header line written in front of LayoutPair files.
const PairHeader = "source\ttarget"

const (
	// DefaultMaxReportedErrors caps the malformed records kept in SplitStats.
	DefaultMaxReportedErrors = 50

	// ContextCheckFrequency defines how often to check for context cancellation
	ContextCheckFrequency = 1000 // lines

	maxLineSize = 1024 * 1024
)

// Config configures a Splitter.
type Config struct {
	Layout Layout
	// Header, when set, is a first line to skip. LayoutPair files written by
	// this module start with PairHeader.
	Header string
	// SkipFirstLine drops the first line whatever it holds, for files with a
	// header of their own such as "English<TAB>Kabyle".
	SkipFirstLine bool
	// Quoted reads fields with CSV quoting ("He said ""hi"""), as written by
	// Python's csv module. Otherwise fields are taken verbatim.
	Quoted            bool
	MaxReportedErrors int
}

// Splitter implements ports.CorpusSplitter.
type Splitter struct {
	config Config
	logger ports.Logger
}

var _ ports.CorpusSplitter = (*Splitter)(nil)

// New creates a splitter.
func New(config Config, logger ports.Logger) *Splitter {
	if config.MaxReportedErrors <= 0 {
		config.MaxReportedErrors = DefaultMaxReportedErrors
	}
	return &Splitter{config: config, logger: logger}
}

// Split reads records until EOF. Malformed records are skipped and counted;
// blank lines are ignored. It returns domain.ErrEmptyCorpus when no record is
// valid, and a wrapped read error when the stream itself fails.
func (s *Splitter) Split(ctx context.Context, reader io.Reader) (domain.ParallelCorpus, domain.SplitStats, error) {
	var (
		corpus domain.ParallelCorpus
		stats  domain.SplitStats
	)

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo, ordinal := 0, 0
	for scanner.Scan() {
		lineNo++
		if lineNo%ContextCheckFrequency == 0 {
			if err := ctx.Err(); err != nil {
				return corpus, stats, err
			}
		}

		line := strings.TrimSuffix(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
			if s.config.SkipFirstLine || (s.config.Header != "" && line == s.config.Header) {
				continue
			}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		record, ok := s.parse(line, lineNo, ordinal, &stats)
		ordinal++
		if ok {
			corpus.Records = append(corpus.Records, record)
		}
	}
	if err := scanner.Err(); err != nil {
		return corpus, stats, fmt.Errorf("read records at line %d: %w", lineNo+1, err)
	}

	stats.Valid = len(corpus.Records)
	if stats.Valid == 0 {
		return corpus, stats, fmt.Errorf("%w (%d malformed records skipped)", domain.ErrEmptyCorpus, stats.Skipped)
	}

	s.logger.Info("Split corpus",
		"layout", s.config.Layout.String(),
		"pairs", stats.Valid,
		"skipped", stats.Skipped,
	)
	return corpus, stats, nil
}

// parse decomposes one record. On failure the record is counted in stats and
// ok is false.
func (s *Splitter) parse(line string, lineNo, ordinal int, stats *domain.SplitStats) (record domain.SentencePairRecord, ok bool) {
	fields, err := s.fields(line)
	if err != nil {
		s.skip(stats, domain.MalformedRecordError{
			Line:   lineNo,
			Reason: err.Error(),
		})
		return record, false
	}
	want := s.config.Layout.Fields()
	if len(fields) != want {
		s.skip(stats, domain.MalformedRecordError{
			Line:   lineNo,
			Fields: len(fields),
			Reason: fmt.Sprintf("expected %d tab-separated fields", want),
		})
		return record, false
	}

	var source, target string
	switch s.config.Layout {
	case LayoutTatoeba:
		source, target = fields[1], fields[3]
	default:
		source, target = fields[0], fields[1]
	}
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)

	if source == "" || target == "" {
		s.skip(stats, domain.MalformedRecordError{
			Line:   lineNo,
			Fields: len(fields),
			Reason: "blank source or target text",
		})
		return record, false
	}

	return domain.SentencePairRecord{
		Ordinal:    ordinal,
		SourceText: source,
		TargetText: target,
	}, true
}

func (s *Splitter) fields(line string) ([]string, error) {
	if !s.config.Quoted {
		return strings.Split(line, "\t"), nil
	}
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("invalid quoting: %w", err)
	}
	return fields, nil
}

func (s *Splitter) skip(stats *domain.SplitStats, malformed domain.MalformedRecordError) {
	stats.Skipped++
	if len(stats.Errors) < s.config.MaxReportedErrors {
		stats.Errors = append(stats.Errors, malformed)
	}
	s.logger.Debug("Skipping malformed record", "line", malformed.Line, "reason", malformed.Reason)
}
