package tatoeba

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/splitter"
	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
)

// PairStats summarises one pairing run.
type PairStats struct {
	TargetSentences int
	Candidates      int
	SourceSentences int
	Pairs           int
	Duplicates      int
}

// Pairer joins the sentences and links exports into source/target pairs.
type Pairer struct {
	sentences string
	links     string
	logger    ports.Logger
}

// NewPairer creates a pairer over two archive paths.
func NewPairer(sentencesArchive, linksArchive string, logger ports.Logger) *Pairer {
	return &Pairer{sentences: sentencesArchive, links: linksArchive, logger: logger}
}

// Pair writes every linked (source, target) pair to w as splitter.LayoutPair
// records behind a splitter.PairHeader line. A pair of ids is written once,
// whichever direction the links list it in.
func (p *Pairer) Pair(ctx context.Context, sourceLang, targetLang string, w io.Writer) (PairStats, error) {
	var stats PairStats

	target, err := p.sentenceDict(ctx, targetLang, nil)
	if err != nil {
		return stats, err
	}
	stats.TargetSentences = len(target)
	p.logger.Info("Loaded target sentences", "lang", targetLang, "count", len(target))

	candidates := make(map[string]struct{})
	err = IterLinks(ctx, p.links, func(l Link) error {
		_, fromTarget := target[l.From]
		_, toTarget := target[l.To]
		switch {
		case fromTarget && !toTarget:
			candidates[l.To] = struct{}{}
		case toTarget && !fromTarget:
			candidates[l.From] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("collect candidate ids: %w", err)
	}
	stats.Candidates = len(candidates)
	p.logger.Info("Collected candidate ids", "lang", sourceLang, "count", len(candidates))

	source, err := p.sentenceDict(ctx, sourceLang, candidates)
	if err != nil {
		return stats, err
	}
	stats.SourceSentences = len(source)
	p.logger.Info("Loaded source sentences", "lang", sourceLang, "count", len(source))

	out := bufio.NewWriter(w)
	if _, err := out.WriteString(splitter.PairHeader + "\n"); err != nil {
		return stats, fmt.Errorf("write pairs: %w", err)
	}

	seen := make(map[[2]string]struct{})
	err = IterLinks(ctx, p.links, func(l Link) error {
		srcID, tgtID := l.From, l.To
		if _, ok := source[srcID]; !ok {
			srcID, tgtID = l.To, l.From
		}
		srcText, okSrc := source[srcID]
		tgtText, okTgt := target[tgtID]
		if !okSrc || !okTgt {
			return nil
		}

		key := pairKey(srcID, tgtID)
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			return nil
		}
		seen[key] = struct{}{}

		stats.Pairs++
		_, err := out.WriteString(field(srcText) + "\t" + field(tgtText) + "\n")
		return err
	})
	if err != nil {
		return stats, fmt.Errorf("write pairs: %w", err)
	}
	if err := out.Flush(); err != nil {
		return stats, fmt.Errorf("write pairs: %w", err)
	}

	p.logger.Info("Paired sentences",
		"source", sourceLang,
		"target", targetLang,
		"pairs", stats.Pairs,
		"duplicates", stats.Duplicates,
	)
	return stats, nil
}

// sentenceDict maps id to text for lang. A nil only set keeps every id.
func (p *Pairer) sentenceDict(ctx context.Context, lang string, only map[string]struct{}) (map[string]string, error) {
	dict := make(map[string]string)
	err := IterSentences(ctx, p.sentences, func(s Sentence) error {
		if s.Lang != lang {
			return nil
		}
		if only != nil {
			if _, ok := only[s.ID]; !ok {
				return nil
			}
		}
		dict[s.ID] = s.Text
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s sentences: %w", lang, err)
	}
	return dict, nil
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

var fieldReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// field keeps a sentence on one record line.
func field(s string) string {
	return fieldReplacer.Replace(s)
}
