package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/normalizer"
	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/storage"
	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/tatoeba"
	"github.com/baditaflorin/go_corpus_normalizer/internal/config"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/splitter"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/stopwords"
	"github.com/baditaflorin/go_corpus_normalizer/pkg/pipeline"
)

// OutputFlags select where corpus files go.
type OutputFlags struct {
	OutputDir string `name:"output-dir" short:"o" help:"Output directory" type:"path"`
	Compress  bool   `help:"xz-compress the written files"`
	ExportDB  string `name:"export-db" help:"Also export the aligned corpus to this SQLite database" type:"path"`
}

func (f OutputFlags) apply(cfg *config.Config) {
	if f.OutputDir != "" {
		cfg.OutputDir = f.OutputDir
	}
	if f.Compress {
		cfg.Compress = true
	}
	if f.ExportDB != "" {
		cfg.ExportDB = f.ExportDB
	}
}

// FetchCmd downloads the exports and builds the corpus from scratch.
type FetchCmd struct {
	OutputFlags
	CacheDir string `name:"cache-dir" help:"Where the export archives are kept between runs" type:"path"`
}

func (c *FetchCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	c.apply(&a.cfg)
	if c.CacheDir != "" {
		a.cfg.CacheDir = c.CacheDir
	}

	sentences := filepath.Join(a.cfg.CacheDir, tatoeba.SentencesArchive)
	links := filepath.Join(a.cfg.CacheDir, tatoeba.LinksArchive)
	dl := tatoeba.NewDownloader(a.log)
	for _, f := range []struct{ url, path string }{
		{a.cfg.SentencesURL, sentences},
		{a.cfg.LinksURL, links},
	} {
		downloaded, err := dl.Download(ctx, f.url, f.path)
		if err != nil {
			return err
		}
		if !downloaded {
			a.printf("%s is up to date, download skipped.\n", f.path)
		}
	}

	fw, err := storage.NewFileWriter(a.cfg.OutputDir, a.cfg.Compress, a.log)
	if err != nil {
		return err
	}
	manifest := storage.NewManifest(a.cfg.SourceLang, a.cfg.TargetLang, a.table())

	pairs, err := a.pairArchives(ctx, fw, sentences, links)
	if err != nil {
		return err
	}
	manifest.AddArtifact(pairs)

	return a.buildCorpus(ctx, fw, manifest, pairs.Path, pipeline.WithLayout(splitter.LayoutPair))
}

// pairArchives writes the sentence-pairs file from the two export archives.
func (a *app) pairArchives(ctx context.Context, fw *storage.FileWriter, sentences, links string) (storage.Artifact, error) {
	src, tgt := a.cfg.SourceLang, a.cfg.TargetLang
	aw, err := fw.Create(fmt.Sprintf("%s_%s_sentence_pairs.tsv", src, tgt))
	if err != nil {
		return storage.Artifact{}, err
	}
	stats, err := tatoeba.NewPairer(sentences, links, a.log).Pair(ctx, src, tgt, aw)
	if err != nil {
		aw.Abort()
		return storage.Artifact{}, err
	}
	artifact, err := aw.Commit()
	if err != nil {
		return storage.Artifact{}, err
	}
	a.printf("Found %d %s sentences, %d %s candidates, wrote %d pairs (%d duplicates skipped) to %s.\n",
		stats.TargetSentences, tgt, stats.SourceSentences, src, stats.Pairs, stats.Duplicates, artifact.Path)
	return artifact, nil
}

// SplitCmd builds the corpus from a sentence-pairs file already on disk.
type SplitCmd struct {
	OutputFlags
	Input      string `arg:"" help:"Sentence-pairs TSV file, optionally .xz compressed" type:"existingfile"`
	Layout     string `help:"Record layout (pair: source<TAB>target, tatoeba: id<TAB>source<TAB>id<TAB>target). Fields are read verbatim unless --quoted is set." enum:"pair,tatoeba" default:"pair"`
	SkipHeader bool   `name:"skip-header" help:"Drop the first line, e.g. an English<TAB>Kabyle header. A source<TAB>target header is always skipped."`
	Quoted     bool   `help:"Fields use CSV quoting with doubled inner quotes, as written by the Python csv module"`
}

func (c *SplitCmd) Run(g *Globals, ctx context.Context) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	c.apply(&a.cfg)

	layout, err := splitter.ParseLayout(c.Layout)
	if err != nil {
		return err
	}
	fw, err := storage.NewFileWriter(a.cfg.OutputDir, a.cfg.Compress, a.log)
	if err != nil {
		return err
	}
	manifest := storage.NewManifest(a.cfg.SourceLang, a.cfg.TargetLang, a.table())

	opts := []pipeline.Option{pipeline.WithLayout(layout)}
	if c.SkipHeader {
		opts = append(opts, pipeline.WithSkipHeader())
	}
	if c.Quoted {
		opts = append(opts, pipeline.WithQuotedFields())
	}
	return a.buildCorpus(ctx, fw, manifest, c.Input, opts...)
}

// buildCorpus splits the pairs file, normalizes the target side and writes
// every per-language file, the stopword list and the manifest.
func (a *app) buildCorpus(ctx context.Context, fw *storage.FileWriter, manifest *storage.Manifest, pairsPath string, opts ...pipeline.Option) error {
	in, err := storage.Open(pairsPath)
	if err != nil {
		return err
	}
	defer in.Close()

	p, err := pipeline.New(append(opts,
		pipeline.WithNormalizer(a.norm),
		pipeline.WithWorkers(a.cfg.Workers),
		pipeline.WithPortsLogger(a.log),
	)...)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx, in)
	if err != nil {
		return fmt.Errorf("%s: %w", pairsPath, err)
	}
	manifest.SetSplit(res.SplitStats)
	manifest.SetDiagnostics(res.Diagnostics, normalizer.Suggest)

	src, tgt := a.cfg.SourceLang, a.cfg.TargetLang
	outputs := []struct {
		name  string
		lines []string
	}{
		{src + ".txt", res.SourceLines()},
		{tgt + ".txt", res.TargetLines()},
		{tgt + "_fixed.txt", res.Normalized},
	}
	for _, o := range outputs {
		artifact, err := fw.WriteLines(o.name, o.lines)
		if err != nil {
			return err
		}
		manifest.AddArtifact(artifact)
	}

	if words, err := a.stopwordsFrom(ctx, res.Normalized); err != nil {
		a.log.Warn("Stopword list skipped", "error", err)
	} else {
		artifact, err := fw.WriteLines(tgt+"_stopwords.txt", stopwords.Texts(words))
		if err != nil {
			return err
		}
		manifest.AddArtifact(artifact)
	}

	if a.cfg.ExportDB != "" {
		n, err := storage.NewSQLiteExporter(a.log).Export(ctx, a.cfg.ExportDB, res.Corpus, res.Normalized)
		if err != nil {
			return err
		}
		a.printf("Exported %d pairs to %s.\n", n, a.cfg.ExportDB)
	}

	path, err := storage.WriteManifest(fw.Dir(), manifest)
	if err != nil {
		return err
	}

	a.printf("Split %d pairs (%d malformed records skipped).\n", res.Corpus.Len(), res.SplitStats.Skipped)
	for _, e := range res.SplitStats.Errors {
		a.printf("  %v\n", e)
	}
	a.printf("Normalized %s: %d of %d lines changed, %d substitutions.\n",
		tgt, res.Diagnostics.ChangedLines, res.Diagnostics.Lines, res.Diagnostics.Substitutions)
	a.printWarnings(res.Warnings())
	a.printf("Files written to %s (manifest %s).\n", fw.Dir(), path)
	return nil
}

func (a *app) stopwordsFrom(ctx context.Context, lines []string) ([]stopwords.Word, error) {
	b, err := stopwords.New(a.table(), a.cfg.Stopwords.Builder())
	if err != nil {
		return nil, err
	}
	return b.Build(ctx, strings.NewReader(strings.Join(lines, "\n")))
}

// VerifyCmd re-hashes the files listed in a manifest.
type VerifyCmd struct {
	Dir string `arg:"" optional:"" help:"Output directory holding manifest.json" type:"existingdir"`
}

func (c *VerifyCmd) Run(g *Globals) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	dir := c.Dir
	if dir == "" {
		dir = cfg.OutputDir
	}

	manifest, err := storage.ReadManifest(filepath.Join(dir, storage.ManifestName))
	if err != nil {
		return err
	}
	if err := manifest.Verify(dir); err != nil {
		return err
	}
	out := g.writer()
	fmt.Fprintf(out, "Run %s: %d files verified.\n", manifest.RunID, len(manifest.Artifacts))
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	fmt.Fprintf(g.writer(), "corpus %s\n", version)
	return nil
}
