package main

import (
	"fmt"
	"io"
	"os"

	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/logger"
	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/normalizer"
	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/stream/lineprocessor"
	"github.com/baditaflorin/go_corpus_normalizer/internal/config"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
	"github.com/baditaflorin/l"
)

// Globals are flags shared by every command. Flags left at their zero value
// keep the configured setting.
type Globals struct {
	Config     string `help:"Config file (YAML, JSON or TOML)" type:"path"`
	Rules      string `help:"Substitution table file, overrides the built-in table" type:"path"`
	SourceLang string `name:"source-lang" help:"Source language code"`
	TargetLang string `name:"target-lang" help:"Target language code, selects the built-in table"`
	LogLevel   string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogJSON    bool   `name:"log-json" help:"Log in JSON format"`
	LogFile    string `name:"log-file" help:"Append logs to this file instead of stderr" type:"path"`
	Workers    int    `help:"Normalization workers (0 = one per CPU, -1 = configured value)" default:"-1"`

	out io.Writer
}

// app is the per-invocation environment built from Globals.
type app struct {
	cfg  config.Config
	log  ports.Logger
	out  io.Writer
	norm *normalizer.SubstitutionNormalizer
}

func (g *Globals) settings() (config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return cfg, err
	}
	if g.Rules != "" {
		cfg.RulesFile = g.Rules
	}
	if g.SourceLang != "" {
		cfg.SourceLang = g.SourceLang
	}
	if g.TargetLang != "" {
		cfg.TargetLang = g.TargetLang
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogJSON {
		cfg.Log.JSON = true
	}
	if g.LogFile != "" {
		cfg.Log.File = g.LogFile
	}
	if g.Workers >= 0 {
		cfg.Workers = g.Workers
	}
	return cfg, cfg.Validate()
}

// open loads settings, the logger and the normalizer. Callers must Close the
// returned app.
func (g *Globals) open() (*app, error) {
	cfg, err := g.settings()
	if err != nil {
		return nil, err
	}
	log, err := createLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	norm, err := normalizer.NewNormalizerFactory().CreateNormalizer(cfg.RulesFile, cfg.TargetLang)
	if err != nil {
		log.Close()
		return nil, err
	}
	log.Debug("Loaded substitution table",
		"table", norm.Table().Meta().Name,
		"rules", norm.Table().Len(),
	)

	return &app{cfg: cfg, log: log, out: g.writer(), norm: norm}, nil
}

func (g *Globals) writer() io.Writer {
	if g.out == nil {
		return os.Stdout
	}
	return g.out
}

func (a *app) Close() error {
	return a.log.Close()
}

func (a *app) table() *rules.Table {
	return a.norm.Table()
}

func (a *app) processor() *lineprocessor.Processor {
	return lineprocessor.NewProcessor(a.log, a.norm, lineprocessor.ProcessingConfig{
		UseParallel: true,
		Workers:     a.cfg.Workers,
	})
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

// createLogger logs text to stderr unless configured otherwise.
func createLogger(cfg config.LogConfig) (ports.Logger, error) {
	return logger.NewCustomStdLogger(logger.Options{
		Output:   os.Stderr,
		FilePath: cfg.File,
		JSON:     cfg.JSON,
		Level:    l.ParseLevel(cfg.Level),
	})
}
