// Package config loads application settings from defaults, an optional
// config file, a .env file and CORPUS_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/tatoeba"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/stopwords"
)

// EnvPrefix prefixes every environment variable, e.g. CORPUS_TARGET_LANG.
const EnvPrefix = "CORPUS"

// Config is the full application configuration.
type Config struct {
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`
	// RulesFile overrides the built-in table for TargetLang.
	RulesFile string `mapstructure:"rules_file"`
	OutputDir string `mapstructure:"output_dir"`
	// CacheDir holds downloaded export archives between runs.
	CacheDir     string `mapstructure:"cache_dir"`
	SentencesURL string `mapstructure:"sentences_url"`
	LinksURL     string `mapstructure:"links_url"`
	Compress     bool   `mapstructure:"compress"`
	// ExportDB, when set, is a SQLite database receiving the aligned corpus.
	ExportDB string `mapstructure:"export_db"`
	Workers  int    `mapstructure:"workers"`

	Log       LogConfig       `mapstructure:"log"`
	Stopwords StopwordsConfig `mapstructure:"stopwords"`
	Server    ServerConfig    `mapstructure:"server"`
}

// LogConfig selects logger output.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	File  string `mapstructure:"file"`
}

// StopwordsConfig mirrors stopwords.Config.
type StopwordsConfig struct {
	RelCutoff float64  `mapstructure:"rel_cutoff"`
	MinCount  int      `mapstructure:"min_count"`
	MaxWords  int      `mapstructure:"max_words"`
	Exclude   []string `mapstructure:"exclude"`
}

// ServerConfig configures cmd/server.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodySize  int           `mapstructure:"max_body_size"`
	MaxLines     int           `mapstructure:"max_lines"`
}

// Builder converts the section into a stopwords.Config.
func (s StopwordsConfig) Builder() stopwords.Config {
	return stopwords.Config{
		RelCutoff: s.RelCutoff,
		MinCount:  s.MinCount,
		MaxWords:  s.MaxWords,
		Exclude:   s.Exclude,
	}
}

// Default returns the built-in configuration.
func Default() Config {
	sw := stopwords.DefaultConfig()
	return Config{
		SourceLang:   "eng",
		TargetLang:   "kab",
		OutputDir:    "corpus",
		CacheDir:     ".",
		SentencesURL: tatoeba.SentencesURL,
		LinksURL:     tatoeba.LinksURL,
		Log:          LogConfig{Level: "info"},
		Stopwords: StopwordsConfig{
			RelCutoff: sw.RelCutoff,
			MinCount:  sw.MinCount,
			MaxWords:  sw.MaxWords,
			Exclude:   sw.Exclude,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			MaxBodySize:  16 * 1024 * 1024,
			MaxLines:     100000,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("source_lang", d.SourceLang)
	v.SetDefault("target_lang", d.TargetLang)
	v.SetDefault("rules_file", d.RulesFile)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("sentences_url", d.SentencesURL)
	v.SetDefault("links_url", d.LinksURL)
	v.SetDefault("compress", d.Compress)
	v.SetDefault("export_db", d.ExportDB)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("stopwords.rel_cutoff", d.Stopwords.RelCutoff)
	v.SetDefault("stopwords.min_count", d.Stopwords.MinCount)
	v.SetDefault("stopwords.max_words", d.Stopwords.MaxWords)
	v.SetDefault("stopwords.exclude", d.Stopwords.Exclude)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	v.SetDefault("server.max_lines", d.Server.MaxLines)
}

// Load reads configFile (YAML, JSON or TOML, by extension) when non-empty.
// Variables from envFiles, or ./.env when none are given, are exported first
// without overriding the real environment; a missing .env is not an error.
func Load(configFile string, envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.TargetLang == "" && c.RulesFile == "" {
		errs = append(errs, errors.New("target_lang or rules_file is required"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.Stopwords.RelCutoff < 0 || c.Stopwords.RelCutoff > 1 {
		errs = append(errs, fmt.Errorf("stopwords.rel_cutoff must be within [0,1], got %v", c.Stopwords.RelCutoff))
	}
	if c.Stopwords.MinCount < 0 || c.Stopwords.MaxWords < 0 {
		errs = append(errs, errors.New("stopwords thresholds must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, errors.New("server.max_body_size must be positive"))
	}
	return errors.Join(errs...)
}
