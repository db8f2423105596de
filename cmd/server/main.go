package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/baditaflorin/l"
	"github.com/valyala/fasthttp"

	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/logger"
	"github.com/baditaflorin/go_corpus_normalizer/internal/config"
	"github.com/baditaflorin/go_corpus_normalizer/internal/metrics"
	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
	"github.com/baditaflorin/go_corpus_normalizer/internal/warmup"
)

// Default configuration
const (
	DefaultConcurrency   = 0 // 0 means use fasthttp's default
	DefaultWarmupTimeout = 5 * time.Second
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "", "Config file (YAML, JSON or TOML)")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	concurrency := flag.Int("concurrency", DefaultConcurrency, "Maximum number of concurrent requests (0 = fasthttp default)")
	warmUp := flag.Bool("warm-up", true, "Perform system warm-up on startup")
	logFile := flag.String("log-file", "", "Log file path (empty = stdout)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	// Set up logger
	log, err := createLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting corpus normalization HTTP server",
		"address", cfg.Server.Addr,
		"language", cfg.TargetLang,
		"rules_file", cfg.RulesFile,
		"read_timeout", cfg.Server.ReadTimeout,
		"write_timeout", cfg.Server.WriteTimeout,
		"max_request_size", cfg.Server.MaxBodySize,
		"max_lines", cfg.Server.MaxLines,
	)

	srv, err := newServer(cfg, log, metrics.New())
	if err != nil {
		log.Error("Failed to initialize normalizer", "error", err)
		os.Exit(1)
	}
	if *warmUp {
		warmUpServer(srv, log)
	}

	// Create HTTP server with fasthttp
	server := &fasthttp.Server{
		Name:                  "CorpusNormalizer",
		Handler:               srv.requestHandler,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		MaxRequestBodySize:    cfg.Server.MaxBodySize,
		Concurrency:           *concurrency,
		TCPKeepalive:          true,
		TCPKeepalivePeriod:    3 * time.Minute,
		MaxIdleWorkerDuration: 10 * time.Second,
	}

	// Set up graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down server...")
		if err := server.Shutdown(); err != nil {
			log.Error("Error during server shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	log.Info("Server listening", "address", cfg.Server.Addr, "cpus", runtime.NumCPU())
	if err := server.ListenAndServe(cfg.Server.Addr); err != nil {
		log.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-idleConnsClosed
	log.Info("Server stopped")
}

// warmUpServer exercises the normalizer and line processor before the first
// request arrives.
func warmUpServer(srv *server, log ports.Logger) {
	wcfg := warmup.DefaultWarmupConfig()
	wcfg.Duration = DefaultWarmupTimeout

	manager := warmup.NewManager(log, wcfg)
	manager.RegisterNormalizer(srv.normalizer)
	manager.RegisterLineProcessor(srv.processor)
	manager.WarmUp(context.Background())
}

// createLogger creates and configures a logger. The server always logs JSON.
func createLogger(cfg config.LogConfig) (ports.Logger, error) {
	return logger.NewCustomStdLogger(logger.Options{
		Output:   os.Stdout,
		FilePath: cfg.File,
		JSON:     true,
		Level:    l.ParseLevel(cfg.Level),
	})
}
