package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/normalizer"
	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/stream/lineprocessor"
	"github.com/baditaflorin/go_corpus_normalizer/internal/config"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/checker"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/splitter"
	"github.com/baditaflorin/go_corpus_normalizer/internal/metrics"
	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
	"github.com/baditaflorin/go_corpus_normalizer/pkg/pipeline"
)

// RequestTimeout bounds the work done for a single request.
const RequestTimeout = 30 * time.Second

// NormalizeRequest is the body of POST /normalize and POST /check.
type NormalizeRequest struct {
	Lines []string `json:"lines"`
}

// WarningResponse describes one unmapped character.
type WarningResponse struct {
	Char       string `json:"char"`
	CodePoint  string `json:"code_point"`
	Count      int    `json:"count"`
	Suggestion string `json:"suggestion,omitempty"`
}

// DiagnosticsResponse carries normalization counters.
type DiagnosticsResponse struct {
	Lines         int               `json:"lines"`
	ChangedLines  int               `json:"changed_lines"`
	Substitutions int               `json:"substitutions"`
	Unmapped      int               `json:"unmapped"`
	Unsettled     int               `json:"unsettled_lines,omitempty"`
	Warnings      []WarningResponse `json:"warnings,omitempty"`
}

// NormalizeResponse is the result of POST /normalize.
type NormalizeResponse struct {
	Lines          []string            `json:"lines"`
	Diagnostics    DiagnosticsResponse `json:"diagnostics"`
	ProcessingTime string              `json:"processing_time"`
}

// CheckLineResponse lists the disallowed letters of one line.
type CheckLineResponse struct {
	Line       int      `json:"line"`
	Text       string   `json:"text"`
	Disallowed []string `json:"disallowed"`
}

// CheckResponse is the result of POST /check.
type CheckResponse struct {
	Checked     int                 `json:"checked"`
	Problematic int                 `json:"problematic"`
	Lines       []CheckLineResponse `json:"lines"`
	Counts      map[string]int      `json:"counts"`
}

// SplitResponse is the result of POST /split.
type SplitResponse struct {
	Source         []string            `json:"source"`
	Target         []string            `json:"target"`
	Normalized     []string            `json:"normalized"`
	Skipped        int                 `json:"skipped"`
	Errors         []string            `json:"errors,omitempty"`
	Diagnostics    DiagnosticsResponse `json:"diagnostics"`
	ProcessingTime string              `json:"processing_time"`
}

// RulesResponse describes the active table.
type RulesResponse struct {
	Name     string                    `json:"name"`
	Language string                    `json:"language"`
	Version  string                    `json:"version,omitempty"`
	Alphabet string                    `json:"alphabet,omitempty"`
	Rules    []domain.SubstitutionRule `json:"rules"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// server holds the shared, concurrency-safe components behind the handlers.
type server struct {
	logger     ports.Logger
	metrics    *metrics.Metrics
	table      *rules.Table
	normalizer *normalizer.SubstitutionNormalizer
	processor  *lineprocessor.Processor
	checker    *checker.Checker
	pipelines  map[splitter.Layout]*pipeline.Pipeline
	maxLines   int
	metricsH   fasthttp.RequestHandler
}

func newServer(cfg config.Config, log ports.Logger, m *metrics.Metrics) (*server, error) {
	table, err := rules.Resolve(cfg.RulesFile, cfg.TargetLang)
	if err != nil {
		return nil, err
	}
	norm, err := normalizer.NewSubstitutionNormalizer(table)
	if err != nil {
		return nil, err
	}

	s := &server{
		logger:     log,
		metrics:    m,
		table:      table,
		normalizer: norm,
		processor: lineprocessor.NewProcessor(log, norm, lineprocessor.ProcessingConfig{
			UseParallel: true,
			Workers:     cfg.Workers,
		}),
		pipelines: make(map[splitter.Layout]*pipeline.Pipeline),
		maxLines:  cfg.Server.MaxLines,
		metricsH:  fasthttpadaptor.NewFastHTTPHandler(m.Handler()),
	}

	// The checker needs an alphabet; without one /check is unavailable.
	if c, err := checker.New(table); err == nil {
		s.checker = c
	} else {
		log.Warn("Character check disabled", "table", table.Meta().Name, "error", err)
	}

	for _, layout := range []splitter.Layout{splitter.LayoutPair, splitter.LayoutTatoeba} {
		p, err := pipeline.New(
			pipeline.WithLayout(layout),
			pipeline.WithNormalizer(norm),
			pipeline.WithWorkers(cfg.Workers),
			pipeline.WithPortsLogger(log),
		)
		if err != nil {
			return nil, err
		}
		s.pipelines[layout] = p
	}
	return s, nil
}

// requestHandler is the main fasthttp request handler
func (s *server) requestHandler(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()
	requestID := string(ctx.Request.Header.Peek("X-Request-ID"))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx.SetUserValue("request_id", requestID)

	ctx.Response.Header.Set("X-Request-ID", requestID)

	// Route based on path
	endpoint := string(ctx.Path())
	switch endpoint {
	case "/health":
		s.handleHealthCheck(ctx)
	case "/normalize":
		s.handleNormalize(ctx)
	case "/check":
		s.handleCheck(ctx)
	case "/split":
		s.handleSplit(ctx)
	case "/rules":
		s.handleRules(ctx)
	case "/metrics":
		s.metricsH(ctx)
	default:
		endpoint = "other"
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		writeJSONError(ctx, "Not found")
	}

	// Log request
	duration := time.Since(startTime)
	s.metrics.ObserveRequest(endpoint, ctx.Response.StatusCode(), duration)
	s.logger.Info("Request processed",
		"request_id", requestID,
		"method", string(ctx.Method()),
		"path", string(ctx.Path()),
		"status", ctx.Response.StatusCode(),
		"ip", ctx.RemoteIP().String(),
		"duration", duration,
	)
}

// handleHealthCheck responds to health check requests
func (s *server) handleHealthCheck(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, map[string]interface{}{
		"status": "ok",
		"table":  s.table.Meta().Name,
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleRules returns the active substitution table
func (s *server) handleRules(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		writeJSONError(ctx, "Method not allowed")
		return
	}
	meta := s.table.Meta()
	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, RulesResponse{
		Name:     meta.Name,
		Language: meta.Language,
		Version:  meta.Version,
		Alphabet: meta.Alphabet,
		Rules:    s.table.Rules(),
	})
}

// handleNormalize normalizes a batch of lines
func (s *server) handleNormalize(ctx *fasthttp.RequestCtx) {
	req, ok := s.parseLines(ctx)
	if !ok {
		return
	}

	c, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()

	start := time.Now()
	lines, diag, err := s.processor.NormalizeLines(c, req.Lines)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		writeJSONError(ctx, "Normalization aborted: "+err.Error())
		return
	}
	s.metrics.ObserveDiagnostics(diag)

	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, NormalizeResponse{
		Lines:          lines,
		Diagnostics:    diagnosticsResponse(diag),
		ProcessingTime: time.Since(start).String(),
	})
}

// handleCheck reports disallowed letters per line
func (s *server) handleCheck(ctx *fasthttp.RequestCtx) {
	if s.checker == nil {
		ctx.SetStatusCode(fasthttp.StatusNotImplemented)
		writeJSONError(ctx, "The active table declares no alphabet")
		return
	}
	req, ok := s.parseLines(ctx)
	if !ok {
		return
	}

	report := s.checker.CheckLines(req.Lines)
	resp := CheckResponse{
		Checked:     report.Checked,
		Problematic: report.Problematic,
		Lines:       make([]CheckLineResponse, 0, len(report.Lines)),
		Counts:      make(map[string]int, len(report.Counts)),
	}
	for _, lr := range report.Lines {
		chars := make([]string, len(lr.Disallowed))
		for i, r := range lr.Disallowed {
			chars[i] = string(r)
		}
		resp.Lines = append(resp.Lines, CheckLineResponse{Line: lr.Line, Text: lr.Text, Disallowed: chars})
	}
	for r, n := range report.Counts {
		resp.Counts[string(r)] = n
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, resp)
}

// handleSplit splits a raw TSV body and normalizes its target side. The
// layout query argument selects "pair" (default) or "tatoeba".
func (s *server) handleSplit(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		writeJSONError(ctx, "Method not allowed")
		return
	}
	layout, err := splitter.ParseLayout(string(ctx.QueryArgs().Peek("layout")))
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeJSONError(ctx, err.Error())
		return
	}

	c, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()

	res, err := s.pipelines[layout].Run(c, bytes.NewReader(ctx.PostBody()))
	s.metrics.ObserveSplit(res.SplitStats)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCorpus) {
			ctx.SetStatusCode(fasthttp.StatusUnprocessableEntity)
		} else {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
		}
		writeJSONError(ctx, err.Error())
		return
	}
	if s.maxLines > 0 && res.Corpus.Len() > s.maxLines {
		ctx.SetStatusCode(fasthttp.StatusRequestEntityTooLarge)
		writeJSONError(ctx, fmt.Sprintf("Too many records: %d (max %d)", res.Corpus.Len(), s.maxLines))
		return
	}
	s.metrics.ObserveDiagnostics(res.Diagnostics)

	resp := SplitResponse{
		Source:         res.SourceLines(),
		Target:         res.TargetLines(),
		Normalized:     res.Normalized,
		Skipped:        res.SplitStats.Skipped,
		Diagnostics:    diagnosticsResponse(res.Diagnostics),
		ProcessingTime: res.Duration.String(),
	}
	for _, e := range res.SplitStats.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, resp)
}

// parseLines decodes a NormalizeRequest and enforces the line limit. It
// writes the error response itself when ok is false.
func (s *server) parseLines(ctx *fasthttp.RequestCtx) (req NormalizeRequest, ok bool) {
	// Only accept POST requests
	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		writeJSONError(ctx, "Method not allowed")
		return req, false
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeJSONError(ctx, "Invalid request: "+err.Error())
		return req, false
	}
	if req.Lines == nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeJSONError(ctx, "The lines field is required")
		return req, false
	}
	if s.maxLines > 0 && len(req.Lines) > s.maxLines {
		ctx.SetStatusCode(fasthttp.StatusRequestEntityTooLarge)
		writeJSONError(ctx, "Too many lines: "+strconv.Itoa(len(req.Lines)))
		return req, false
	}
	return req, true
}

func diagnosticsResponse(d domain.Diagnostics) DiagnosticsResponse {
	resp := DiagnosticsResponse{
		Lines:         d.Lines,
		ChangedLines:  d.ChangedLines,
		Substitutions: d.Substitutions,
		Unmapped:      d.Unmapped,
		Unsettled:     d.UnsettledLines,
	}
	for _, w := range d.Warnings(normalizer.Suggest) {
		resp.Warnings = append(resp.Warnings, WarningResponse{
			Char:       string(w.Rune),
			CodePoint:  fmt.Sprintf("U+%04X", w.Rune),
			Count:      w.Count,
			Suggestion: w.Suggestion,
		})
	}
	return resp
}

// Helper functions

// writeJSONResponse writes a JSON response to the context
func writeJSONResponse(ctx *fasthttp.RequestCtx, data interface{}) {
	response, err := json.Marshal(data)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		writeJSONError(ctx, "Internal server error")
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetBody(response)
}

// writeJSONError writes a JSON error response to the context
func writeJSONError(ctx *fasthttp.RequestCtx, message string) {
	errResponse := ErrorResponse{Error: message}
	if id, ok := ctx.UserValue("request_id").(string); ok {
		errResponse.RequestID = id
	}

	response, err := json.Marshal(errResponse)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"error":"Internal server error"}`)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetBody(response)
}
