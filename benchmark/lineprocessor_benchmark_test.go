package benchmark

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/stream/lineprocessor"
)

// mockLogger implements a minimal logger for benchmarks
type mockLogger struct{}

func (l *mockLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (l *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (l *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
func (l *mockLogger) Close() error                                   { return nil }

// generateLines returns lineCount sample sentences
func generateLines(lineCount int) []string {
	lines := make([]string, lineCount)
	for i := range lines {
		lines[i] = kabyleSentences[i%len(kabyleSentences)]
	}
	return lines
}

// BenchmarkNormalizeLines compares sequential and parallel batch normalization
func BenchmarkNormalizeLines(b *testing.B) {
	n := newKabyleNormalizer(b)
	configs := []struct {
		name   string
		config lineprocessor.ProcessingConfig
	}{
		{"sequential", lineprocessor.ProcessingConfig{}},
		{"parallel/batch=256", lineprocessor.ProcessingConfig{UseParallel: true}},
		{"parallel/batch=2048", lineprocessor.ProcessingConfig{UseParallel: true, BatchSize: 2048}},
	}

	for _, lineCount := range []int{1000, 50000} {
		lines := generateLines(lineCount)
		for _, cfg := range configs {
			p := lineprocessor.NewProcessor(&mockLogger{}, n, cfg.config)
			b.Run(fmt.Sprintf("lines=%d/%s", lineCount, cfg.name), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, _, err := p.NormalizeLines(context.Background(), lines); err != nil {
						b.Fatalf("normalize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkProcessLines benchmarks the streaming path reader to writer
func BenchmarkProcessLines(b *testing.B) {
	n := newKabyleNormalizer(b)
	text := strings.Join(generateLines(20000), "\n")

	for _, parallel := range []bool{false, true} {
		p := lineprocessor.NewProcessor(&mockLogger{}, n, lineprocessor.ProcessingConfig{UseParallel: parallel})
		b.Run(fmt.Sprintf("parallel=%v", parallel), func(b *testing.B) {
			b.SetBytes(int64(len(text)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, _, err := p.ProcessLines(context.Background(), strings.NewReader(text), io.Discard); err != nil {
					b.Fatalf("process: %v", err)
				}
			}
		})
	}
}
