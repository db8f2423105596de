package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/core/rules"
)

// ManifestName is the file name used by WriteManifest.
const ManifestName = "manifest.json"

// Manifest records what one run produced and from which table.
type Manifest struct {
	RunID      string        `json:"run_id"`
	CreatedAt  time.Time     `json:"created_at"`
	SourceLang string        `json:"source_lang,omitempty"`
	TargetLang string        `json:"target_lang"`
	Table      TableInfo     `json:"table"`
	Split      *SplitSummary `json:"split,omitempty"`
	Normalized NormalizeInfo `json:"normalized"`
	Artifacts  []Artifact    `json:"artifacts"`
}

// TableInfo identifies the substitution table in effect.
type TableInfo struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Version  string `json:"version"`
	Rules    int    `json:"rules"`
}

// SplitSummary mirrors domain.SplitStats without the per-record errors.
type SplitSummary struct {
	Valid   int `json:"valid"`
	Skipped int `json:"skipped"`
}

// NormalizeInfo mirrors domain.Diagnostics.
type NormalizeInfo struct {
	Lines         int            `json:"lines"`
	ChangedLines  int            `json:"changed_lines"`
	Substitutions int            `json:"substitutions"`
	Unmapped      int            `json:"unmapped"`
	Unsettled     int            `json:"unsettled_lines,omitempty"`
	Warnings      []UnmappedInfo `json:"unmapped_characters,omitempty"`
}

// UnmappedInfo is the JSON form of domain.UnmappedCharacterWarning.
type UnmappedInfo struct {
	Char       string `json:"char"`
	CodePoint  string `json:"code_point"`
	Count      int    `json:"count"`
	Suggestion string `json:"suggestion,omitempty"`
}

// NewManifest starts a manifest with a fresh run id.
func NewManifest(sourceLang, targetLang string, table *rules.Table) *Manifest {
	meta := table.Meta()
	return &Manifest{
		RunID:      uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Table: TableInfo{
			Name:     meta.Name,
			Language: meta.Language,
			Version:  meta.Version,
			Rules:    table.Len(),
		},
	}
}

// AddArtifact appends a produced file.
func (m *Manifest) AddArtifact(a Artifact) {
	m.Artifacts = append(m.Artifacts, a)
}

// SetSplit records splitter counters.
func (m *Manifest) SetSplit(stats domain.SplitStats) {
	m.Split = &SplitSummary{Valid: stats.Valid, Skipped: stats.Skipped}
}

// SetDiagnostics records normalizer counters. suggest may be nil.
func (m *Manifest) SetDiagnostics(d domain.Diagnostics, suggest func(rune) string) {
	m.Normalized = NormalizeInfo{
		Lines:         d.Lines,
		ChangedLines:  d.ChangedLines,
		Substitutions: d.Substitutions,
		Unmapped:      d.Unmapped,
		Unsettled:     d.UnsettledLines,
	}
	for _, w := range d.Warnings(suggest) {
		m.Normalized.Warnings = append(m.Normalized.Warnings, UnmappedInfo{
			Char:       string(w.Rune),
			CodePoint:  fmt.Sprintf("U+%04X", w.Rune),
			Count:      w.Count,
			Suggestion: w.Suggestion,
		})
	}
}

// WriteManifest stores m as indented JSON in dir and returns the path.
func WriteManifest(dir string, m *Manifest) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return &m, nil
}

// ErrChecksumMismatch is wrapped by Verify for every altered artifact.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Verify re-hashes every artifact. Paths are resolved against dir when they
// are relative. All failures are joined into the returned error.
func (m *Manifest) Verify(dir string) error {
	var errs []error
	for _, a := range m.Artifacts {
		path := a.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, filepath.Base(path))
		}
		sum, err := HashFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if sum != a.BLAKE3 {
			errs = append(errs, fmt.Errorf("%w: %s", ErrChecksumMismatch, a.Name))
		}
	}
	return errors.Join(errs...)
}
