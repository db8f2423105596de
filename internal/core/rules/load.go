package rules

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
)

//go:embed tables/*.yaml
var builtinTables embed.FS

// File is the on-disk form of a table.
type File struct {
	Name         string                    `yaml:"name"`
	Language     string                    `yaml:"language"`
	Version      string                    `yaml:"version"`
	Alphabet     string                    `yaml:"alphabet"`
	WordAlphabet string                    `yaml:"word_alphabet,omitempty"`
	Rules        []domain.SubstitutionRule `yaml:"rules"`
}

// Load decodes a YAML table and validates it. Unknown keys are rejected.
func Load(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty table file", ErrInvalidTable)
		}
		return nil, fmt.Errorf("decode table: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("%w: table %q has no rules", ErrInvalidTable, f.Name)
	}

	return NewTable(Meta{
		Name:         f.Name,
		Language:     f.Language,
		Version:      f.Version,
		Alphabet:     f.Alphabet,
		WordAlphabet: f.WordAlphabet,
	}, f.Rules)
}

// LoadFile reads a YAML table from disk.
func LoadFile(filename string) (*Table, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer file.Close()

	t, err := Load(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return t, nil
}

// Builtin returns the embedded table for an ISO 639-3 language code.
func Builtin(language string) (*Table, error) {
	name := path.Join("tables", strings.ToLower(language)+".yaml")
	file, err := builtinTables.Open(name)
	if err != nil {
		return nil, fmt.Errorf("no built-in table for language %q (have %s)",
			language, strings.Join(Languages(), ", "))
	}
	defer file.Close()
	return Load(file)
}

// Languages lists the language codes with an embedded table.
func Languages() []string {
	entries, err := fs.ReadDir(builtinTables, "tables")
	if err != nil {
		return nil
	}
	langs := make([]string, 0, len(entries))
	for _, e := range entries {
		if lang, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}

// Resolve picks the table to use: an explicit file wins over the built-in
// table for language.
func Resolve(filename, language string) (*Table, error) {
	if filename != "" {
		return LoadFile(filename)
	}
	return Builtin(language)
}
