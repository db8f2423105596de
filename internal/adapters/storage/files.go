// Package storage writes corpus artifacts to disk: plain or xz-compressed
// line files with BLAKE3 checksums, a JSON run manifest and a SQLite export.
package storage

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
)

// CompressedExt is appended to artifact names when compression is on.
const CompressedExt = ".xz"

// Artifact describes one file written by a FileWriter.
type Artifact struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Lines int    `json:"lines"`
	// Bytes and BLAKE3 describe the file as stored, after compression.
	Bytes      int64  `json:"bytes"`
	BLAKE3     string `json:"blake3"`
	Compressed bool   `json:"compressed,omitempty"`
}

// FileWriter creates artifacts inside one output directory.
type FileWriter struct {
	dir      string
	compress bool
	logger   ports.Logger
}

// NewFileWriter creates dir if needed.
func NewFileWriter(dir string, compress bool, logger ports.Logger) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileWriter{dir: dir, compress: compress, logger: logger}, nil
}

// Dir returns the output directory.
func (w *FileWriter) Dir() string { return w.dir }

// Path returns where the artifact called name is stored.
func (w *FileWriter) Path(name string) string {
	if w.compress {
		name += CompressedExt
	}
	return filepath.Join(w.dir, name)
}

// WriteLines stores lines, one per line, each terminated by "\n".
func (w *FileWriter) WriteLines(name string, lines []string) (Artifact, error) {
	aw, err := w.Create(name)
	if err != nil {
		return Artifact{}, err
	}
	buf := bufio.NewWriter(aw)
	for _, line := range lines {
		if _, err := buf.WriteString(line); err != nil {
			aw.Abort()
			return Artifact{}, fmt.Errorf("write %s: %w", name, err)
		}
		if err := buf.WriteByte('\n'); err != nil {
			aw.Abort()
			return Artifact{}, fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := buf.Flush(); err != nil {
		aw.Abort()
		return Artifact{}, fmt.Errorf("write %s: %w", name, err)
	}
	return aw.Commit()
}

// Create opens a streaming artifact. Content becomes visible under its final
// name only after Commit.
func (w *FileWriter) Create(name string) (*ArtifactWriter, error) {
	final := w.Path(name)
	tmp, err := os.CreateTemp(w.dir, filepath.Base(final)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	aw := &ArtifactWriter{
		name:   name,
		final:  final,
		file:   tmp,
		hasher: blake3.New(),
		logger: w.logger,
	}
	aw.disk = &countingWriter{w: io.MultiWriter(tmp, aw.hasher)}
	aw.sink = aw.disk
	if w.compress {
		xw, err := xz.NewWriter(aw.disk)
		if err != nil {
			aw.Abort()
			return nil, fmt.Errorf("create xz stream for %s: %w", name, err)
		}
		aw.xz = xw
		aw.sink = xw
	}
	return aw, nil
}

// ArtifactWriter counts lines and hashes the stored bytes while writing.
type ArtifactWriter struct {
	name   string
	final  string
	file   *os.File
	hasher hash.Hash
	disk   *countingWriter
	xz     *xz.Writer
	sink   io.Writer
	lines  int
	logger ports.Logger
}

// Write implements io.Writer.
func (a *ArtifactWriter) Write(p []byte) (int, error) {
	n, err := a.sink.Write(p)
	for _, b := range p[:n] {
		if b == '\n' {
			a.lines++
		}
	}
	return n, err
}

// Commit finishes the file, moves it to its final name and describes it.
func (a *ArtifactWriter) Commit() (Artifact, error) {
	if a.xz != nil {
		if err := a.xz.Close(); err != nil {
			a.Abort()
			return Artifact{}, fmt.Errorf("finish xz stream for %s: %w", a.name, err)
		}
	}
	if err := a.file.Close(); err != nil {
		os.Remove(a.file.Name())
		return Artifact{}, fmt.Errorf("close %s: %w", a.name, err)
	}
	if err := os.Rename(a.file.Name(), a.final); err != nil {
		os.Remove(a.file.Name())
		return Artifact{}, fmt.Errorf("rename %s: %w", a.name, err)
	}

	artifact := Artifact{
		Name:       a.name,
		Path:       a.final,
		Lines:      a.lines,
		Bytes:      a.disk.n,
		BLAKE3:     hex.EncodeToString(a.hasher.Sum(nil)),
		Compressed: a.xz != nil,
	}
	a.logger.Debug("Wrote artifact",
		"path", artifact.Path,
		"lines", artifact.Lines,
		"bytes", artifact.Bytes,
	)
	return artifact, nil
}

// Abort discards the partial file.
func (a *ArtifactWriter) Abort() {
	a.file.Close()
	os.Remove(a.file.Name())
}

// Open reads a line file written by a FileWriter, or any other text file.
// Names ending in CompressedExt are decompressed.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !strings.HasSuffix(path, CompressedExt) {
		return file, nil
	}
	xr, err := xz.NewReader(bufio.NewReader(file))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open xz stream %s: %w", path, err)
	}
	return &readCloser{Reader: xr, closer: file}, nil
}

// HashFile returns the hex BLAKE3 digest of the file at path.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	h := blake3.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (r *readCloser) Close() error { return r.closer.Close() }
