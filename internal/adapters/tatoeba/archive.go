// Package tatoeba reads the Tatoeba sentence and link exports and joins them
// into aligned sentence pairs.
package tatoeba

import (
	"archive/tar"
	"bufio"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ulikunitz/xz"
)

// Export locations published at https://tatoeba.org/en/downloads.
const (
	SentencesURL = "https://downloads.tatoeba.org/exports/sentences.tar.bz2"
	LinksURL     = "https://downloads.tatoeba.org/exports/links.tar.bz2"

	SentencesArchive = "sentences.tar.bz2"
	LinksArchive     = "links.tar.bz2"
)

const (
	sentencesMember = "sentences"
	linksMember     = "links"

	maxRecordSize = 1024 * 1024

	// ContextCheckFrequency defines how often to check for context cancellation
	ContextCheckFrequency = 10000 // lines
)

// ErrMemberNotFound is returned when an archive lacks the expected export.
var ErrMemberNotFound = errors.New("export not found in archive")

// Sentence is one row of the sentences export.
type Sentence struct {
	ID   string
	Lang string
	Text string
}

// Link is one row of the links export: two sentence ids that translate each
// other.
type Link struct {
	From string
	To   string
}

// IterSentences calls fn for every sentence row with at least three fields.
// Shorter rows are skipped. A non-nil error from fn stops the iteration and is
// returned as is.
func IterSentences(ctx context.Context, archive string, fn func(Sentence) error) error {
	return iterRecords(ctx, archive, sentencesMember, 3, func(fields []string) error {
		return fn(Sentence{ID: fields[0], Lang: fields[1], Text: fields[2]})
	})
}

// IterLinks calls fn for every link row with at least two fields.
func IterLinks(ctx context.Context, archive string, fn func(Link) error) error {
	return iterRecords(ctx, archive, linksMember, 2, func(fields []string) error {
		return fn(Link{From: fields[0], To: fields[1]})
	})
}

func iterRecords(ctx context.Context, archive, member string, minFields int, fn func([]string) error) error {
	file, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	stream, err := decompress(archive, bufio.NewReader(file))
	if err != nil {
		return err
	}

	tr := tar.NewReader(stream)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return fmt.Errorf("%w: no %q member in %s", ErrMemberNotFound, member, archive)
		}
		if err != nil {
			return fmt.Errorf("read archive %s: %w", archive, err)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasPrefix(path.Base(hdr.Name), member) {
			continue
		}
		return scanRecords(ctx, tr, minFields, fn)
	}
}

// decompress picks the decoder from the archive name: .bz2, .xz or plain tar.
func decompress(name string, r io.Reader) (io.Reader, error) {
	switch {
	case strings.HasSuffix(name, ".bz2"):
		return bzip2.NewReader(r), nil
	case strings.HasSuffix(name, ".xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open xz stream: %w", err)
		}
		return xr, nil
	default:
		return r, nil
	}
}

func scanRecords(ctx context.Context, r io.Reader, minFields int, fn func([]string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%ContextCheckFrequency == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		fields := strings.Split(strings.TrimSuffix(scanner.Text(), "\r"), "\t")
		if len(fields) < minFields {
			continue
		}
		if err := fn(fields); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read export at line %d: %w", lineNo+1, err)
	}
	return nil
}
