package tatoeba

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
)

const (
	// DefaultTimeout bounds each read and write on the connection, not the
	// whole transfer.
	DefaultTimeout = 60 * time.Second

	maxRedirects = 5
)

// Downloader fetches export archives over HTTP. An existing local file whose
// size matches the remote Content-Length is reused.
type Downloader struct {
	client *fasthttp.Client
	logger ports.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *fasthttp.Client) DownloaderOption {
	return func(d *Downloader) {
		d.client = c
	}
}

// NewDownloader creates a downloader.
func NewDownloader(logger ports.Logger, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client: &fasthttp.Client{
			Name:               "go_corpus_normalizer",
			ReadTimeout:        DefaultTimeout,
			WriteTimeout:       DefaultTimeout,
			StreamResponseBody: true,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download stores url at filename. It reports whether a transfer took place.
func (d *Downloader) Download(ctx context.Context, url, filename string) (bool, error) {
	remoteSize, err := d.remoteSize(url)
	if err != nil {
		return false, err
	}

	if info, err := os.Stat(filename); err == nil {
		if remoteSize >= 0 && info.Size() == remoteSize {
			d.logger.Info("Archive already present, skipping download",
				"file", filename,
				"size", info.Size(),
			)
			return false, nil
		}
		d.logger.Info("Archive size differs, downloading again",
			"file", filename,
			"local_size", info.Size(),
			"remote_size", remoteSize,
		)
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", filename, err)
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	startTime := time.Now()
	written, err := d.fetch(ctx, url, filename)
	if err != nil {
		return false, err
	}
	d.logger.Info("Downloaded archive",
		"url", url,
		"file", filename,
		"bytes", written,
		"duration", time.Since(startTime),
	)
	return true, nil
}

// remoteSize returns the Content-Length announced for url, or -1 when the
// server does not send one.
func (d *Downloader) remoteSize(url string) (int64, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodHead)

	if err := d.client.DoRedirects(req, resp, maxRedirects); err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", url, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return 0, fmt.Errorf("HEAD %s: unexpected status %d", url, resp.StatusCode())
	}
	size := resp.Header.ContentLength()
	if size < 0 {
		return -1, nil
	}
	return int64(size), nil
}

// fetch streams the body into a temporary file next to filename and renames
// it into place once complete.
func (d *Downloader) fetch(ctx context.Context, url, filename string) (int64, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := d.client.DoRedirects(req, resp, maxRedirects); err != nil {
		return 0, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return 0, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode())
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return 0, fmt.Errorf("create download directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := &contextWriter{ctx: ctx, w: tmp}
	if err := resp.BodyWriteTo(w); err != nil {
		tmp.Close()
		return w.n, fmt.Errorf("GET %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return w.n, fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return w.n, fmt.Errorf("rename into %s: %w", filename, err)
	}
	return w.n, nil
}

// contextWriter aborts a body copy once ctx is done.
type contextWriter struct {
	ctx context.Context
	w   io.Writer
	n   int64
}

func (c *contextWriter) Write(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
