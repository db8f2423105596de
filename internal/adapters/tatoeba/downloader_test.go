package tatoeba

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/baditaflorin/go_corpus_normalizer/internal/adapters/logger"
)

type archiveServer struct {
	payload []byte
	gets    atomic.Int32
}

func (s *archiveServer) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/exports/sentences.tar.bz2":
		if ctx.IsGet() {
			s.gets.Add(1)
		}
		ctx.SetContentType("application/x-bzip2")
		ctx.SetBody(s.payload)
	case "/moved":
		ctx.Redirect("/exports/sentences.tar.bz2", fasthttp.StatusFound)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func newTestDownloader(t *testing.T, srv *archiveServer) *Downloader {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	go fasthttp.Serve(ln, srv.handle) //nolint:errcheck
	t.Cleanup(func() { ln.Close() })

	client := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) {
			return ln.Dial()
		},
		StreamResponseBody: true,
	}
	return NewDownloader(logger.NewNopLogger(), WithHTTPClient(client))
}

func TestDownloadCreatesCacheDir(t *testing.T) {
	srv := &archiveServer{payload: []byte("tatoeba")}
	d := newTestDownloader(t, srv)
	target := filepath.Join(t.TempDir(), "cache", "exports", SentencesArchive)

	fetched, err := d.Download(context.Background(), "http://downloads.test/exports/sentences.tar.bz2", target)
	require.NoError(t, err)
	assert.True(t, fetched)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, srv.payload, data)
}

func TestDownload(t *testing.T) {
	srv := &archiveServer{payload: bytes.Repeat([]byte("tatoeba"), 10000)}
	d := newTestDownloader(t, srv)
	target := filepath.Join(t.TempDir(), SentencesArchive)
	url := "http://downloads.test/exports/sentences.tar.bz2"

	fetched, err := d.Download(context.Background(), url, target)
	require.NoError(t, err)
	assert.True(t, fetched)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, srv.payload, data)

	// Same size on disk: no second transfer.
	fetched, err = d.Download(context.Background(), url, target)
	require.NoError(t, err)
	assert.False(t, fetched)
	assert.Equal(t, int32(1), srv.gets.Load())

	// Truncated local copy: fetched again.
	require.NoError(t, os.WriteFile(target, []byte("partial"), 0o644))
	fetched, err = d.Download(context.Background(), url, target)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Equal(t, int32(2), srv.gets.Load())

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")
}

func TestDownloadFollowsRedirect(t *testing.T) {
	srv := &archiveServer{payload: []byte("archive")}
	d := newTestDownloader(t, srv)
	target := filepath.Join(t.TempDir(), "out.tar.bz2")

	fetched, err := d.Download(context.Background(), "http://downloads.test/moved", target)
	require.NoError(t, err)
	assert.True(t, fetched)
}

func TestDownloadNotFound(t *testing.T) {
	d := newTestDownloader(t, &archiveServer{})
	target := filepath.Join(t.TempDir(), "missing.tar.bz2")

	_, err := d.Download(context.Background(), "http://downloads.test/nope", target)
	assert.Error(t, err)
	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadCancelled(t *testing.T) {
	d := newTestDownloader(t, &archiveServer{payload: []byte("archive")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Download(ctx, "http://downloads.test/exports/sentences.tar.bz2", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, context.Canceled)
}
