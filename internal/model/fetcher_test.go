package model

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noBackoff(int) time.Duration { return 0 }

// flakyServer fails the first failures requests with status, then serves body.
func flakyServer(t *testing.T, failures int32, status int, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= failures {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testFetcher(retries int, opts ...FetcherOption) *Fetcher {
	opts = append([]FetcherOption{WithBackoff(noBackoff)}, opts...)
	return NewFetcher(FetcherConfig{Timeout: 5 * time.Second, RetryCount: retries}, opts...)
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{20, 30 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateBackoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestFetcher_Download(t *testing.T) {
	srv, calls := flakyServer(t, 0, 0, []byte("payload"))
	dst := filepath.Join(t.TempDir(), "file.bin")

	require.NoError(t, testFetcher(3).Download(context.Background(), srv.URL, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
	assert.Equal(t, int32(1), calls.Load())

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	srv, calls := flakyServer(t, 2, http.StatusBadGateway, []byte("ok"))
	dst := filepath.Join(t.TempDir(), "file.bin")

	require.NoError(t, testFetcher(3).Download(context.Background(), srv.URL, dst))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcher_DoesNotRetryClientErrors(t *testing.T) {
	srv, calls := flakyServer(t, 100, http.StatusNotFound, nil)
	dst := filepath.Join(t.TempDir(), "file.bin")

	err := testFetcher(3).Download(context.Background(), srv.URL, dst)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDownloadFailed)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, int32(1), calls.Load())
	assert.NoFileExists(t, dst)
}

func TestFetcher_GivesUpAfterRetries(t *testing.T) {
	srv, calls := flakyServer(t, 100, http.StatusInternalServerError, nil)
	dst := filepath.Join(t.TempDir(), "file.bin")

	err := testFetcher(2).Download(context.Background(), srv.URL, dst)

	assert.ErrorIs(t, err, ErrDownloadFailed)
	assert.Equal(t, int32(3), calls.Load())
	assert.NoFileExists(t, dst)
}

func TestFetcher_CancelledDuringBackoff(t *testing.T) {
	srv, _ := flakyServer(t, 100, http.StatusServiceUnavailable, nil)
	ctx, cancel := context.WithCancel(context.Background())

	f := NewFetcher(FetcherConfig{Timeout: time.Second, RetryCount: 5}, WithBackoff(func(int) time.Duration {
		cancel()
		return time.Hour
	}))

	err := f.Download(ctx, srv.URL, filepath.Join(t.TempDir(), "file.bin"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetcher_Progress(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 1024)
	srv, _ := flakyServer(t, 0, 0, body)

	var sink bytes.Buffer
	var total int64
	f := testFetcher(0, WithProgress(func(n int64) io.Writer {
		total = n
		return &sink
	}))

	require.NoError(t, f.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "file.bin")))
	assert.Equal(t, int64(len(body)), total)
	assert.Equal(t, body, sink.Bytes())
}

func TestStatusError_Temporary(t *testing.T) {
	assert.True(t, (&StatusError{Code: 500}).Temporary())
	assert.True(t, (&StatusError{Code: 429}).Temporary())
	assert.False(t, (&StatusError{Code: 404}).Temporary())
	assert.Contains(t, (&StatusError{URL: "http://x", Code: 403}).Error(), "status 403")
}
