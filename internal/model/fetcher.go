package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

var ErrDownloadFailed = errors.New("model download failed")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// Temporary reports whether a retry may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// ProgressFunc is called once per attempt with the expected size (-1 when
// unknown) and returns a sink for the downloaded bytes, or nil.
type ProgressFunc func(total int64) io.Writer

// FetcherConfig holds the configuration for the HTTP fetcher
type FetcherConfig struct {
	Timeout    time.Duration
	RetryCount int
}

// DefaultFetcherConfig returns a FetcherConfig with sensible defaults
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:    10 * time.Minute,
		RetryCount: 3,
	}
}

// Fetcher downloads files over HTTP with retries.
type Fetcher struct {
	httpClient *http.Client
	config     FetcherConfig
	backoff    func(attempt int) time.Duration
	progress   ProgressFunc
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.httpClient = c }
}

func WithBackoff(fn func(attempt int) time.Duration) FetcherOption {
	return func(f *Fetcher) { f.backoff = fn }
}

func WithProgress(fn ProgressFunc) FetcherOption {
	return func(f *Fetcher) { f.progress = fn }
}

func NewFetcher(config FetcherConfig, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		backoff:    calculateBackoff,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// maxBackoff is the maximum backoff duration for retries
const maxBackoff = 30 * time.Second

// calculateBackoff returns 1s, 2s, 4s, 8s, etc. up to maxBackoff
func calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	seconds := 1
	for i := 1; i < attempt && i < 6; i++ {
		seconds *= 2
	}
	d := time.Duration(seconds) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Download fetches url into dst. The body is written to a temporary file in
// the same directory and renamed into place only once complete.
func (f *Fetcher) Download(ctx context.Context, url, dst string) error {
	var lastErr error

	for attempt := 0; attempt <= f.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.backoff(attempt)):
			}
		}

		lastErr = f.download(ctx, url, dst)
		if lastErr == nil {
			return nil
		}

		// Don't retry on context errors
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Don't retry on client errors (4xx)
		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && !statusErr.Temporary() {
			return fmt.Errorf("%w: %w", ErrDownloadFailed, lastErr)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrDownloadFailed, f.config.RetryCount+1, lastErr)
}

func (f *Fetcher) download(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{URL: url, Code: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".part-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	var w io.Writer = tmp
	if f.progress != nil {
		if sink := f.progress(resp.ContentLength); sink != nil {
			w = io.MultiWriter(tmp, sink)
		}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("read response: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename download: %w", err)
	}
	return nil
}
