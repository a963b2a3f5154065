// Package fetcher retrieves posting content over HTTP.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxBodyBytes caps how much of a posting page is read. Job descriptions are
// small; anything past this is noise.
const maxBodyBytes = 2 << 20

const defaultUserAgent = "job-skill-pipeline/1.0"

// HTTPFetcher fetches page content with a shared client.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	log       *zap.Logger
}

// New constructs an HTTPFetcher with the given per-request timeout.
func New(timeout time.Duration, log *zap.Logger) *HTTPFetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
		log:       log,
	}
}

// Fetch returns the raw body of the URL. Soft failures (non-2xx responses)
// return empty content without an error so the caller can treat them as
// undersized content; transport failures return an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.log.Debug("fetch returned non-2xx", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", url, err)
	}
	return string(body), nil
}
