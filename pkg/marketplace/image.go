package marketplace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/odvcencio/snaplist/pkg/browser"
	"github.com/odvcencio/snaplist/pkg/observability"
)

// ImageFilename and ImageMimeType describe every uploaded photo.
const (
	ImageFilename = "item.jpg"
	ImageMimeType = "image/jpeg"
)

// ImageFetcher downloads a listing photo. Implementations make exactly one
// attempt.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// HTTPImageFetcher fetches photos over HTTP with a bounded time and size.
type HTTPImageFetcher struct {
	Client    *http.Client
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// NewHTTPImageFetcher creates a fetcher with the given limits.
func NewHTTPImageFetcher(timeout time.Duration, maxBytes int64) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &HTTPImageFetcher{
		Client:    &http.Client{Timeout: timeout},
		Timeout:   timeout,
		MaxBytes:  maxBytes,
		UserAgent: browser.DefaultUserAgent,
	}
}

func (f *HTTPImageFetcher) Fetch(ctx context.Context, imageURL string) (data []byte, err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		observability.ImageFetches.WithLabelValues(outcome).Inc()
	}()

	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid image url %q", imageURL)
	}
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "image/*")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch image: unexpected status %s", resp.Status)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > f.MaxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", f.MaxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	return data, nil
}
