// Package anilist fetches title metadata from the AniList GraphQL API and
// keeps a copy of it next to each title on disk.
package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mmcdole/yama/internal/domain"
	"github.com/mmcdole/yama/internal/store"
	"golang.org/x/time/rate"
)

const (
	// DefaultURL is the AniList GraphQL endpoint
	DefaultURL = "https://graphql.anilist.co/"

	// DefaultTimeout for each HTTP request
	DefaultTimeout = 15 * time.Second

	// DefaultRequestsPerMinute matches the public API limit
	DefaultRequestsPerMinute = 90
)

// Manifest records which cached metadata files are known good
type Manifest interface {
	Get(titleDir string) (store.Entry, bool)
	Put(titleDir string, mediaID int, data []byte) error
	Invalidate(titleDir string)
}

// Client queries AniList. It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	manifest    Manifest
	bannerWidth int
	logger      *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithBaseURL sets a custom endpoint (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit paces requests. Zero or less disables pacing.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		c.limiter = newLimiter(perMinute)
	}
}

// WithManifest validates cached files against a manifest store.
func WithManifest(m Manifest) Option {
	return func(c *Client) {
		c.manifest = m
	}
}

// WithBannerWidth downscales downloaded banners wider than width.
func WithBannerWidth(width int) Option {
	return func(c *Client) {
		c.bannerWidth = width
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new AniList client
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: newLimiter(DefaultRequestsPerMinute),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.manifest == nil {
		c.manifest, _ = store.NewManifestStore("", "")
	}

	return c
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := perMinute / 3
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}

// query sends the search request and returns the raw response body
func (c *Client) query(ctx context.Context, search string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}

	body, err := json.Marshal(graphQLRequest{
		Query:     mediaQuery,
		Variables: map[string]any{"search": search},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: no catalog entry for %q", domain.ErrNotFound, search)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrNetwork, resp.StatusCode)
	}

	return data, nil
}

// download streams url into dst, replacing it only once the body is complete
func (c *Client) download(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: image status %d", domain.ErrNetwork, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to save image: %v", domain.ErrNetwork, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	return nil
}
