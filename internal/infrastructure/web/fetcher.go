package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"NewsCast/internal/ports"
)

const (
	defaultTimeout = 30 * time.Second
	acceptHeader   = "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8"
	maxBodyBytes   = 10 << 20
)

// ErrBodyTooLarge is returned for pages larger than the configured body limit.
var ErrBodyTooLarge = errors.New("response body too large")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %s", e.URL, e.Status)
}

// Options configures a Fetcher.
type Options struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	MaxBodyBytes      int64
	Client            *http.Client
}

// Fetcher performs rate-limited page requests with a browser-like identity.
type Fetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	maxBody   int64
}

var _ ports.Fetcher = (*Fetcher)(nil)

// NewFetcher builds a fetcher; a non-positive rate disables limiting.
func NewFetcher(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = maxBodyBytes
	}

	return &Fetcher{
		client:    client,
		userAgent: opts.UserAgent,
		limiter:   rate.NewLimiter(limit, burst),
		maxBody:   maxBody,
	}
}

// Get downloads pageURL and returns its body. Non-2xx responses yield
// *StatusError; bodies over the limit yield ErrBodyTooLarge.
func (f *Fetcher) Get(ctx context.Context, pageURL string) (string, error) {
	resp, err := f.do(ctx, http.MethodGet, pageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", pageURL, err)
	}
	if int64(len(body)) > f.maxBody {
		return "", fmt.Errorf("read %s: over %d bytes: %w", pageURL, f.maxBody, ErrBodyTooLarge)
	}
	return string(body), nil
}

// ContentLength issues a HEAD request and returns the advertised size.
func (f *Fetcher) ContentLength(ctx context.Context, fileURL string) (int64, error) {
	resp, err := f.do(ctx, http.MethodHead, fileURL)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()

	if resp.ContentLength < 0 {
		return 0, errors.New("content length not reported")
	}
	return resp.ContentLength, nil
}

func (f *Fetcher) do(ctx context.Context, method, target string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: target, Status: resp.Status, Code: resp.StatusCode}
	}
	return resp, nil
}
