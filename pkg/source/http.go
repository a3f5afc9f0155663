package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bft-labs/lazyload/internal/ports"
	"github.com/bft-labs/lazyload/pkg/log"
)

// maxErrorBody bounds how much of an error response is quoted.
const maxErrorBody = 512

// HTTP fetches files relative to a base URL.
type HTTP struct {
	base      *url.URL
	client    HTTPClient
	logger    log.Logger
	authToken string

	attempts       int
	backoffInitial time.Duration
	backoffMax     time.Duration
}

// HTTPOption configures an HTTP source.
type HTTPOption func(*HTTP)

// WithAuthToken sends token as a bearer Authorization header.
func WithAuthToken(token string) HTTPOption {
	return func(h *HTTP) {
		h.authToken = token
	}
}

// WithRetry retries transport errors, 429 and 5xx responses up to attempts
// times in total, backing off exponentially between tries.
func WithRetry(attempts int, initial, max time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.attempts = attempts
		h.backoffInitial = initial
		h.backoffMax = max
	}
}

// NewHTTP creates a source rooted at baseURL. A nil client means
// http.DefaultClient; a nil logger discards output.
func NewHTTP(baseURL string, client HTTPClient, logger log.Logger, opts ...HTTPOption) (*HTTP, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: unsupported scheme %q", baseURL, base.Scheme)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	h := &HTTP{
		base:           base,
		client:         client,
		logger:         logger,
		attempts:       1,
		backoffInitial: DefaultBackoffInitial,
		backoffMax:     DefaultBackoffMax,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Fetch implements ports.Source. Names are resolved against the base URL,
// so absolute URLs are fetched as is.
func (h *HTTP) Fetch(ctx context.Context, name string) ([]byte, error) {
	ref, err := url.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	target := h.base.ResolveReference(ref).String()

	bo := newBackoff(h.backoffInitial, h.backoffMax)
	for attempt := 1; ; attempt++ {
		data, retry, err := h.fetchOnce(ctx, target)
		if err == nil || !retry || attempt >= h.attempts || ctx.Err() != nil {
			return data, err
		}
		h.logger.Warn("fetch failed, retrying",
			log.String("url", target),
			log.Int("attempt", attempt),
			log.Duration("backoff", bo.Current()),
			log.Err(err))
		if werr := bo.Wait(ctx); werr != nil {
			return nil, err
		}
	}
}

// fetchOnce performs a single request. retry reports whether the failure
// may be transient.
func (h *HTTP) fetchOnce(ctx context.Context, target string) (data []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	if h.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.authToken)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("fetch %s: %w", target, ErrNotFound)
	case resp.StatusCode/100 != 2:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, transient, fmt.Errorf("fetch %s: server returned %d: %s", target, resp.StatusCode, string(body))
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read %s: %w", target, err)
	}
	h.logger.Debug("file fetched",
		log.String("url", target),
		log.Int("bytes", len(data)),
		log.Duration("elapsed", time.Since(start)))
	return data, false, nil
}

var _ ports.Source = (*HTTP)(nil)
