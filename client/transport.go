package client

import (
	"fmt"
	"net/http"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultBackoff = 1 * time.Second
)

// TransportConfig configures NewTransport.
type TransportConfig struct {
	Timeout time.Duration
	Retries int           // extra attempts for idempotent requests answered with 5xx
	Backoff time.Duration // delay before the first retry, doubled after each one
}

// Transport is what the pipeline sends requests with. GET and HEAD requests that
// receive a server error are retried; transport errors never are.
type Transport struct {
	http  *http.Client
	retry *retry.Client
}

// NewTransport builds a Transport. Retries of zero disable the retry layer.
func NewTransport(cfg TransportConfig) (*Transport, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	t := &Transport{http: &http.Client{Timeout: cfg.Timeout}}
	if cfg.Retries <= 0 {
		return t, nil
	}

	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	rc, err := retry.NewClient(
		retry.WithHTTPClient(t.http),
		retry.WithMaxRetries(cfg.Retries),
		retry.WithInitialRetryDelay(backoff),
		retry.WithMaxRetryDelay(backoff<<cfg.Retries),
		retry.WithRetryDelayMultiple(2.0),
		retry.WithRetryableChecker(retryServerErrors),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry client: %w", err)
	}
	t.retry = rc
	return t, nil
}

// Do sends req, honoring its context during any backoff.
func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	if t.retry == nil {
		return t.http.Do(req)
	}
	return t.retry.DoWithContext(req.Context(), req)
}

// Timeout returns the per-attempt timeout.
func (t *Transport) Timeout() time.Duration { return t.http.Timeout }

// Retrying reports whether the retry layer is enabled.
func (t *Transport) Retrying() bool { return t.retry != nil }

func retryServerErrors(err error, resp *http.Response) bool {
	if err != nil || resp == nil || resp.Request == nil || resp.StatusCode < http.StatusInternalServerError {
		return false
	}
	switch resp.Request.Method {
	case http.MethodGet, http.MethodHead:
		log.Warn().Int("status", resp.StatusCode).Str("path", resp.Request.URL.Path).Msg("Server error, retrying...")
		return true
	default:
		return false
	}
}

func closeResponseBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	if err := resp.Body.Close(); err != nil {
		log.Debug().Err(err).Msg("Failed to close response body")
	}
}
