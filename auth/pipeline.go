package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultRefreshPath is the refresh endpoint, relative to the base URL.
const DefaultRefreshPath = "/accounts/token/refresh/"

// Request describes one API call. The pipeline may send it twice; only the
// Authorization header differs between the two attempts.
type Request struct {
	Method string
	Path   string // relative to the base URL, e.g. "/plans/"
	Body   []byte
	Header http.Header

	// Public requests never carry a bearer credential and never trigger a refresh.
	Public bool
}

// NewJSONRequest builds a Request whose body is payload encoded as JSON.
func NewJSONRequest(method, path string, payload any) (Request, error) {
	req := Request{Method: method, Path: path}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return Request{}, fmt.Errorf("failed to encode request body: %w", err)
		}
		req.Body = body
	}
	return req, nil
}

// Response is the success outcome of Execute.
type Response struct {
	Status int
	Header http.Header
	Body   json.RawMessage
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return &Error{Kind: KindMalformedResponse, Status: r.Status, Detail: "empty response body"}
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &Error{Kind: KindMalformedResponse, Status: r.Status, Err: err}
	}
	return nil
}

// Pipeline sends authenticated requests, refreshing the access credential once
// when the server reports it expired.
type Pipeline struct {
	baseURL      string
	transport    Transport
	store        CredentialStore
	refreshPath  string
	userAgent    string
	singleFlight bool
	metrics      Metrics
	refresher    *refresher
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRefreshPath overrides the refresh endpoint path.
func WithRefreshPath(path string) Option {
	return func(p *Pipeline) { p.refreshPath = path }
}

// WithSingleFlight controls whether concurrent refreshes share one call. Enabled by default.
func WithSingleFlight(enabled bool) Option {
	return func(p *Pipeline) { p.singleFlight = enabled }
}

// WithMetrics sets the metrics hook.
func WithMetrics(m Metrics) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(p *Pipeline) { p.userAgent = ua }
}

// NewPipeline creates a Pipeline for the API rooted at baseURL.
func NewPipeline(baseURL string, transport Transport, store CredentialStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		baseURL:      strings.TrimRight(baseURL, "/"),
		transport:    transport,
		store:        store,
		refreshPath:  DefaultRefreshPath,
		userAgent:    "paydash",
		singleFlight: true,
		metrics:      noopMetrics{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.refresher = &refresher{p: p}
	return p
}

// Store returns the credential store the pipeline reads from and writes to.
func (p *Pipeline) Store() CredentialStore { return p.store }

// BaseURL returns the API root.
func (p *Pipeline) BaseURL() string { return p.baseURL }

// Execute sends req and returns either a Response or an *Error. The access
// credential is refreshed and the request retried at most once.
func (p *Pipeline) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := p.execute(ctx, req)
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	p.metrics.ObserveRequest(req.Method, outcome, time.Since(start))
	return resp, err
}

func (p *Pipeline) execute(ctx context.Context, req Request) (*Response, error) {
	requestID := uuid.NewString()

	var access string
	if !req.Public {
		var err error
		access, _, err = p.store.Get(ctx, AccessSlot)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read access credential")
			return nil, &Error{Kind: KindStore, Err: err}
		}
	}

	status, header, body, err := p.send(ctx, req, access, requestID)
	if err != nil {
		return nil, err
	}
	if req.Public || !IsExpiryError(status, body) {
		return classify(status, header, body)
	}

	log.Info().Str("path", req.Path).Str("request_id", requestID).Msg("Access credential expired, refreshing...")
	fresh, err := p.refresher.refresh(ctx, access)
	if err != nil {
		return nil, err
	}

	status, header, body, err = p.send(ctx, req, fresh, requestID)
	if err != nil {
		return nil, err
	}
	if IsExpiryError(status, body) {
		p.signOut(ctx, "expired_after_refresh")
		return nil, &Error{Kind: KindExpiredSession, Status: status, SignedOut: true}
	}
	return classify(status, header, body)
}

// send issues one attempt and reads the whole body.
func (p *Pipeline) send(ctx context.Context, req Request, access, requestID string) (int, http.Header, []byte, error) {
	httpReq, err := p.newHTTPRequest(ctx, req, access, requestID)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("path", req.Path).Msg("Failed to create HTTP request object")
		return 0, nil, nil, &Error{Kind: KindNetwork, Detail: "invalid request", Err: err}
	}

	log.Debug().Str("method", req.Method).Str("path", req.Path).Str("request_id", requestID).
		Bool("authenticated", access != "").Msg("Sending HTTP request")
	resp, err := p.transport.Do(httpReq)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("path", req.Path).Msg("HTTP request failed")
		return 0, nil, nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Str("path", req.Path).Msg("Failed to read response body")
		return 0, nil, nil, &Error{Kind: KindNetwork, Status: resp.StatusCode, Err: err}
	}
	log.Debug().Str("method", req.Method).Str("path", req.Path).Int("status", resp.StatusCode).
		Str("request_id", requestID).Msg("HTTP response received")
	return resp.StatusCode, resp.Header, body, nil
}

func (p *Pipeline) newHTTPRequest(ctx context.Context, req Request, access, requestID string) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, p.baseURL+req.Path, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", p.userAgent)
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}
	return httpReq, nil
}

// signOut clears both credentials. It is never called for ordinary HTTP failures.
func (p *Pipeline) signOut(ctx context.Context, reason string) {
	if err := p.store.ClearAll(context.WithoutCancel(ctx)); err != nil {
		log.Error().Err(err).Str("reason", reason).Msg("Failed to clear session")
	}
	p.metrics.ObserveSignOut(reason)
	log.Warn().Str("reason", reason).Msg("Session cleared")
}

// classify turns a non-expiry response into the call's outcome.
func classify(status int, header http.Header, body []byte) (*Response, error) {
	if status >= 200 && status < 300 {
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) > 0 && !json.Valid(trimmed) {
			return nil, &Error{Kind: KindMalformedResponse, Status: status, Detail: "response body is not valid JSON"}
		}
		return &Response{Status: status, Header: header, Body: json.RawMessage(trimmed)}, nil
	}
	return nil, &Error{Kind: KindHTTP, Status: status, Detail: errorDetail(status, body)}
}
