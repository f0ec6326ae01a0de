package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// refresher mints a new access credential from the stored refresh credential.
// Every failure clears the session before it is returned.
type refresher struct {
	p     *Pipeline
	group singleflight.Group
}

// refresh returns an access credential to retry with after stale was reported expired.
func (r *refresher) refresh(ctx context.Context, stale string) (string, error) {
	if !r.p.singleFlight {
		return r.run(ctx)
	}

	current, _, err := r.p.store.Get(ctx, AccessSlot)
	if err != nil {
		return "", r.fail(ctx, &Error{Kind: KindStore, Err: err}, "store_error")
	}
	if current != "" && current != stale {
		log.Debug().Msg("Access credential was already refreshed by another request")
		r.p.metrics.ObserveRefresh("reused")
		return current, nil
	}

	// The shared call must not be aborted by one waiter going away.
	ch := r.group.DoChan("refresh", func() (any, error) {
		return r.run(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &Error{Kind: KindNetwork, Err: ctx.Err()}
	}
}

// run performs one call to the refresh endpoint.
func (r *refresher) run(ctx context.Context) (string, error) {
	store := r.p.store

	refreshToken, ok, err := store.Get(ctx, RefreshSlot)
	if err != nil {
		return "", r.fail(ctx, &Error{Kind: KindStore, Err: err}, "store_error")
	}
	if !ok || refreshToken == "" {
		log.Warn().Msg("No refresh credential stored; cannot refresh")
		return "", r.fail(ctx, &Error{Kind: KindNoRefreshToken}, "no_refresh_token")
	}
	// The current access credential is sent along even though it is expired.
	access, _, err := store.Get(ctx, AccessSlot)
	if err != nil {
		return "", r.fail(ctx, &Error{Kind: KindStore, Err: err}, "store_error")
	}

	payload, err := json.Marshal(refreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", r.fail(ctx, &Error{Kind: KindNetwork, Detail: "invalid refresh request", Err: err}, "network")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.p.baseURL+r.p.refreshPath, bytes.NewReader(payload))
	if err != nil {
		return "", r.fail(ctx, &Error{Kind: KindNetwork, Detail: "invalid refresh request", Err: err}, "network")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.p.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := r.p.transport.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Token refresh request failed")
		return "", r.fail(ctx, &Error{Kind: KindNetwork, Err: err}, "network")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to close refresh response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", r.fail(ctx, &Error{Kind: KindNetwork, Status: resp.StatusCode, Err: err}, "network")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Msg("Token refresh was rejected")
		return "", r.fail(ctx, &Error{
			Kind:   KindRefreshRejected,
			Status: resp.StatusCode,
			Detail: errorDetail(resp.StatusCode, body),
		}, "refresh_rejected")
	}

	var result refreshResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", r.fail(ctx, &Error{Kind: KindMalformedResponse, Status: resp.StatusCode, Err: err}, "malformed_refresh")
	}
	if result.Access == "" {
		return "", r.fail(ctx, &Error{
			Kind:   KindMalformedResponse,
			Status: resp.StatusCode,
			Detail: "refresh response has no access credential",
		}, "malformed_refresh")
	}

	if err := store.Set(ctx, AccessSlot, result.Access); err != nil {
		log.Error().Err(err).Msg("Failed to save refreshed access credential")
		return "", r.fail(ctx, &Error{Kind: KindStore, Err: err}, "store_error")
	}
	r.p.metrics.ObserveRefresh("success")
	log.Info().Str("access", tokenPrefix(result.Access)).Msg("Access credential refreshed and saved")
	return result.Access, nil
}

func (r *refresher) fail(ctx context.Context, e *Error, reason string) error {
	r.p.signOut(ctx, reason)
	r.p.metrics.ObserveRefresh(string(e.Kind))
	e.SignedOut = true
	return e
}
