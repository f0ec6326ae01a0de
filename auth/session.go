package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Session is the pair of credentials held for a signed-in user.
type Session struct {
	Access  string
	Refresh string
}

// SignedIn reports whether both credentials are present.
func (s Session) SignedIn() bool {
	return s.Access != "" && s.Refresh != ""
}

// SaveSession writes both credentials as one logical update.
// Stores implementing SessionWriter do it atomically; for the others the refresh
// slot is written first so that a reader never sees a new access without its refresh.
func SaveSession(ctx context.Context, store CredentialStore, access, refresh string) error {
	if access == "" || refresh == "" {
		return fmt.Errorf("both access and refresh credentials are required")
	}
	if sw, ok := store.(SessionWriter); ok {
		if err := sw.SetSession(ctx, access, refresh); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	}
	if err := store.Set(ctx, RefreshSlot, refresh); err != nil {
		return fmt.Errorf("failed to save refresh credential: %w", err)
	}
	if err := store.Set(ctx, AccessSlot, access); err != nil {
		return fmt.Errorf("failed to save access credential: %w", err)
	}
	log.Debug().Msg("Session saved")
	return nil
}

// LoadSession reads both slots. Missing slots are returned as empty strings.
func LoadSession(ctx context.Context, store CredentialStore) (Session, error) {
	access, _, err := store.Get(ctx, AccessSlot)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read access credential: %w", err)
	}
	refresh, _, err := store.Get(ctx, RefreshSlot)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read refresh credential: %w", err)
	}
	return Session{Access: access, Refresh: refresh}, nil
}

// tokenPrefix returns a short, log-safe prefix of a credential.
func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}
