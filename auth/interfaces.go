package auth

import (
	"context"
	"net/http"
	"time"
)

// Names of the two credential slots a session is made of.
const (
	AccessSlot  = "access"
	RefreshSlot = "refresh"
)

// CredentialStore defines the contract for any component that can hold the session credentials.
// Get returns ok=false when the slot is empty. Clear and ClearAll must be idempotent.
type CredentialStore interface {
	Get(ctx context.Context, name string) (value string, ok bool, err error)
	Set(ctx context.Context, name, value string) error
	Clear(ctx context.Context, name string) error
	ClearAll(ctx context.Context) error
}

// SessionWriter is implemented by stores that can write both slots as one update.
type SessionWriter interface {
	SetSession(ctx context.Context, access, refresh string) error
}

// Transport issues a prepared HTTP request. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// Metrics receives pipeline observations. See the metrics package for a Prometheus implementation.
type Metrics interface {
	ObserveRequest(method string, kind string, elapsed time.Duration)
	ObserveRefresh(result string)
	ObserveSignOut(reason string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRequest(string, string, time.Duration) {}
func (noopMetrics) ObserveRefresh(string)                        {}
func (noopMetrics) ObserveSignOut(string)                        {}
