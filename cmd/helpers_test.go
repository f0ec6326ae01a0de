package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	installmentA = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"
	installmentB = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	planID       = "9b2f1c3e-8a4d-4e6f-b1a2-3c4d5e6f7a8b"
)

// fakeAPI is a minimal payment service. The access credential it accepts can be
// expired on demand to exercise the refresh path.
type fakeAPI struct {
	mu            sync.Mutex
	valid         string
	rejectRefresh bool
	refreshCalls  int
	planCalls     int
	paid          map[string]bool
}

func newFakeAPI(t *testing.T) (*fakeAPI, string) {
	t.Helper()
	api := &fakeAPI{paid: map[string]bool{installmentB: true}}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	return api, server.URL + "/api"
}

func (f *fakeAPI) expireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valid = "stale"
}

func (f *fakeAPI) counts() (refreshes, planLists int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls, f.planCalls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeExpired(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"detail":   "Given token not valid for any token type",
		"code":     "token_not_valid",
		"messages": []map[string]string{{"token_class": "AccessToken", "token_type": "access", "message": "Token is expired"}},
	})
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api")
	switch path {
	case "/accounts/signin/":
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		f.valid = "access-1"
		writeJSON(w, http.StatusOK, map[string]string{"access": "access-1", "refresh": "refresh-1"})
		return
	case "/accounts/token/refresh/":
		f.refreshCalls++
		if f.rejectRefresh {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
			return
		}
		f.valid = "access-2"
		writeJSON(w, http.StatusOK, map[string]string{"access": "access-2"})
		return
	}

	if f.valid == "" || r.Header.Get("Authorization") != "Bearer "+f.valid {
		writeExpired(w)
		return
	}

	switch {
	case path == "/accounts/me/":
		writeJSON(w, http.StatusOK, map[string]string{"id": "7", "email": "user@example.com", "role": "user"})
	case path == "/accounts/users/":
		writeJSON(w, http.StatusOK, []map[string]string{
			{"id": "7", "email": "user@example.com", "role": "user"},
			{"id": "8", "email": "shop@example.com", "role": "merchant"},
		})
	case path == "/plans/":
		f.planCalls++
		writeJSON(w, http.StatusOK, []map[string]any{{
			"id":                     planID,
			"merchant_email":         "shop@example.com",
			"user_email":             "user@example.com",
			"total_amount":           "300.00",
			"number_of_installments": 2,
			"start_date":             "2026-01-01",
			"status":                 "Active",
			"installments": []map[string]string{
				{"id": installmentA, "due_date": "2026-01-01", "amount": "150.00", "status": "Pending"},
				{"id": installmentB, "due_date": "2026-02-01", "amount": "150.00", "status": "Paid"},
			},
		}})
	case strings.HasPrefix(path, "/plans/installments/") && strings.HasSuffix(path, "/pay/"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/plans/installments/"), "/pay/")
		if f.paid[id] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Installment already paid"})
			return
		}
		f.paid[id] = true
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "due_date": "2026-01-01", "amount": "150.00", "status": "Paid"})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
}

type result struct {
	stdout string
	stderr string
	code   int
}

// isolate points HOME at a temporary directory and clears paydash environment overrides.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PAYDASH_BASE_URL", "")
	t.Setenv("PAYDASH_STORE", "")
	t.Setenv("PAYDASH_REDIS_ADDR", "")
}

// runCLI runs paydash against baseURL with the file credential store so that
// the session survives between invocations of the same test.
func runCLI(t *testing.T, baseURL, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--base-url", baseURL, "--store", "file"}, args...)
	code := run(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return result{stdout: out.String(), stderr: errOut.String(), code: code}
}

func signIn(t *testing.T, baseURL string) {
	t.Helper()
	res := runCLI(t, baseURL, "secret\n", "signin", "--email", "user@example.com")
	if res.code != 0 {
		t.Fatalf("signin failed with code %d: %s", res.code, res.stderr)
	}
}
