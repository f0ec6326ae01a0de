package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector()

	c.ObserveRequest("GET", "success", 10*time.Millisecond)
	c.ObserveRequest("GET", "success", 20*time.Millisecond)
	c.ObserveRequest("POST", "http", time.Millisecond)
	c.ObserveRequest("", "network", time.Millisecond)
	c.ObserveRefresh("success")
	c.ObserveRefresh("reused")
	c.ObserveSignOut("refresh_rejected")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "network")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.refresh.WithLabelValues("reused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.signOuts.WithLabelValues("refresh_rejected")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.duration))
}

func TestCollector_Exposition(t *testing.T) {
	c := NewCollector()
	c.ObserveSignOut("expired_after_refresh")

	expected := `
# HELP paydash_forced_signouts_total Sessions cleared by the pipeline, by reason.
# TYPE paydash_forced_signouts_total counter
paydash_forced_signouts_total{reason="expired_after_refresh"} 1
`
	require.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "paydash_forced_signouts_total"))
}

func TestCollector_WriteFile(t *testing.T) {
	c := NewCollector()
	c.ObserveRequest("GET", "success", time.Millisecond)

	path := filepath.Join(t.TempDir(), "textfile", "paydash.prom")
	require.NoError(t, c.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `paydash_requests_total{method="GET",outcome="success"} 1`)
	assert.Contains(t, string(data), "paydash_request_duration_seconds_bucket")
}
