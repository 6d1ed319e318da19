package api

import (
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	m := createMouse(t, s, "KM101")

	do(t, s, http.MethodGet, "/api/mice", nil)
	do(t, s, http.MethodGet, "/api/mice", nil)
	do(t, s, http.MethodGet, "/api/mice/999", nil)
	requireStatus(t, do(t, s, http.MethodPost, "/api/sessions", sessionBody(m.ID, nil)), http.StatusCreated)

	requests := s.Metrics().Requests
	assert.Equal(t, 2.0, testutil.ToFloat64(requests.WithLabelValues("/api/mice", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues("/api/mice", "POST", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues("/api/mice/", "GET", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().Sessions))

	rec := do(t, s, http.MethodGet, "/metrics", nil)
	requireStatus(t, rec, http.StatusOK)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "runner_api_requests_total")
	assert.Contains(t, string(body), "runner_sessions_created_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
