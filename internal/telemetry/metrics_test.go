package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_ServesIncrementedCounters(t *testing.T) {
	RunsTotal.Inc()
	PostingsFetched.WithLabelValues("github").Add(3)

	srv := httptest.NewServer(NewServer(":0").Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "tracker_runs_total")
	assert.Contains(t, string(body), `tracker_postings_fetched_total{source="github"}`)
}

func TestNewServer_OnlyMetricsRoute(t *testing.T) {
	srv := httptest.NewServer(NewServer(":0").Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
