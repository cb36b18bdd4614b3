package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveDelivery("sent")
	m.ObserveDelivery("sent")
	m.ObserveDelivery("gone")
	m.ObserveCycle("ok")
	m.ObserveGeneration("template")
	m.SetActiveDestinations(7)
	m.ObserveCommand("status")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("gone")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("template")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.active))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("status")))
}

func TestMuxServesMetricsWithToken(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveCycle("ok")
	srv := httptest.NewServer(NewMux(ServerConfig{Token: "s3cret"}, m))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `histobot_cycles_total{result="ok"} 1`)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/debug/pprof/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()

	assert.True(t, isLoopbackAddr("127.0.0.1:9464"))
	assert.True(t, isLoopbackAddr("localhost:80"))
	assert.True(t, isLoopbackAddr("[::1]:80"))
	assert.False(t, isLoopbackAddr(":9464"))
	assert.False(t, isLoopbackAddr("0.0.0.0:9464"))
}
