package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) []*dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}
	return nil
}

func TestCollector_Requests(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRequest(http.MethodGet, "GET /api/records", 200, 20*time.Millisecond)
	c.ObserveRequest(http.MethodGet, "GET /api/records", 200, 30*time.Millisecond)
	c.ObserveRequest(http.MethodGet, "", 404, time.Millisecond)

	got := gather(t, reg, "tempguard_http_requests_total")
	require.Len(t, got, 2)
	values := map[string]float64{}
	for _, m := range got {
		for _, l := range m.GetLabel() {
			if l.GetName() == "route" {
				values[l.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{"GET /api/records": 2, "unmatched": 1}, values)
}

func TestCollector_LoginLookupRetention(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveLogin(LoginSuccess)
	c.ObserveLogin(LoginInvalid)
	c.ObserveLookup("match", time.Second)
	c.ObserveLookup("cache_hit", 0)
	c.ObserveRetention("success", "", 5, time.Second)
	c.ObserveRetention("error", "internal", 0, time.Second)

	assert.Len(t, gather(t, reg, "tempguard_login_attempts_total"), 2)
	assert.Len(t, gather(t, reg, "tempguard_product_lookups_total"), 2)

	latency := gather(t, reg, "tempguard_product_lookup_latency_seconds")
	require.Len(t, latency, 1)
	assert.Equal(t, uint64(1), latency[0].GetHistogram().GetSampleCount())

	purged := gather(t, reg, "tempguard_retention_records_deleted_total")
	require.Len(t, purged, 1)
	assert.InDelta(t, 5, purged[0].GetCounter().GetValue(), 0)

	last := gather(t, reg, "tempguard_retention_last_success_timestamp_seconds")
	require.Len(t, last, 1)
	assert.Positive(t, last[0].GetGauge().GetValue())
}

func TestHandler_ServesMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveLogin(LoginSuccess)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tempguard_login_attempts_total{result="success"} 1`)
}
