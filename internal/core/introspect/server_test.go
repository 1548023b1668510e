package introspect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-p2plink/pkg/types"
)

// fakeSource 固定快照
type fakeSource struct {
	running bool
}

func (f *fakeSource) Running() bool { return f.running }

func (f *fakeSource) Stats(context.Context) (types.BrokerStats, error) {
	return types.BrokerStats{ActiveLinks: 1, Peers: 2, Enabled: true}, nil
}

func (f *fakeSource) Links(context.Context) ([]types.LinkInfo, error) {
	return []types.LinkInfo{{
		Handle:        7,
		Device:        "dev-42",
		State:         types.LinkStateEstablished,
		InterfaceName: "p2p-wlan0-0",
	}}, nil
}

func (f *fakeSource) Peers(context.Context) ([]types.Peer, error) {
	return []types.Peer{{DeviceID: "dev-42"}, {DeviceID: "dev-43"}}, nil
}

func (f *fakeSource) Discovered(context.Context) ([]types.DiscoveredName, error) {
	return []types.DiscoveredName{{Name: "org.example.svc", NamePrefix: "org.example", GUID: "guid-1", Device: "dev-42"}}, nil
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Introspect(t *testing.T) {
	s := New(Config{Source: &fakeSource{running: true}})
	h := s.Handler()

	rec := get(t, h, "/debug/introspect")
	require.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Running)
	require.NotNil(t, report.Stats)
	assert.Equal(t, 1, report.Stats.ActiveLinks)
	require.Len(t, report.Links, 1)
	assert.Equal(t, types.LinkHandle(7), report.Links[0].Handle)
	assert.Len(t, report.Peers, 2)
	assert.Len(t, report.Discovered, 1)

	rec = get(t, h, "/debug/introspect/links")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "p2p-wlan0-0")

	t.Log("✅ 自省快照正确")
}

func TestServer_NotRunning(t *testing.T) {
	s := New(Config{Source: &fakeSource{}})
	h := s.Handler()

	rec := get(t, h, "/debug/introspect/peers")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = get(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")

	rec = get(t, h, "/debug/introspect")
	require.Equal(t, http.StatusOK, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.False(t, report.Running)
	assert.Nil(t, report.Stats)

	t.Log("✅ 代理未运行时降级")
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "p2plink_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	s := New(Config{Source: &fakeSource{running: true}, Gatherer: reg})
	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "p2plink_test_total 1")

	// 未提供 Gatherer 时不注册 /metrics
	rec = get(t, New(Config{Source: &fakeSource{}}).Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s := New(Config{Source: &fakeSource{running: true}})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/debug/introspect", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_StartStop(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0", Source: &fakeSource{running: true}})
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}
