package legacyscan

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-p2plink/config"
	"github.com/dep2p/go-p2plink/internal/core/eventbus"
	"github.com/dep2p/go-p2plink/pkg/types"
)

func newAdapter(t *testing.T) (*Adapter, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	a, err := New(config.DefaultLegacyScanConfig(), WithClock(clk))
	require.NoError(t, err)
	return a, clk
}

func TestAdapter_BSSIDMatch(t *testing.T) {
	a, clk := newAdapter(t)
	assert.False(t, a.HasScanResults())

	clk.Add(time.Minute)
	obs := a.HandleResults(types.ScanResultsEvent{
		Results: []types.ScanResult{
			{BSSID: "AA:BB:CC:00:00:01", SSID: "home"},
			{BSSID: "aa:bb:cc:00:00:02", SSID: "home"},
		},
		CurrentBSSID: "aa:bb:cc:00:00:02",
		CurrentSSID:  "home",
	})

	require.Len(t, obs, 2)
	assert.False(t, obs[0].Associated)
	assert.True(t, obs[1].Associated)
	assert.True(t, a.HasScanResults())
	assert.Equal(t, clk.Now(), a.LastScanTime())

	ap, ok := a.Associated()
	require.True(t, ok)
	assert.Equal(t, "aa:bb:cc:00:00:02", ap.BSSID)

	seenAt, ok := a.RecentlySeen("AA:BB:CC:00:00:01")
	require.True(t, ok)
	assert.Equal(t, clk.Now(), seenAt)
}

func TestAdapter_SSIDFallback(t *testing.T) {
	a, _ := newAdapter(t)

	obs := a.HandleResults(types.ScanResultsEvent{
		Results: []types.ScanResult{
			{BSSID: "01", SSID: "office"},
			{BSSID: "02", SSID: "home"},
		},
		CurrentSSID: "home",
	})
	assert.False(t, obs[0].Associated)
	assert.True(t, obs[1].Associated)
}

func TestAdapter_ZeroResultsIsValid(t *testing.T) {
	a, _ := newAdapter(t)

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	obs := a.HandleResults(types.ScanResultsEvent{Timestamp: ts})

	assert.Empty(t, obs)
	assert.True(t, a.HasScanResults())
	assert.Equal(t, ts, a.LastScanTime())
	_, ok := a.Associated()
	assert.False(t, ok)
}

func TestAdapter_Unassociated(t *testing.T) {
	a, _ := newAdapter(t)

	obs := a.HandleResults(types.ScanResultsEvent{
		Results: []types.ScanResult{{BSSID: "01", SSID: ""}},
	})
	assert.False(t, obs[0].Associated)
}

func TestAdapter_BusSubscription(t *testing.T) {
	a, _ := newAdapter(t)
	bus := eventbus.NewBus()

	require.NoError(t, a.Start(bus))
	defer a.Stop(context.Background())

	em, err := bus.Emitter(new(types.ScanResultsEvent))
	require.NoError(t, err)
	defer em.Close()

	require.NoError(t, em.Emit(&types.ScanResultsEvent{Results: []types.ScanResult{{BSSID: "01"}}}))
	require.Eventually(t, a.HasScanResults, time.Second, 5*time.Millisecond)

	t.Log("✅ 扫描结果经事件总线到达")
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(config.LegacyScanConfig{Enabled: true})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
