package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-p2plink/internal/core/eventbus"
	"github.com/dep2p/go-p2plink/pkg/types"
)

type fakeStats struct {
	stats types.BrokerStats
	err   error
}

func (f *fakeStats) Stats(context.Context) (types.BrokerStats, error) {
	return f.stats, f.err
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) (float64, bool) {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue(), true
		}
	}
	return 0, false
}

func TestCollector_ObserveSignal(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(DefaultConfig(), reg, nil, WithClock(clock.NewMock()))
	require.NoError(t, err)
	require.NoError(t, c.Start(nil))
	defer c.Stop(context.Background())

	c.ObserveSignal(types.SignalEvent{Signal: types.Signal{Kind: types.SignalLinkEstablished}, Delivered: true})
	c.ObserveSignal(types.SignalEvent{Signal: types.Signal{Kind: types.SignalLinkEstablished}, Delivered: true})
	c.ObserveSignal(types.SignalEvent{Signal: types.Signal{Kind: types.SignalLinkLost}, Delivered: false})
	c.ObserveSignal(types.SignalEvent{Signal: types.Signal{
		Kind: types.SignalLinkError, Code: types.StatusFormationTimeout,
	}, Delivered: true})

	kind := types.SignalLinkEstablished.String()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.signals.WithLabelValues(kind, "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.signals.WithLabelValues(types.SignalLinkLost.String(), "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.linkErrors.WithLabelValues(types.StatusFormationTimeout.String())))
	assert.EqualValues(t, 4, c.rate.Total())
}

func TestCollector_BrokerGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := &fakeStats{stats: types.BrokerStats{
		ActiveLinks: 2, QueuedLinks: 1, FindRequests: 3, Peers: 4, Enabled: true,
	}}
	c, err := NewCollector(DefaultConfig(), reg, src)
	require.NoError(t, err)
	require.NoError(t, c.Start(nil))

	v, ok := gaugeValue(t, reg, "p2plink_broker_active_links")
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	v, _ = gaugeValue(t, reg, "p2plink_broker_find_requests")
	assert.Equal(t, 3.0, v)

	v, _ = gaugeValue(t, reg, "p2plink_broker_p2p_enabled")
	assert.Equal(t, 1.0, v)

	// 代理不可用时不导出状态指标
	src.err = types.ErrNotInitialized
	_, ok = gaugeValue(t, reg, "p2plink_broker_peers")
	assert.False(t, ok)

	require.NoError(t, c.Stop(context.Background()))
	_, ok = gaugeValue(t, reg, "p2plink_broker_peers")
	assert.False(t, ok)
}

// TestCollector_ReRegister 同一注册表可以挂载新的采集器
func TestCollector_ReRegister(t *testing.T) {
	reg := prometheus.NewRegistry()

	for i := 0; i < 3; i++ {
		c, err := NewCollector(DefaultConfig(), reg, &fakeStats{})
		require.NoError(t, err)
		require.NoError(t, c.Start(nil))
		require.NoError(t, c.Stop(context.Background()))
	}

	t.Log("✅ 多次启动共享注册表")
}

func TestCollector_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()

	c1, err := NewCollector(DefaultConfig(), reg, nil)
	require.NoError(t, err)
	require.NoError(t, c1.Start(nil))
	defer c1.Stop(context.Background())

	c2, err := NewCollector(DefaultConfig(), reg, nil)
	require.NoError(t, err)
	assert.Error(t, c2.Start(nil))
}

func TestCollector_BusSubscription(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := eventbus.NewBus()

	c, err := NewCollector(DefaultConfig(), reg, nil)
	require.NoError(t, err)
	require.NoError(t, c.Start(bus))
	defer c.Stop(context.Background())

	em, err := bus.Emitter(new(types.SignalEvent))
	require.NoError(t, err)
	defer em.Close()

	require.NoError(t, em.Emit(&types.SignalEvent{Signal: types.Signal{Kind: types.SignalFoundAdvertisedName}, Delivered: true}))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(c.signals.WithLabelValues(types.SignalFoundAdvertisedName.String(), "true")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestNewCollector_NilRegistry(t *testing.T) {
	_, err := NewCollector(DefaultConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrNilRegistry)
}
