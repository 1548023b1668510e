package broker

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-p2plink/pkg/types"
)

func svc(device types.DeviceID, names ...types.AdvertisedName) types.ServiceResponse {
	return types.ServiceResponse{Device: device, Names: names}
}

// TestBroker_FindRefCount 同一前缀 N 次查找需要 N 次取消
func TestBroker_FindRefCount(t *testing.T) {
	f := newFixture(t)

	f.fw.EXPECT().DiscoverPeers().Return(nil)
	f.fw.EXPECT().AddServiceRequest("org.example").Return(nil)

	require.NoError(t, f.b.FindAdvertisedName(ctx(t), "org.example"))
	err := f.b.FindAdvertisedName(ctx(t), "org.example")
	assert.ErrorIs(t, err, types.ErrAlreadyFinding)
	assert.True(t, types.StatusOf(err).IsOK())

	reqs, err := f.b.FindRequests(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, []types.FindRequest{{NamePrefix: "org.example", RefCount: 2}}, reqs)

	// 第一次取消只减少计数
	require.NoError(t, f.b.CancelFindAdvertisedName(ctx(t), "org.example"))

	f.fw.EXPECT().RemoveServiceRequest("org.example").Return(nil)
	f.fw.EXPECT().StopPeerDiscovery().Return(nil)
	require.NoError(t, f.b.CancelFindAdvertisedName(ctx(t), "org.example"))

	stats, err := f.b.Stats(ctx(t))
	require.NoError(t, err)
	assert.Zero(t, stats.FindRequests)
	assert.False(t, stats.Discovering)

	// 取消未查找的前缀是无操作
	require.NoError(t, f.b.CancelFindAdvertisedName(ctx(t), "org.example"))
}

// TestBroker_FoundOnce 重复的服务响应只产生一次 Found
func TestBroker_FoundOnce(t *testing.T) {
	f := newFixture(t)
	f.setPeers(t, "dev-42")

	f.fw.EXPECT().DiscoverPeers().Return(nil)
	f.fw.EXPECT().AddServiceRequest("org.example").Return(nil)
	require.NoError(t, f.b.FindAdvertisedName(ctx(t), "org.example"))

	resp := svc("dev-42", types.AdvertisedName{Name: "org.example.svc", GUID: "guid-1"})
	require.NoError(t, f.b.OnServiceResponse(resp))
	require.NoError(t, f.b.OnServiceResponse(resp))
	f.flush(t)

	found := types.Signal{
		Kind:       types.SignalFoundAdvertisedName,
		Name:       "org.example.svc",
		NamePrefix: "org.example",
		GUID:       "guid-1",
		Device:     "dev-42",
	}
	assert.Equal(t, []types.Signal{found}, f.sink.all())

	discovered, err := f.b.Discovered(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, []types.DiscoveredName{{
		Name: "org.example.svc", NamePrefix: "org.example", GUID: "guid-1", Device: "dev-42",
	}}, discovered)

	// 取消查找后名称丢失
	f.fw.EXPECT().RemoveServiceRequest("org.example").Return(nil)
	f.fw.EXPECT().StopPeerDiscovery().Return(nil)
	require.NoError(t, f.b.CancelFindAdvertisedName(ctx(t), "org.example"))

	lost := found
	lost.Kind = types.SignalLostAdvertisedName
	assert.Equal(t, []types.Signal{found, lost}, f.sink.all())

	t.Log("✅ Found 去重通过")
}

func TestBroker_NameWithdrawn(t *testing.T) {
	f := newFixture(t)
	f.setPeers(t, "dev-1")

	f.fw.EXPECT().DiscoverPeers().Return(nil)
	f.fw.EXPECT().AddServiceRequest("").Return(nil)
	require.NoError(t, f.b.FindAdvertisedName(ctx(t), ""))

	require.NoError(t, f.b.OnServiceResponse(svc("dev-1",
		types.AdvertisedName{Name: "a", GUID: "g1"},
		types.AdvertisedName{Name: "b", GUID: "g2"},
	)))
	// b 被撤回，a 的 GUID 变化
	require.NoError(t, f.b.OnServiceResponse(svc("dev-1",
		types.AdvertisedName{Name: "a", GUID: "g3"},
	)))
	f.flush(t)

	kinds := func(sigs []types.Signal) []string {
		out := make([]string, 0, len(sigs))
		for _, s := range sigs {
			out = append(out, s.Kind.String()+":"+s.Name+":"+s.GUID)
		}
		return out
	}
	assert.Equal(t, []string{
		"OnFoundAdvertisedName:a:g1",
		"OnFoundAdvertisedName:b:g2",
		"OnLostAdvertisedName:a:g1",
		"OnLostAdvertisedName:b:g2",
		"OnFoundAdvertisedName:a:g3",
	}, kinds(f.sink.all()))
}

// TestBroker_OverlappingPrefixes 名称只在最后一个匹配前缀取消后丢失
func TestBroker_OverlappingPrefixes(t *testing.T) {
	f := newFixture(t)
	f.setPeers(t, "dev-1")

	f.fw.EXPECT().DiscoverPeers().Return(nil)
	f.fw.EXPECT().AddServiceRequest("org").Return(nil)
	f.fw.EXPECT().AddServiceRequest("org.example").Return(nil)
	require.NoError(t, f.b.FindAdvertisedName(ctx(t), "org"))
	require.NoError(t, f.b.FindAdvertisedName(ctx(t), "org.example"))

	require.NoError(t, f.b.OnServiceResponse(svc("dev-1", types.AdvertisedName{Name: "org.example.svc", GUID: "g"})))
	f.flush(t)
	assert.Len(t, f.sink.ofKind(types.SignalFoundAdvertisedName), 2)

	f.fw.EXPECT().RemoveServiceRequest("org.example").Return(nil)
	require.NoError(t, f.b.CancelFindAdvertisedName(ctx(t), "org.example"))
	assert.Empty(t, f.sink.ofKind(types.SignalLostAdvertisedName))

	f.fw.EXPECT().RemoveServiceRequest("org").Return(nil)
	f.fw.EXPECT().StopPeerDiscovery().Return(nil)
	require.NoError(t, f.b.CancelFindAdvertisedName(ctx(t), "org"))

	lost := f.sink.ofKind(types.SignalLostAdvertisedName)
	require.Len(t, lost, 1)
	assert.Equal(t, "org", lost[0].NamePrefix)
}

func TestBroker_CachedServicesMatchNewFind(t *testing.T) {
	f := newFixture(t)
	f.setPeers(t, "dev-1")

	require.NoError(t, f.b.OnServiceResponse(svc("dev-1", types.AdvertisedName{Name: "org.example.svc", GUID: "g"})))
	f.flush(t)
	assert.Empty(t, f.sink.all())

	f.fw.EXPECT().DiscoverPeers().Return(nil)
	f.fw.EXPECT().AddServiceRequest("org.").Return(nil)
	require.NoError(t, f.b.FindAdvertisedName(ctx(t), "org."))

	assert.Len(t, f.sink.ofKind(types.SignalFoundAdvertisedName), 1)

	// 前缀匹配区分大小写
	f.fw.EXPECT().AddServiceRequest("ORG.").Return(nil)
	require.NoError(t, f.b.FindAdvertisedName(ctx(t), "ORG."))
	assert.Len(t, f.sink.ofKind(types.SignalFoundAdvertisedName), 1)
}

func TestBroker_PeerVanishExpiresNames(t *testing.T) {
	f := newFixture(t)
	f.setPeers(t, "dev-1")

	f.fw.EXPECT().DiscoverPeers().Return(nil)
	f.fw.EXPECT().AddServiceRequest("x").Return(nil)
	require.NoError(t, f.b.FindAdvertisedName(ctx(t), "x"))
	require.NoError(t, f.b.OnServiceResponse(svc("dev-1", types.AdvertisedName{Name: "x1", GUID: "g"})))
	f.flush(t)

	f.setPeers(t)
	assert.Len(t, f.sink.ofKind(types.SignalLostAdvertisedName), 1)

	discovered, err := f.b.Discovered(ctx(t))
	require.NoError(t, err)
	assert.Empty(t, discovered)
}

func TestBroker_FindOsFailure(t *testing.T) {
	f := newFixture(t)

	f.fw.EXPECT().DiscoverPeers().Return(errors.New("busy"))
	err := f.b.FindAdvertisedName(ctx(t), "org")
	assert.ErrorIs(t, err, types.ErrOsOperationFailed)

	reqs, err := f.b.FindRequests(ctx(t))
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

// TestBroker_DiscoveryRestart 发现会话被静默停止后按限速重启
func TestBroker_DiscoveryRestart(t *testing.T) {
	f := newFixture(t)

	var starts atomic.Int32
	f.fw.EXPECT().DiscoverPeers().DoAndReturn(func() error {
		starts.Add(1)
		return nil
	}).AnyTimes()
	f.fw.EXPECT().AddServiceRequest("org").Return(nil)
	require.NoError(t, f.b.FindAdvertisedName(ctx(t), "org"))
	assert.EqualValues(t, 1, starts.Load())

	// 突发额度内立即重启
	for i := 0; i < 2; i++ {
		require.NoError(t, f.b.DiscoveryChanged(false))
		f.flush(t)
	}
	assert.EqualValues(t, 3, starts.Load())

	// 超出额度后等待间隔
	require.NoError(t, f.b.DiscoveryChanged(false))
	f.flush(t)
	assert.EqualValues(t, 3, starts.Load())

	stats, err := f.b.Stats(ctx(t))
	require.NoError(t, err)
	assert.False(t, stats.Discovering)

	f.clk.Add(5 * time.Second)
	require.Eventually(t, func() bool {
		return starts.Load() == 4
	}, time.Second, 5*time.Millisecond)
}

func TestBroker_DiscoveryStopWithoutFinds(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.b.DiscoveryChanged(false))
	require.NoError(t, f.b.DiscoveryChanged(true))
	f.flush(t)

	stats, err := f.b.Stats(ctx(t))
	require.NoError(t, err)
	assert.False(t, stats.Discovering)
}

func TestBroker_Advertise(t *testing.T) {
	f := newFixture(t)
	an := types.AdvertisedName{Name: "org.me", GUID: "g"}

	f.fw.EXPECT().AddLocalService(an).Return(nil)
	require.NoError(t, f.b.AdvertiseName(ctx(t), "org.me", "g"))

	err := f.b.AdvertiseName(ctx(t), "org.me", "g")
	assert.ErrorIs(t, err, types.ErrAlreadyAdvertising)
	assert.Equal(t, types.StatusOK, types.StatusOf(err))

	assert.ErrorIs(t, f.b.AdvertiseName(ctx(t), "", "g"), types.ErrInvalidArgument)

	f.fw.EXPECT().RemoveLocalService(an).Return(nil)
	require.NoError(t, f.b.CancelAdvertiseName(ctx(t), "org.me", "g"))
	require.NoError(t, f.b.CancelAdvertiseName(ctx(t), "org.me", "g"))

	f.fw.EXPECT().AddLocalService(an).Return(errors.New("denied"))
	assert.ErrorIs(t, f.b.AdvertiseName(ctx(t), "org.me", "g"), types.ErrOsOperationFailed)
}
