package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dep2p/go-p2plink/pkg/interfaces/mocks"
	"github.com/dep2p/go-p2plink/pkg/types"
)

// recordingSink 记录代理发出的全部信号
type recordingSink struct {
	mu      sync.Mutex
	signals []types.Signal
}

func (s *recordingSink) add(sig types.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, sig)
}

func (s *recordingSink) OnFoundAdvertisedName(name, prefix, guid string, device types.DeviceID) {
	s.add(types.Signal{Kind: types.SignalFoundAdvertisedName, Name: name, NamePrefix: prefix, GUID: guid, Device: device})
}

func (s *recordingSink) OnLostAdvertisedName(name, prefix, guid string, device types.DeviceID) {
	s.add(types.Signal{Kind: types.SignalLostAdvertisedName, Name: name, NamePrefix: prefix, GUID: guid, Device: device})
}

func (s *recordingSink) OnLinkEstablished(h types.LinkHandle, ifname string) {
	s.add(types.Signal{Kind: types.SignalLinkEstablished, Handle: h, InterfaceName: ifname})
}

func (s *recordingSink) OnLinkError(h types.LinkHandle, code types.Status) {
	s.add(types.Signal{Kind: types.SignalLinkError, Handle: h, Code: code})
}

func (s *recordingSink) OnLinkLost(h types.LinkHandle) {
	s.add(types.Signal{Kind: types.SignalLinkLost, Handle: h})
}

func (s *recordingSink) all() []types.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Signal(nil), s.signals...)
}

func (s *recordingSink) ofKind(kind types.SignalKind) []types.Signal {
	var out []types.Signal
	for _, sig := range s.all() {
		if sig.Kind == kind {
			out = append(out, sig)
		}
	}
	return out
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = nil
}

// fixture 测试夹具
type fixture struct {
	b    *Broker
	fw   *mocks.MockP2PFramework
	sink *recordingSink
	clk  *clock.Mock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	fw := mocks.NewMockP2PFramework(ctrl)
	sink := &recordingSink{}
	clk := clock.NewMock()

	b, err := New(DefaultConfig(), fw, sink, append([]Option{WithClock(clk)}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))

	t.Cleanup(func() {
		// 收尾会撤销剩余的操作系统状态
		fw.EXPECT().CancelConnect(gomock.Any()).Return(nil).AnyTimes()
		fw.EXPECT().RemoveGroup(gomock.Any()).Return(nil).AnyTimes()
		fw.EXPECT().RemoveServiceRequest(gomock.Any()).Return(nil).AnyTimes()
		fw.EXPECT().StopPeerDiscovery().Return(nil).AnyTimes()
		fw.EXPECT().RemoveLocalService(gomock.Any()).Return(nil).AnyTimes()
		_ = b.Stop(context.Background())
	})

	return &fixture{b: b, fw: fw, sink: sink, clk: clk}
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// flush 等待此前入队的事件全部处理完
func (f *fixture) flush(t *testing.T) {
	t.Helper()
	_, err := f.b.Stats(ctx(t))
	require.NoError(t, err)
}

// setPeers 模拟一次 PEERS_CHANGED 并返回给定对端列表
func (f *fixture) setPeers(t *testing.T, ids ...types.DeviceID) {
	t.Helper()
	peers := make([]types.Peer, 0, len(ids))
	for _, id := range ids {
		peers = append(peers, types.Peer{DeviceID: id, DisplayName: "peer-" + string(id)})
	}
	f.fw.EXPECT().RequestPeers().Return(peers, nil)
	require.NoError(t, f.b.PeersChanged())
	f.flush(t)
}

// establish 建立一条到 device 的 ESTABLISHED 链路
func (f *fixture) establish(t *testing.T, device types.DeviceID, ifname string) types.LinkHandle {
	t.Helper()
	f.fw.EXPECT().Connect(device, 1).Return(nil)
	h, err := f.b.EstablishLink(ctx(t), device, 1)
	require.NoError(t, err)

	require.NoError(t, f.b.OnConnectionInfoAvailable(types.ConnectionInfo{
		GroupFormed:   true,
		InterfaceName: ifname,
		Devices:       []types.DeviceID{device},
	}))
	f.flush(t)

	st, err := f.b.LinkState(ctx(t), h)
	require.NoError(t, err)
	require.Equal(t, types.LinkStateEstablished, st)
	return h
}

func (f *fixture) state(t *testing.T, h types.LinkHandle) types.LinkState {
	t.Helper()
	st, err := f.b.LinkState(ctx(t), h)
	require.NoError(t, err)
	return st
}
