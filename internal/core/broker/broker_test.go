package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"

	"github.com/dep2p/go-p2plink/config"
	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
	"github.com/dep2p/go-p2plink/pkg/interfaces/mocks"
	"github.com/dep2p/go-p2plink/pkg/types"
)

func TestNew_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	fw := mocks.NewMockP2PFramework(ctrl)

	_, err := New(DefaultConfig(), nil, &recordingSink{})
	assert.ErrorIs(t, err, ErrNilFramework)

	_, err = New(DefaultConfig(), fw, nil)
	assert.ErrorIs(t, err, ErrNilSink)

	cfg := DefaultConfig()
	cfg.LinkTimeout = 0
	_, err = New(cfg, fw, &recordingSink{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBroker_NotRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	b, err := New(DefaultConfig(), mocks.NewMockP2PFramework(ctrl), &recordingSink{})
	require.NoError(t, err)

	assert.False(t, b.Running())
	_, err = b.EstablishLink(context.Background(), "dev-1", 1)
	assert.ErrorIs(t, err, types.ErrNotInitialized)
	assert.ErrorIs(t, b.PeersChanged(), types.ErrNotInitialized)
	assert.NoError(t, b.Stop(context.Background()))
}

// TestBroker_StopTearsDown 停止时撤销全部操作系统状态且不发信号
func TestBroker_StopTearsDown(t *testing.T) {
	f := newFixture(t, WithFirstHandle(10))
	f.setPeers(t, "dev-1", "dev-2")

	f.fw.EXPECT().DiscoverPeers().Return(nil)
	f.fw.EXPECT().AddServiceRequest("org").Return(nil)
	require.NoError(t, f.b.FindAdvertisedName(ctx(t), "org"))

	an := types.AdvertisedName{Name: "org.me", GUID: "g"}
	f.fw.EXPECT().AddLocalService(an).Return(nil)
	require.NoError(t, f.b.AdvertiseName(ctx(t), "org.me", "g"))

	f.establish(t, "dev-1", "p2p-wlan0-0")
	f.fw.EXPECT().Connect(types.DeviceID("dev-2"), 1).Return(nil)
	_, err := f.b.EstablishLink(ctx(t), "dev-2", 1)
	require.NoError(t, err)
	f.sink.reset()

	f.fw.EXPECT().RemoveGroup("p2p-wlan0-0").Return(nil)
	f.fw.EXPECT().CancelConnect(types.DeviceID("dev-2")).Return(nil)
	f.fw.EXPECT().RemoveServiceRequest("org").Return(nil)
	f.fw.EXPECT().StopPeerDiscovery().Return(nil)
	f.fw.EXPECT().RemoveLocalService(an).Return(nil)

	require.NoError(t, f.b.Stop(ctx(t)))
	assert.False(t, f.b.Running())
	assert.Empty(t, f.sink.all())
	assert.Equal(t, types.LinkHandle(12), f.b.NextHandle())

	_, err = f.b.EstablishLink(context.Background(), "dev-1", 1)
	assert.ErrorIs(t, err, types.ErrNotInitialized)

	// 第二次停止无操作
	require.NoError(t, f.b.Stop(ctx(t)))
}

func TestBroker_Snapshots(t *testing.T) {
	f := newFixture(t)
	f.setPeers(t, "DEV-B", "dev-a")

	peers, err := f.b.Peers(ctx(t))
	require.NoError(t, err)
	require.Len(t, peers, 2)
	assert.Equal(t, types.DeviceID("dev-a"), peers[0].DeviceID)
	assert.Equal(t, types.DeviceID("dev-b"), peers[1].DeviceID)

	require.NoError(t, f.b.SetDevice(types.Peer{DeviceID: "self", DisplayName: "me"}))
	stats, err := f.b.Stats(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Peers)
	assert.True(t, stats.Enabled)
}

func TestModule(t *testing.T) {
	ctrl := gomock.NewController(t)
	fw := mocks.NewMockP2PFramework(ctrl)
	sink := &recordingSink{}

	var lb pkgif.LinkBroker
	app := fxtest.New(t,
		fx.Supply(config.NewConfig()),
		fx.Provide(
			func() pkgif.P2PFramework { return fw },
			func() pkgif.SignalSink { return sink },
			fx.Annotate(func() types.LinkHandle { return 5 }, fx.ResultTags(`name:"first_handle"`)),
		),
		Module(),
		fx.Populate(&lb),
	)
	app.RequireStart()
	assert.True(t, lb.Running())
	assert.Equal(t, types.LinkHandle(5), lb.(*Broker).NextHandle())
	app.RequireStop()
	assert.False(t, lb.Running())

	t.Log("✅ Fx 模块装配通过")
}
