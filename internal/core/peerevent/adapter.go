package peerevent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
	"github.com/dep2p/go-p2plink/pkg/lib/log"
	"github.com/dep2p/go-p2plink/pkg/types"
)

var logger = log.Logger("core/peerevent")

// subscriptionBuffer 广播订阅缓冲区大小
const subscriptionBuffer = 64

// ErrNilTarget 未提供事件目标
var ErrNilTarget = errors.New("peerevent: nil target")

// Target 广播转换的目标
type Target interface {
	pkgif.BrokerEvents

	// Running 目标是否在运行
	Running() bool
}

// Adapter 原始 P2P 广播适配器
type Adapter struct {
	bus    pkgif.EventBus
	target Target

	mu   sync.Mutex
	self types.Peer
	seen bool

	sub     pkgif.Subscription
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	handled atomic.Int64
	dropped atomic.Int64
}

// New 创建适配器
func New(bus pkgif.EventBus, target Target) (*Adapter, error) {
	if bus == nil || target == nil {
		return nil, ErrNilTarget
	}
	return &Adapter{bus: bus, target: target}, nil
}

// Start 订阅广播并开始转换
//
// 订阅在返回前完成，之后发布的广播都不会遗漏。
func (a *Adapter) Start(_ context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return nil
	}

	sub, err := a.bus.Subscribe(new(types.P2PBroadcast),
		pkgif.Lossless(),
		pkgif.BufSize(subscriptionBuffer),
	)
	if err != nil {
		a.running.Store(false)
		return err
	}
	a.sub = sub
	a.done = make(chan struct{})

	a.wg.Add(1)
	go a.run()

	logger.Info("P2P 广播适配器已启动")
	return nil
}

// Stop 取消订阅并等待转换循环退出
func (a *Adapter) Stop(_ context.Context) error {
	if !a.running.CompareAndSwap(true, false) {
		return nil
	}
	close(a.done)
	err := a.sub.Close()
	a.wg.Wait()

	logger.Info("P2P 广播适配器已停止",
		"handled", a.handled.Load(),
		"dropped", a.dropped.Load())
	return err
}

func (a *Adapter) run() {
	defer a.wg.Done()

	for {
		select {
		case <-a.done:
			return
		case evt, ok := <-a.sub.Out():
			if !ok {
				return
			}
			switch b := evt.(type) {
			case *types.P2PBroadcast:
				a.Handle(*b)
			case types.P2PBroadcast:
				a.Handle(b)
			}
		}
	}
}

// Handle 转换一次广播
func (a *Adapter) Handle(evt types.P2PBroadcast) {
	if !a.target.Running() {
		a.dropped.Add(1)
		logger.Debug("链路代理未运行，丢弃广播", "kind", evt.Kind)
		return
	}

	var err error
	switch evt.Kind {
	case types.EventStateChanged:
		err = a.target.SetEnabled(evt.Enabled)
	case types.EventConnectionChanged:
		err = a.target.OnConnectionInfoAvailable(evt.Connection)
	case types.EventThisDeviceChanged:
		if !a.rememberSelf(evt.Device) {
			logger.Debug("本机设备信息未变化，忽略", "device", evt.Device.DeviceID)
			return
		}
		err = a.target.SetDevice(evt.Device)
	case types.EventDiscoveryChanged:
		err = a.target.DiscoveryChanged(evt.Discovering)
	case types.EventPeersChanged:
		err = a.target.PeersChanged()
	case types.EventServiceResponse:
		err = a.target.OnServiceResponse(evt.Service)
	case types.EventConnectFailed:
		err = a.target.OnConnectFailed(evt.Failure)
	default:
		logger.Warn("未知的 P2P 广播类型", "kind", int(evt.Kind))
		return
	}

	if err != nil {
		a.dropped.Add(1)
		logger.Debug("广播转换失败，丢弃", "kind", evt.Kind, "error", err)
		return
	}
	a.handled.Add(1)
}

// rememberSelf 记录本机设备信息，与上次相同时返回 false
func (a *Adapter) rememberSelf(p types.Peer) bool {
	p.DeviceID = p.DeviceID.Normalize()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seen && a.self == p {
		return false
	}
	a.self, a.seen = p, true
	return true
}

// Self 返回最近一次的本机设备信息
func (a *Adapter) Self() (types.Peer, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.self, a.seen
}

// Handled 已转换的广播数
func (a *Adapter) Handled() int64 { return a.handled.Load() }

// Dropped 已丢弃的广播数
func (a *Adapter) Dropped() int64 { return a.dropped.Load() }
