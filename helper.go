package p2plink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-p2plink/config"
	"github.com/dep2p/go-p2plink/internal/core/broker"
	"github.com/dep2p/go-p2plink/internal/core/eventbus"
	"github.com/dep2p/go-p2plink/internal/core/legacyscan"
	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
	"github.com/dep2p/go-p2plink/pkg/lib/log"
	"github.com/dep2p/go-p2plink/pkg/types"
)

var logger = log.Logger("p2plink")

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期常量
// ════════════════════════════════════════════════════════════════════════════

const (
	// stopTimeout Shutdown 等待 Fx 应用停止的上限
	stopTimeout = 10 * time.Second

	// startupKey / shutdownKey singleflight 键
	startupKey  = "startup"
	shutdownKey = "shutdown"
)

// session 一次启动的运行时状态
//
// Startup 成功后整体发布，Shutdown 整体撤下；RPC 与信号路径只读取它，不获取 Helper 锁。
type session struct {
	app     *fx.App
	bridge  pkgif.NativeBridge
	broker  *broker.Broker
	scanner pkgif.ScanTrigger
	legacy  *legacyscan.Adapter
	reaper  *clock.Timer

	// failed 通道已失败，等待撤下
	failed atomic.Bool
	// done 撤下完成后关闭
	done chan struct{}
}

// Helper 原生守护进程与链路代理之间的门面
//
// 实现 interfaces.BridgeHandler（守护进程的 RPC 请求）和
// interfaces.SignalSink（链路代理的信号输出）。
// Helper 本身不缓存任何对端或链路状态，全部委托给当前启动的 Broker。
type Helper struct {
	opts       *options
	bus        pkgif.EventBus
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer

	p2pEm    pkgif.Emitter
	scanEm   pkgif.Emitter
	signalEm pkgif.Emitter

	sf     singleflight.Group
	mu     sync.Mutex
	closed bool

	// nextHandle 下一次启动的起始句柄
	nextHandle types.LinkHandle

	sess      atomic.Pointer[session]
	connected atomic.Bool
	lastRPC   atomic.Int64
}

var (
	_ pkgif.BridgeHandler = (*Helper)(nil)
	_ pkgif.SignalSink    = (*Helper)(nil)
)

// New 创建 Helper
//
// New 不连接通道也不启动代理，需要调用 Startup。
func New(opts ...Option) (*Helper, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if o.framework == nil && o.cfg.Backend.Kind != config.BackendWpas {
		return nil, ErrNoFramework
	}

	h := &Helper{
		opts:       o,
		bus:        o.bus,
		registerer: o.registerer,
		nextHandle: 1,
	}
	if h.bus == nil {
		h.bus = eventbus.NewBus()
	}
	if h.registerer == nil {
		reg := prometheus.NewRegistry()
		h.registerer = reg
		h.gatherer = reg
	} else if g, ok := h.registerer.(prometheus.Gatherer); ok {
		h.gatherer = g
	}

	var err error
	if h.p2pEm, err = h.bus.Emitter(new(types.P2PBroadcast)); err != nil {
		return nil, err
	}
	if h.scanEm, err = h.bus.Emitter(new(types.ScanResultsEvent)); err != nil {
		return nil, err
	}
	if h.signalEm, err = h.bus.Emitter(new(types.SignalEvent)); err != nil {
		return nil, err
	}
	return h, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              Startup / Shutdown
// ════════════════════════════════════════════════════════════════════════════

// Startup 连接原生通道并启动链路代理
//
// 已启动时直接返回成功；并发调用合并为一次。
// 通道连接失败会同时通过失败回调报告。
func (h *Helper) Startup(ctx context.Context) error {
	_, err, _ := h.sf.Do(startupKey, func() (interface{}, error) {
		return nil, h.startup(ctx)
	})
	return err
}

func (h *Helper) startup(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if s := h.sess.Load(); s != nil {
		if !s.failed.Load() {
			return nil
		}
		// 通道已失败的启动不可复用：先同步撤下，异步撤下随后成为空操作
		_ = h.stopSession(ctx, s)
	}

	// ════════════════════════════════════════════════════════════════════════
	// Phase 1: 原生通道
	// ════════════════════════════════════════════════════════════════════════
	br := h.opts.newBridge(h.opts.cfg.Bridge)
	if err := br.Connect(ctx, h); err != nil {
		logger.Error("原生通道连接失败", "error", err)
		h.opts.onFailure(err)
		return fmt.Errorf("connect native channel: %w", err)
	}
	h.connected.Store(true)

	// ════════════════════════════════════════════════════════════════════════
	// Phase 2: 链路代理与适配器
	// ════════════════════════════════════════════════════════════════════════
	var refs startupRefs
	app, err := buildFxApp(h, h.nextHandle, &refs)
	if err == nil {
		err = app.Err()
	}
	if err == nil {
		err = app.Start(ctx)
	}
	if err != nil {
		h.connected.Store(false)
		_ = br.Close()
		logger.Error("链路代理启动失败", "error", err)
		return fmt.Errorf("start broker: %w", err)
	}

	s := &session{
		app:     app,
		bridge:  br,
		broker:  refs.Broker,
		scanner: refs.Scanner,
		legacy:  refs.Legacy,
		done:    make(chan struct{}),
	}
	h.touch()
	if idle := h.opts.cfg.Bridge.IdleTimeout.Duration(); idle > 0 {
		s.reaper = h.opts.clk.AfterFunc(idle, func() { h.reap(s, idle) })
	}
	h.sess.Store(s)

	// 启动期间通道已断开：fail 当时看不到这次启动，这里补上撤下
	if !h.connected.Load() {
		s.failed.Store(true)
		go func() {
			_ = h.shutdown(context.Background(), s)
		}()
	}

	logger.Info("Helper 已启动", "firstHandle", h.nextHandle)
	return nil
}

// Shutdown 停止链路代理并断开原生通道
//
// 代理收尾时释放所有链路、取消所有查找、撤回所有通告；随后关闭通道。
// 无论各步骤是否出错都会执行完毕，错误合并返回。未启动时返回 nil。
func (h *Helper) Shutdown(ctx context.Context) error {
	_, err, _ := h.sf.Do(shutdownKey, func() (interface{}, error) {
		return nil, h.shutdown(ctx, nil)
	})
	return err
}

// shutdown 撤下当前启动；want 非 nil 时只在当前启动仍是 want 时执行
func (h *Helper) shutdown(ctx context.Context, want *session) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.sess.Load()
	if s == nil || (want != nil && s != want) {
		return nil
	}
	return h.stopSession(ctx, s)
}

// stopSession 撤下 s，调用方持有 h.mu
func (h *Helper) stopSession(ctx context.Context, s *session) error {
	h.sess.Store(nil)
	defer close(s.done)

	if s.reaper != nil {
		s.reaper.Stop()
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()

	var err error
	if e := s.app.Stop(stopCtx); e != nil {
		err = multierr.Append(err, fmt.Errorf("stop broker: %w", e))
	}
	if next := s.broker.NextHandle(); next > h.nextHandle {
		h.nextHandle = next
	}

	h.connected.Store(false)
	if e := s.bridge.Close(); e != nil {
		err = multierr.Append(err, fmt.Errorf("close native channel: %w", e))
	}

	if err != nil {
		logger.Warn("Helper 关闭时出现错误", "error", err)
	} else {
		logger.Info("Helper 已关闭", "nextHandle", h.nextHandle)
	}
	return err
}

// Close 关闭 Helper，之后不能再 Startup
func (h *Helper) Close() error {
	err := h.Shutdown(context.Background())

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return err
	}
	h.closed = true

	return multierr.Combine(err, h.p2pEm.Close(), h.scanEm.Close(), h.signalEm.Close())
}

// Running 是否已启动
func (h *Helper) Running() bool {
	s := h.sess.Load()
	return s != nil && s.broker.Running()
}

// Done 返回当前启动撤下时关闭的通道；未启动时返回已关闭的通道
//
// 通道失败、空闲回收和显式 Shutdown 都会关闭它。
func (h *Helper) Done() <-chan struct{} {
	if s := h.sess.Load(); s != nil {
		return s.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// Connected 原生通道是否连接
func (h *Helper) Connected() bool {
	return h.connected.Load()
}

// fail 处理致命的通道错误：通知宿主并异步关闭当前启动
func (h *Helper) fail(err error) {
	if !h.connected.CompareAndSwap(true, false) {
		return
	}
	s := h.sess.Load()
	if s != nil {
		s.failed.Store(true)
	}
	logger.Error("原生通道失败，关闭 Helper", "error", err)
	h.opts.onFailure(err)

	go func() {
		_ = h.shutdown(context.Background(), s)
	}()
}

// touch 记录最近一次 RPC 时间
func (h *Helper) touch() {
	h.lastRPC.Store(h.opts.clk.Now().UnixNano())
}

// reap 空闲回收：超过 idle 没有 RPC 时关闭当前启动
func (h *Helper) reap(s *session, idle time.Duration) {
	if h.sess.Load() != s {
		return
	}
	since := h.opts.clk.Now().Sub(time.Unix(0, h.lastRPC.Load()))
	if since < idle {
		s.reaper.Reset(idle - since)
		return
	}
	logger.Info("空闲超时，自动关闭", "idle", since)
	_ = h.shutdown(context.Background(), s)
}

// ════════════════════════════════════════════════════════════════════════════
//                              RPC（BridgeHandler）
// ════════════════════════════════════════════════════════════════════════════

// rpc 在当前启动的代理上执行请求
func (h *Helper) rpc(fn func(ctx context.Context, b *broker.Broker) error) error {
	s := h.sess.Load()
	if s == nil {
		return types.ErrNotInitialized
	}
	h.touch()

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.cfg.Broker.RequestTimeout.Duration())
	defer cancel()
	return fn(ctx, s.broker)
}

// FindAdvertisedName 开始查找名称前缀
func (h *Helper) FindAdvertisedName(namePrefix string) types.Status {
	return types.StatusOf(h.rpc(func(ctx context.Context, b *broker.Broker) error {
		return b.FindAdvertisedName(ctx, namePrefix)
	}))
}

// CancelFindAdvertisedName 取消名称前缀查找
func (h *Helper) CancelFindAdvertisedName(namePrefix string) types.Status {
	return types.StatusOf(h.rpc(func(ctx context.Context, b *broker.Broker) error {
		return b.CancelFindAdvertisedName(ctx, namePrefix)
	}))
}

// AdvertiseName 通告本地名称
func (h *Helper) AdvertiseName(name, guid string) types.Status {
	return types.StatusOf(h.rpc(func(ctx context.Context, b *broker.Broker) error {
		return b.AdvertiseName(ctx, name, guid)
	}))
}

// CancelAdvertiseName 撤回本地名称
func (h *Helper) CancelAdvertiseName(name, guid string) types.Status {
	return types.StatusOf(h.rpc(func(ctx context.Context, b *broker.Broker) error {
		return b.CancelAdvertiseName(ctx, name, guid)
	}))
}

// EstablishLink 请求建立链路，成功返回正的句柄，失败返回负的状态码
func (h *Helper) EstablishLink(device string, groupOwnerIntent int) int32 {
	var handle types.LinkHandle
	err := h.rpc(func(ctx context.Context, b *broker.Broker) (err error) {
		handle, err = b.EstablishLink(ctx, types.DeviceID(device), groupOwnerIntent)
		return err
	})
	if err != nil {
		return int32(types.StatusOf(err))
	}
	return int32(handle)
}

// ReleaseLink 释放链路
func (h *Helper) ReleaseLink(handle int32) types.Status {
	return types.StatusOf(h.rpc(func(ctx context.Context, b *broker.Broker) error {
		return b.ReleaseLink(ctx, types.LinkHandle(handle))
	}))
}

// GetInterfaceNameFromHandle 返回链路接口名，未知句柄或链路未建立时返回空字符串
func (h *Helper) GetInterfaceNameFromHandle(handle int32) string {
	var name string
	err := h.rpc(func(ctx context.Context, b *broker.Broker) (err error) {
		name, err = b.GetInterfaceNameFromHandle(ctx, types.LinkHandle(handle))
		return err
	})
	if err != nil {
		logger.Debug("查询接口名失败", "handle", handle, "error", err)
		return ""
	}
	return name
}

// OnChannelDown 通道在读写中断开
func (h *Helper) OnChannelDown(err error) {
	if err == nil {
		err = types.ErrChannelDown
	}
	h.fail(err)
}

// ════════════════════════════════════════════════════════════════════════════
//                              信号（SignalSink）
// ════════════════════════════════════════════════════════════════════════════

// OnFoundAdvertisedName 发现名称
func (h *Helper) OnFoundAdvertisedName(name, namePrefix, guid string, device types.DeviceID) {
	h.deliver(types.Signal{
		Kind:       types.SignalFoundAdvertisedName,
		Name:       name,
		NamePrefix: namePrefix,
		GUID:       guid,
		Device:     device,
	})
}

// OnLostAdvertisedName 名称丢失
func (h *Helper) OnLostAdvertisedName(name, namePrefix, guid string, device types.DeviceID) {
	h.deliver(types.Signal{
		Kind:       types.SignalLostAdvertisedName,
		Name:       name,
		NamePrefix: namePrefix,
		GUID:       guid,
		Device:     device,
	})
}

// OnLinkEstablished 链路建立
func (h *Helper) OnLinkEstablished(handle types.LinkHandle, interfaceName string) {
	h.deliver(types.Signal{
		Kind:          types.SignalLinkEstablished,
		Handle:        handle,
		InterfaceName: interfaceName,
	})
}

// OnLinkError 链路失败
func (h *Helper) OnLinkError(handle types.LinkHandle, code types.Status) {
	h.deliver(types.Signal{
		Kind:   types.SignalLinkError,
		Handle: handle,
		Code:   code,
	})
}

// OnLinkLost 链路丢失
func (h *Helper) OnLinkLost(handle types.LinkHandle) {
	h.deliver(types.Signal{
		Kind:   types.SignalLinkLost,
		Handle: handle,
	})
}

// deliver 投递信号
//
// 通道未连接时记录并丢弃；投递失败是致命的，Helper 随即关闭。
func (h *Helper) deliver(sig types.Signal) {
	delivered := false
	defer func() {
		_ = h.signalEm.Emit(&types.SignalEvent{
			Signal:    sig,
			Delivered: delivered,
			Timestamp: h.opts.clk.Now(),
		})
	}()

	s := h.sess.Load()
	if s == nil || !h.connected.Load() {
		logger.Warn("原生通道未连接，丢弃信号", "signal", sig.Kind, "handle", sig.Handle, "name", sig.Name)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.cfg.Bridge.WriteTimeout.Duration())
	defer cancel()
	if err := s.bridge.Send(ctx, sig); err != nil {
		if !errors.Is(err, types.ErrChannelDown) {
			err = fmt.Errorf("%w: %v", types.ErrChannelDown, err)
		}
		h.fail(err)
		return
	}
	delivered = true
	logger.Debug("信号已投递", "signal", sig.Kind, "handle", sig.Handle, "name", sig.Name)
}

// ════════════════════════════════════════════════════════════════════════════
//                              宿主事件入口
// ════════════════════════════════════════════════════════════════════════════

// PostBroadcast 投递一个操作系统 P2P 广播
//
// 用于注入框架的宿主；内置后端自行发布广播。未启动时事件被丢弃。
func (h *Helper) PostBroadcast(evt types.P2PBroadcast) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = h.opts.clk.Now()
	}
	return h.p2pEm.Emit(&evt)
}

// PostScanResults 投递一次 Wi-Fi 扫描结果
func (h *Helper) PostScanResults(evt types.ScanResultsEvent) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = h.opts.clk.Now()
	}
	return h.scanEm.Emit(&evt)
}

// RequestScan 触发一次 Wi-Fi 扫描
func (h *Helper) RequestScan() error {
	s := h.sess.Load()
	if s == nil {
		return types.ErrNotInitialized
	}
	if s.scanner == nil {
		return ErrScanUnsupported
	}
	return s.scanner.RequestScan()
}

// HasScanResults 当前启动是否已收到过扫描结果
func (h *Helper) HasScanResults() bool {
	s := h.sess.Load()
	return s != nil && s.legacy != nil && s.legacy.HasScanResults()
}

// ════════════════════════════════════════════════════════════════════════════
//                              自省
// ════════════════════════════════════════════════════════════════════════════

// Stats 返回链路代理统计快照
func (h *Helper) Stats(ctx context.Context) (types.BrokerStats, error) {
	s := h.sess.Load()
	if s == nil {
		return types.BrokerStats{}, types.ErrNotInitialized
	}
	return s.broker.Stats(ctx)
}

// Links 返回非终态链路快照
func (h *Helper) Links(ctx context.Context) ([]types.LinkInfo, error) {
	s := h.sess.Load()
	if s == nil {
		return nil, types.ErrNotInitialized
	}
	return s.broker.Links(ctx)
}

// Peers 返回对端表快照
func (h *Helper) Peers(ctx context.Context) ([]types.Peer, error) {
	s := h.sess.Load()
	if s == nil {
		return nil, types.ErrNotInitialized
	}
	return s.broker.Peers(ctx)
}

// Discovered 返回已发现名称快照
func (h *Helper) Discovered(ctx context.Context) ([]types.DiscoveredName, error) {
	s := h.sess.Load()
	if s == nil {
		return nil, types.ErrNotInitialized
	}
	return s.broker.Discovered(ctx)
}

// EventBus 返回 Helper 的事件总线
func (h *Helper) EventBus() pkgif.EventBus {
	return h.bus
}

// Gatherer 返回指标读取端，使用外部注册表且其不支持读取时返回 nil
func (h *Helper) Gatherer() prometheus.Gatherer {
	return h.gatherer
}
