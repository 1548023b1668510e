package wpas

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/multierr"

	"github.com/dep2p/go-p2plink/config"
	"github.com/dep2p/go-p2plink/internal/core/dnssd"
	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
	"github.com/dep2p/go-p2plink/pkg/lib/log"
	"github.com/dep2p/go-p2plink/pkg/types"
)

var logger = log.Logger("core/wpas")

// 后端错误定义
var (
	// ErrNotStarted 后端未启动
	ErrNotStarted = errors.New("wpas: backend not started")

	// ErrUnknownGroup 未知的组接口
	ErrUnknownGroup = errors.New("wpas: unknown group interface")

	// ErrNoServiceRequest 前缀没有对应的服务发现请求
	ErrNoServiceRequest = errors.New("wpas: no service request for prefix")
)

// signalBuffer D-Bus 信号通道缓冲区大小
const signalBuffer = 64

// Option 后端选项
type Option func(*Backend)

// withDialer 替换 D-Bus 连接建立方式
func withDialer(dial func() (busConn, error)) Option {
	return func(b *Backend) {
		b.dial = dial
	}
}

// Backend wpa_supplicant P2P 后端
type Backend struct {
	cfg  config.BackendConfig
	dial func() (busConn, error)

	p2pEm  pkgif.Emitter
	scanEm pkgif.Emitter

	conn      busConn
	ifacePath dbus.ObjectPath
	sigCh     chan *dbus.Signal
	done      chan struct{}
	wg        sync.WaitGroup
	running   atomic.Bool

	mu         sync.Mutex
	requests   map[string]uint64
	groups     map[string]dbus.ObjectPath
	groupNames map[dbus.ObjectPath]string
	connecting types.DeviceID
	self       types.Peer
	nextTID    byte
}

var (
	_ pkgif.P2PFramework = (*Backend)(nil)
	_ pkgif.ScanTrigger  = (*Backend)(nil)
)

// New 创建后端
func New(cfg config.BackendConfig, bus pkgif.EventBus, opts ...Option) (*Backend, error) {
	p2pEm, err := bus.Emitter(new(types.P2PBroadcast))
	if err != nil {
		return nil, err
	}
	scanEm, err := bus.Emitter(new(types.ScanResultsEvent))
	if err != nil {
		_ = p2pEm.Close()
		return nil, err
	}

	b := &Backend{
		cfg:        cfg,
		dial:       dialSystemBus,
		p2pEm:      p2pEm,
		scanEm:     scanEm,
		requests:   make(map[string]uint64),
		groups:     make(map[string]dbus.ObjectPath),
		groupNames: make(map[dbus.ObjectPath]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 连接系统总线、定位网络接口并开始监听信号
func (b *Backend) Start(_ context.Context) error {
	if b.running.Load() {
		return nil
	}

	conn, err := b.dial()
	if err != nil {
		return fmt.Errorf("wpas: connect system bus: %w", err)
	}

	var iface dbus.ObjectPath
	if err := conn.Object(service, rootPath).Call(rootIface+".GetInterface", 0, b.cfg.Interface).Store(&iface); err != nil {
		_ = conn.Close()
		return fmt.Errorf("wpas: get interface %s: %w", b.cfg.Interface, err)
	}

	matches := append(interfaceMatches(iface),
		[]dbus.MatchOption{dbus.WithMatchInterface(rootIface), dbus.WithMatchObjectPath(rootPath)})
	for _, match := range matches {
		if err := conn.AddMatchSignal(match...); err != nil {
			_ = conn.Close()
			return fmt.Errorf("wpas: add match signal: %w", err)
		}
	}

	b.conn = conn
	b.mu.Lock()
	b.ifacePath = iface
	b.mu.Unlock()
	b.sigCh = make(chan *dbus.Signal, signalBuffer)
	b.done = make(chan struct{})
	conn.Signal(b.sigCh)
	b.running.Store(true)

	b.wg.Add(1)
	go b.signalLoop()

	logger.Info("wpa_supplicant 后端已启动", "iface", b.cfg.Interface, "path", iface)
	return nil
}

// Announce 发布初始状态广播
//
// 与 Start 分开调用：后端先于代理启动、晚于代理停止，
// 初始广播则要等订阅者全部就绪后再发出。
func (b *Backend) Announce(_ context.Context) error {
	if !b.running.Load() {
		return ErrNotStarted
	}
	b.emit(types.P2PBroadcast{Kind: types.EventStateChanged, Enabled: true})
	b.refreshSelf()
	b.emit(types.P2PBroadcast{Kind: types.EventPeersChanged})
	return nil
}

// Stop 停止监听并关闭连接
func (b *Backend) Stop(_ context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	b.conn.RemoveSignal(b.sigCh)
	close(b.done)
	b.wg.Wait()

	err := b.conn.Close()
	logger.Info("wpa_supplicant 后端已停止")
	return err
}

// Close 关闭发射器
func (b *Backend) Close() error {
	return multierr.Combine(b.p2pEm.Close(), b.scanEm.Close())
}

func (b *Backend) p2p() (dbus.BusObject, error) {
	if !b.running.Load() {
		return nil, ErrNotStarted
	}
	return b.conn.Object(service, b.iface()), nil
}

func (b *Backend) iface() dbus.ObjectPath {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ifacePath
}

// rebind 网络接口重新出现在新的对象路径上：为新路径注册信号匹配
func (b *Backend) rebind(path dbus.ObjectPath) {
	for _, match := range interfaceMatches(path) {
		if err := b.conn.AddMatchSignal(match...); err != nil {
			logger.Warn("注册信号匹配失败", "path", path, "error", err)
		}
	}
	b.mu.Lock()
	b.ifacePath = path
	b.mu.Unlock()
}

// interfaceMatches 网络接口对象上需要监听的信号
func interfaceMatches(path dbus.ObjectPath) [][]dbus.MatchOption {
	return [][]dbus.MatchOption{
		{dbus.WithMatchInterface(p2pIface), dbus.WithMatchObjectPath(path)},
		{dbus.WithMatchInterface(ifaceIface), dbus.WithMatchObjectPath(path), dbus.WithMatchMember("ScanDone")},
	}
}

func (b *Backend) emit(evt types.P2PBroadcast) {
	evt.Timestamp = time.Now()
	if err := b.p2pEm.Emit(&evt); err != nil {
		logger.Debug("发布 P2P 广播失败", "kind", evt.Kind, "error", err)
	}
}

// ============================================================================
//                              对端发现
// ============================================================================

// DiscoverPeers 启动对端发现会话
func (b *Backend) DiscoverPeers() error {
	obj, err := b.p2p()
	if err != nil {
		return err
	}
	args := map[string]dbus.Variant{}
	if t := b.cfg.FindTimeout.Duration(); t > 0 {
		args["Timeout"] = dbus.MakeVariant(int32(t / time.Second))
	}
	if err := obj.Call(p2pIface+".Find", 0, args).Err; err != nil {
		return err
	}
	b.emit(types.P2PBroadcast{Kind: types.EventDiscoveryChanged, Discovering: true})
	return nil
}

// StopPeerDiscovery 停止对端发现会话
func (b *Backend) StopPeerDiscovery() error {
	obj, err := b.p2p()
	if err != nil {
		return err
	}
	return obj.Call(p2pIface+".StopFind", 0).Err
}

// RequestPeers 返回当前对端列表
func (b *Backend) RequestPeers() ([]types.Peer, error) {
	obj, err := b.p2p()
	if err != nil {
		return nil, err
	}

	v, err := obj.GetProperty(p2pIface + ".Peers")
	if err != nil {
		return nil, err
	}
	paths, _ := v.Value().([]dbus.ObjectPath)

	peers := make([]types.Peer, 0, len(paths))
	for _, p := range paths {
		var props map[string]dbus.Variant
		if err := b.conn.Object(service, p).Call(propsGetAll, 0, peerIface).Store(&props); err != nil {
			// 对端可能在枚举期间消失
			logger.Debug("读取对端属性失败", "path", p, "error", err)
			continue
		}
		if peer := peerFromProps(p, props); !peer.DeviceID.IsEmpty() {
			peers = append(peers, peer)
		}
	}
	return peers, nil
}

// ============================================================================
//                              服务发现与通告
// ============================================================================

// AddServiceRequest 注册 Bonjour 服务发现请求
//
// 请求本身查询全部 Bonjour 服务，前缀过滤由链路代理完成。
func (b *Backend) AddServiceRequest(prefix string) error {
	obj, err := b.p2p()
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.nextTID++
	tid := b.nextTID
	b.mu.Unlock()

	args := map[string]dbus.Variant{"tlv": dbus.MakeVariant(dnssd.QueryTLV(tid))}
	var ref uint64
	if err := obj.Call(p2pIface+".ServiceDiscoveryRequest", 0, args).Store(&ref); err != nil {
		return err
	}

	b.mu.Lock()
	b.requests[prefix] = ref
	b.mu.Unlock()
	logger.Debug("服务发现请求已注册", "prefix", prefix, "ref", ref)
	return nil
}

// RemoveServiceRequest 取消服务发现请求
func (b *Backend) RemoveServiceRequest(prefix string) error {
	obj, err := b.p2p()
	if err != nil {
		return err
	}

	b.mu.Lock()
	ref, ok := b.requests[prefix]
	delete(b.requests, prefix)
	b.mu.Unlock()
	if !ok {
		return ErrNoServiceRequest
	}
	return obj.Call(p2pIface+".ServiceDiscoveryCancelRequest", 0, ref).Err
}

// AddLocalService 通告本地 Bonjour 服务
func (b *Backend) AddLocalService(an types.AdvertisedName) error {
	obj, err := b.p2p()
	if err != nil {
		return err
	}
	query, response, err := dnssd.EncodeService(an)
	if err != nil {
		return err
	}
	args := map[string]dbus.Variant{
		"service_type": dbus.MakeVariant(serviceTypeB),
		"query":        dbus.MakeVariant(query),
		"response":     dbus.MakeVariant(response),
	}
	return obj.Call(p2pIface+".AddService", 0, args).Err
}

// RemoveLocalService 撤回本地 Bonjour 服务
func (b *Backend) RemoveLocalService(an types.AdvertisedName) error {
	obj, err := b.p2p()
	if err != nil {
		return err
	}
	query, _, err := dnssd.EncodeService(an)
	if err != nil {
		return err
	}
	args := map[string]dbus.Variant{
		"service_type": dbus.MakeVariant(serviceTypeB),
		"query":        dbus.MakeVariant(query),
	}
	return obj.Call(p2pIface+".DeleteService", 0, args).Err
}

// ============================================================================
//                              组形成
// ============================================================================

// Connect 向对端发起组形成
//
// 方法调用异步完成；调用失败以 CONNECT_FAILED 广播报告。
func (b *Backend) Connect(device types.DeviceID, groupOwnerIntent int) error {
	obj, err := b.p2p()
	if err != nil {
		return err
	}
	device = device.Normalize()

	args := map[string]dbus.Variant{
		"peer":       dbus.MakeVariant(peerPath(b.iface(), device)),
		"wps_method": dbus.MakeVariant(b.cfg.WPSMethod),
		"go_intent":  dbus.MakeVariant(int32(groupOwnerIntent)),
	}

	b.mu.Lock()
	b.connecting = device
	b.mu.Unlock()

	ch := make(chan *dbus.Call, 1)
	obj.Go(p2pIface+".Connect", 0, ch, args)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		select {
		case call := <-ch:
			if call.Err != nil {
				logger.Warn("组形成请求失败", "device", device, "error", call.Err)
				b.emit(types.P2PBroadcast{
					Kind:    types.EventConnectFailed,
					Failure: types.ConnectFailure{Device: device, Reason: call.Err.Error()},
				})
			}
		case <-b.done:
		}
	}()
	return nil
}

// CancelConnect 取消进行中的组形成
func (b *Backend) CancelConnect(device types.DeviceID) error {
	obj, err := b.p2p()
	if err != nil {
		return err
	}
	b.mu.Lock()
	if b.connecting == device.Normalize() {
		b.connecting = ""
	}
	b.mu.Unlock()
	return obj.Call(p2pIface+".Cancel", 0).Err
}

// RemoveGroup 解散接口上的组
func (b *Backend) RemoveGroup(interfaceName string) error {
	if _, err := b.p2p(); err != nil {
		return err
	}
	b.mu.Lock()
	path, ok := b.groups[interfaceName]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, interfaceName)
	}
	return b.conn.Object(service, path).Call(p2pIface+".Disconnect", 0).Err
}

// ============================================================================
//                              扫描
// ============================================================================

// RequestScan 触发一次主动扫描，结果在 ScanDone 后发布
func (b *Backend) RequestScan() error {
	obj, err := b.p2p()
	if err != nil {
		return err
	}
	args := map[string]dbus.Variant{"Type": dbus.MakeVariant("active")}
	return obj.Call(ifaceIface+".Scan", 0, args).Err
}

// readScanResults 读取当前 BSS 列表与关联的接入点
func (b *Backend) readScanResults() types.ScanResultsEvent {
	evt := types.ScanResultsEvent{Timestamp: time.Now()}
	obj := b.conn.Object(service, b.iface())

	if v, err := obj.GetProperty(ifaceIface + ".BSSs"); err == nil {
		paths, _ := v.Value().([]dbus.ObjectPath)
		for _, p := range paths {
			var props map[string]dbus.Variant
			if err := b.conn.Object(service, p).Call(propsGetAll, 0, bssIface).Store(&props); err != nil {
				continue
			}
			evt.Results = append(evt.Results, scanResultFromProps(props))
		}
	}

	if v, err := obj.GetProperty(ifaceIface + ".CurrentBSS"); err == nil {
		if p, ok := v.Value().(dbus.ObjectPath); ok && p != "/" && p != "" {
			var props map[string]dbus.Variant
			if err := b.conn.Object(service, p).Call(propsGetAll, 0, bssIface).Store(&props); err == nil {
				cur := scanResultFromProps(props)
				evt.CurrentBSSID, evt.CurrentSSID = cur.BSSID, cur.SSID
			}
		}
	}
	return evt
}

// refreshSelf 读取本机 P2P 设备名并发布 THIS_DEVICE_CHANGED
func (b *Backend) refreshSelf() {
	obj := b.conn.Object(service, b.iface())
	v, err := obj.GetProperty(p2pIface + ".P2PDeviceConfig")
	if err != nil {
		logger.Debug("读取 P2P 设备配置失败", "error", err)
		return
	}
	cfg, _ := v.Value().(map[string]dbus.Variant)

	b.mu.Lock()
	b.self.DisplayName = variantString(cfg, "DeviceName")
	self := b.self
	b.mu.Unlock()

	b.emit(types.P2PBroadcast{Kind: types.EventThisDeviceChanged, Device: self})
}
