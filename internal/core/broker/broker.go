package broker

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
	"github.com/dep2p/go-p2plink/pkg/lib/log"
	"github.com/dep2p/go-p2plink/pkg/types"
)

var logger = log.Logger("core/broker")

// Option 链路代理选项
type Option func(*Broker)

// WithClock 设置时钟（测试使用 clock.NewMock()）
func WithClock(clk clock.Clock) Option {
	return func(b *Broker) {
		if clk != nil {
			b.clk = clk
		}
	}
}

// WithFirstHandle 设置第一个分配的句柄
//
// 用于在多次启动之间延续句柄序列，保证句柄不被复用。
func WithFirstHandle(h types.LinkHandle) Option {
	return func(b *Broker) {
		if h.IsValid() {
			b.firstHandle = h
		}
	}
}

// Broker 链路代理
type Broker struct {
	cfg  Config
	fw   pkgif.P2PFramework
	sink pkgif.SignalSink
	clk  clock.Clock

	cmds     chan func()
	quit     chan struct{}
	started  atomic.Bool
	running  atomic.Bool
	stopOnce sync.Once
	wg       sync.WaitGroup

	firstHandle types.LinkHandle
	lastIssued  atomic.Int32

	// 以下字段仅在事件循环内访问

	enabled     bool
	self        types.Peer
	discovering bool
	advertised  map[types.AdvertisedName]bool
	finds       map[string]*findEntry
	peers       map[types.DeviceID]types.Peer
	services    map[types.DeviceID][]types.AdvertisedName
	discovered  map[nameKey]*discoveredEntry
	links       map[types.LinkHandle]*link
	byDevice    map[types.DeviceID]types.LinkHandle
	history     *lru.Cache[types.LinkHandle, types.LinkState]
	pending     []types.LinkHandle
	inFlight    types.LinkHandle
	nextHandle  types.LinkHandle

	limiter      *rate.Limiter
	restartTimer *clock.Timer
}

var _ pkgif.LinkBroker = (*Broker)(nil)

// New 创建链路代理
func New(cfg Config, fw pkgif.P2PFramework, sink pkgif.SignalSink, opts ...Option) (*Broker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fw == nil {
		return nil, ErrNilFramework
	}
	if sink == nil {
		return nil, ErrNilSink
	}

	history, err := lru.New[types.LinkHandle, types.LinkState](cfg.ReleasedHistorySize)
	if err != nil {
		return nil, err
	}

	b := &Broker{
		cfg:         cfg,
		fw:          fw,
		sink:        sink,
		clk:         clock.New(),
		cmds:        make(chan func(), cfg.CommandQueueSize),
		quit:        make(chan struct{}),
		firstHandle: 1,
		enabled:     cfg.AssumeEnabled,
		advertised:  make(map[types.AdvertisedName]bool),
		finds:       make(map[string]*findEntry),
		peers:       make(map[types.DeviceID]types.Peer),
		services:    make(map[types.DeviceID][]types.AdvertisedName),
		discovered:  make(map[nameKey]*discoveredEntry),
		links:       make(map[types.LinkHandle]*link),
		byDevice:    make(map[types.DeviceID]types.LinkHandle),
		history:     history,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.nextHandle = b.firstHandle
	b.lastIssued.Store(int32(b.firstHandle) - 1)

	limit := rate.Inf
	if cfg.DiscoveryRestartInterval > 0 {
		limit = rate.Every(cfg.DiscoveryRestartInterval)
	}
	b.limiter = rate.NewLimiter(limit, cfg.DiscoveryRestartBurst)

	return b, nil
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动事件循环
//
// 每个 Broker 只能启动一次；Stop 之后需要创建新的实例。
func (b *Broker) Start(_ context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return nil
	}
	b.running.Store(true)
	b.wg.Add(1)
	go b.loop()

	logger.Info("链路代理已启动",
		"linkTimeout", b.cfg.LinkTimeout,
		"firstHandle", b.firstHandle,
		"enabled", b.cfg.AssumeEnabled)
	return nil
}

// Stop 释放所有链路、取消所有查找、撤回所有通告，然后停止事件循环
//
// 收尾过程不发出信号：原生侧此时正在断开。
func (b *Broker) Stop(ctx context.Context) error {
	if !b.running.Load() {
		return nil
	}

	err := b.do(ctx, b.teardown)

	b.stopOnce.Do(func() {
		b.running.Store(false)
		close(b.quit)
	})
	b.wg.Wait()

	logger.Info("链路代理已停止", "lastHandle", b.lastIssued.Load())
	return err
}

// Running 事件循环是否在运行
func (b *Broker) Running() bool {
	return b.running.Load()
}

// NextHandle 返回下一个将被分配的句柄
func (b *Broker) NextHandle() types.LinkHandle {
	return types.LinkHandle(b.lastIssued.Load() + 1)
}

// loop 事件循环
func (b *Broker) loop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.quit:
			return
		case cmd := <-b.cmds:
			cmd()
		}
	}
}

// do 在事件循环上执行 fn 并等待其完成
//
// ctx 只限制入队等待；一旦入队，fn 很快会被执行（事件循环不等待网络），
// 因此始终等待执行结果，避免调用方丢失已生效的操作（例如已分配的句柄）。
func (b *Broker) do(ctx context.Context, fn func()) error {
	if !b.running.Load() {
		return types.ErrNotInitialized
	}

	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}

	select {
	case b.cmds <- cmd:
	case <-b.quit:
		return types.ErrNotInitialized
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-b.quit:
		select {
		case <-done:
			return nil
		default:
			return types.ErrNotInitialized
		}
	}
}

// post 将 fn 入队到事件循环，不等待执行
func (b *Broker) post(fn func()) error {
	if !b.running.Load() {
		return types.ErrNotInitialized
	}
	select {
	case b.cmds <- fn:
		return nil
	case <-b.quit:
		return types.ErrNotInitialized
	}
}

// call 在事件循环上执行 fn 并返回其结果
func call[T any](ctx context.Context, b *Broker, fn func() (T, error)) (T, error) {
	var (
		res T
		err error
	)
	if e := b.do(ctx, func() { res, err = fn() }); e != nil {
		var zero T
		return zero, e
	}
	return res, err
}

// ============================================================================
//                              快照
// ============================================================================

// Links 返回非终态链路快照，按句柄排序
func (b *Broker) Links(ctx context.Context) ([]types.LinkInfo, error) {
	return call(ctx, b, func() ([]types.LinkInfo, error) {
		out := make([]types.LinkInfo, 0, len(b.links))
		for _, h := range sortedHandles(b.links) {
			out = append(out, b.links[h].info())
		}
		return out, nil
	})
}

// LinkState 返回句柄当前状态
//
// 非终态链路返回当前状态；终态句柄在历史容量内返回其终态；其余返回 ErrUnknownHandle。
func (b *Broker) LinkState(ctx context.Context, h types.LinkHandle) (types.LinkState, error) {
	return call(ctx, b, func() (types.LinkState, error) {
		if l, ok := b.links[h]; ok {
			return l.state, nil
		}
		if st, ok := b.history.Peek(h); ok {
			return st, nil
		}
		return 0, types.ErrUnknownHandle
	})
}

// Peers 返回对端表快照，按设备地址排序
func (b *Broker) Peers(ctx context.Context) ([]types.Peer, error) {
	return call(ctx, b, func() ([]types.Peer, error) {
		out := make([]types.Peer, 0, len(b.peers))
		for _, id := range sortedKeys(b.peers) {
			out = append(out, b.peers[id])
		}
		return out, nil
	})
}

// Discovered 返回已发现名称快照，每个 (name, device, prefix) 一条
func (b *Broker) Discovered(ctx context.Context) ([]types.DiscoveredName, error) {
	return call(ctx, b, func() ([]types.DiscoveredName, error) {
		var out []types.DiscoveredName
		for _, key := range sortedNameKeys(b.discovered) {
			e := b.discovered[key]
			for _, prefix := range e.prefixes {
				out = append(out, types.DiscoveredName{
					Name:       key.name,
					NamePrefix: prefix,
					GUID:       e.guid,
					Device:     key.device,
				})
			}
		}
		return out, nil
	})
}

// FindRequests 返回查找请求快照
func (b *Broker) FindRequests(ctx context.Context) ([]types.FindRequest, error) {
	return call(ctx, b, func() ([]types.FindRequest, error) {
		out := make([]types.FindRequest, 0, len(b.finds))
		for _, prefix := range sortedKeys(b.finds) {
			out = append(out, types.FindRequest{NamePrefix: prefix, RefCount: b.finds[prefix].refCount})
		}
		return out, nil
	})
}

// Stats 返回统计快照
func (b *Broker) Stats(ctx context.Context) (types.BrokerStats, error) {
	return call(ctx, b, func() (types.BrokerStats, error) {
		return types.BrokerStats{
			ActiveLinks:     len(b.links) - len(b.pending),
			QueuedLinks:     len(b.pending),
			FindRequests:    len(b.finds),
			AdvertisedNames: len(b.advertised),
			Peers:           len(b.peers),
			DiscoveredNames: len(b.discovered),
			Enabled:         b.enabled,
			Discovering:     b.discovering,
		}, nil
	})
}

// ============================================================================
//                              排序工具
// ============================================================================

// 表遍历统一按键排序，保证信号顺序可复现

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedHandles(m map[types.LinkHandle]*link) []types.LinkHandle {
	keys := make([]types.LinkHandle, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedNameKeys(m map[nameKey]*discoveredEntry) []nameKey {
	keys := make([]nameKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].device != keys[j].device {
			return keys[i].device < keys[j].device
		}
		return keys[i].name < keys[j].name
	})
	return keys
}

func sortedAdvertised(m map[types.AdvertisedName]bool) []types.AdvertisedName {
	keys := make([]types.AdvertisedName, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].GUID < keys[j].GUID
	})
	return keys
}
