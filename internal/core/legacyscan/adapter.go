package legacyscan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-p2plink/config"
	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
	"github.com/dep2p/go-p2plink/pkg/lib/log"
	"github.com/dep2p/go-p2plink/pkg/types"
)

var logger = log.Logger("core/legacyscan")

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("legacyscan: invalid config")

// Observation 单条扫描结果及其关联判断
type Observation struct {
	types.ScanResult
	Associated bool
}

// Option 适配器选项
type Option func(*Adapter)

// WithClock 设置时钟
func WithClock(clk clock.Clock) Option {
	return func(a *Adapter) {
		if clk != nil {
			a.clk = clk
		}
	}
}

// Adapter 扫描结果适配器
type Adapter struct {
	clk clock.Clock

	mu         sync.RWMutex
	have       bool
	lastScan   time.Time
	associated *types.ScanResult

	// seen BSSID → 最近一次出现时间
	seen *lru.Cache[string, time.Time]

	sub     pkgif.Subscription
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// New 创建适配器
func New(cfg config.LegacyScanConfig, opts ...Option) (*Adapter, error) {
	if cfg.CacheSize <= 0 {
		return nil, ErrInvalidConfig
	}
	seen, err := lru.New[string, time.Time](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	a := &Adapter{clk: clock.New(), seen: seen}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// HandleResults 处理一次扫描结果
func (a *Adapter) HandleResults(evt types.ScanResultsEvent) []Observation {
	now := evt.Timestamp
	if now.IsZero() {
		now = a.clk.Now()
	}
	currentBSSID := normalizeBSSID(evt.CurrentBSSID)

	out := make([]Observation, 0, len(evt.Results))
	var associated *types.ScanResult
	for _, r := range evt.Results {
		r.BSSID = normalizeBSSID(r.BSSID)
		obs := Observation{ScanResult: r, Associated: isAssociated(r, currentBSSID, evt.CurrentSSID)}
		if obs.Associated && associated == nil {
			res := r
			associated = &res
		}
		if r.BSSID != "" {
			a.seen.Add(r.BSSID, now)
		}
		out = append(out, obs)
	}

	a.mu.Lock()
	a.have = true
	a.lastScan = now
	a.associated = associated
	a.mu.Unlock()

	logger.Debug("扫描结果已处理", "results", len(out), "associated", associated != nil)
	return out
}

func isAssociated(r types.ScanResult, bssid, ssid string) bool {
	if bssid != "" {
		return r.BSSID == bssid
	}
	return ssid != "" && r.SSID == ssid
}

func normalizeBSSID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// HasScanResults 是否已经获得过扫描结果
func (a *Adapter) HasScanResults() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.have
}

// LastScanTime 最近一次扫描的时间
func (a *Adapter) LastScanTime() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastScan
}

// Associated 最近一次扫描中的关联接入点
func (a *Adapter) Associated() (types.ScanResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.associated == nil {
		return types.ScanResult{}, false
	}
	return *a.associated, true
}

// RecentlySeen 返回 BSSID 最近一次出现在扫描结果中的时间
func (a *Adapter) RecentlySeen(bssid string) (time.Time, bool) {
	return a.seen.Get(normalizeBSSID(bssid))
}

// ============================================================================
//                              事件订阅
// ============================================================================

// Start 订阅扫描结果事件
func (a *Adapter) Start(bus pkgif.EventBus) error {
	if !a.running.CompareAndSwap(false, true) {
		return nil
	}
	sub, err := bus.Subscribe(new(types.ScanResultsEvent))
	if err != nil {
		a.running.Store(false)
		return err
	}
	a.sub = sub
	a.done = make(chan struct{})

	a.wg.Add(1)
	go a.run()
	return nil
}

// Stop 取消订阅
func (a *Adapter) Stop(_ context.Context) error {
	if !a.running.CompareAndSwap(true, false) {
		return nil
	}
	close(a.done)
	err := a.sub.Close()
	a.wg.Wait()
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
			switch e := evt.(type) {
			case *types.ScanResultsEvent:
				a.HandleResults(*e)
			case types.ScanResultsEvent:
				a.HandleResults(e)
			}
		}
	}
}
