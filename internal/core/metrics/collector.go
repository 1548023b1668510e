package metrics

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
	"github.com/dep2p/go-p2plink/pkg/lib/log"
	"github.com/dep2p/go-p2plink/pkg/types"
)

var logger = log.Logger("core/metrics")

// statsTimeout 抓取时读取代理统计的超时
const statsTimeout = time.Second

var (
	// ErrNilRegistry 未提供注册表
	ErrNilRegistry = errors.New("metrics: nil registry")
)

// StatsSource 代理统计来源
type StatsSource interface {
	Stats(ctx context.Context) (types.BrokerStats, error)
}

// Option 采集器选项
type Option func(*Collector)

// WithClock 设置时钟
func WithClock(clk clock.Clock) Option {
	return func(c *Collector) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// Collector 链路代理指标采集器
type Collector struct {
	cfg    Config
	reg    prometheus.Registerer
	source StatsSource
	clk    clock.Clock

	signals    *prometheus.CounterVec
	linkErrors *prometheus.CounterVec
	rate       *RateMeter
	rateGauge  prometheus.GaugeFunc
	broker     *brokerCollector

	sub     pkgif.Subscription
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewCollector 创建采集器
//
// source 为 nil 时不导出代理状态指标。
func NewCollector(cfg Config, reg prometheus.Registerer, source StatsSource, opts ...Option) (*Collector, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	c := &Collector{
		cfg:    cfg,
		reg:    reg,
		source: source,
		clk:    clock.New(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.signals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: "bridge",
		Name:      "signals_total",
		Help:      "Signals raised toward the native daemon, by kind and delivery result.",
	}, []string{"kind", "delivered"})

	c.linkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: "broker",
		Name:      "link_errors_total",
		Help:      "Links that ended in ERROR, by status code.",
	}, []string{"code"})

	c.rate = NewRateMeter(c.clk)
	c.rateGauge = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: "bridge",
		Name:      "signals_per_second",
		Help:      "Average signal rate over the last minute.",
	}, c.rate.Rate)

	if source != nil {
		c.broker = newBrokerCollector(cfg.Namespace, source)
	}
	return c, nil
}

func (c *Collector) collectors() []prometheus.Collector {
	cs := []prometheus.Collector{c.signals, c.linkErrors, c.rateGauge}
	if c.broker != nil {
		cs = append(cs, c.broker)
	}
	return cs
}

// Start 注册指标并订阅信号事件
func (c *Collector) Start(bus pkgif.EventBus) error {
	if !c.running.CompareAndSwap(false, true) {
		return nil
	}

	var registered []prometheus.Collector
	for _, col := range c.collectors() {
		if err := c.reg.Register(col); err != nil {
			for _, r := range registered {
				c.reg.Unregister(r)
			}
			c.running.Store(false)
			return err
		}
		registered = append(registered, col)
	}

	c.done = make(chan struct{})
	if bus != nil {
		sub, err := bus.Subscribe(new(types.SignalEvent), pkgif.BufSize(64))
		if err != nil {
			c.unregister()
			c.running.Store(false)
			return err
		}
		c.sub = sub
		c.wg.Add(1)
		go c.run()
	}

	logger.Debug("指标采集器已启动", "namespace", c.cfg.Namespace)
	return nil
}

// Stop 取消订阅并注销指标
func (c *Collector) Stop(_ context.Context) error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	close(c.done)

	var err error
	if c.sub != nil {
		err = multierr.Append(err, c.sub.Close())
	}
	c.wg.Wait()
	c.unregister()
	return err
}

func (c *Collector) unregister() {
	for _, col := range c.collectors() {
		c.reg.Unregister(col)
	}
}

func (c *Collector) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case evt, ok := <-c.sub.Out():
			if !ok {
				return
			}
			switch e := evt.(type) {
			case *types.SignalEvent:
				c.ObserveSignal(*e)
			case types.SignalEvent:
				c.ObserveSignal(e)
			}
		}
	}
}

// ObserveSignal 记录一次信号
func (c *Collector) ObserveSignal(evt types.SignalEvent) {
	c.signals.WithLabelValues(evt.Signal.Kind.String(), strconv.FormatBool(evt.Delivered)).Inc()
	c.rate.Mark(1)
	if evt.Signal.Kind == types.SignalLinkError {
		c.linkErrors.WithLabelValues(evt.Signal.Code.String()).Inc()
	}
}

// ============================================================================
//                              代理状态
// ============================================================================

// brokerCollector 每次抓取读取一次代理统计快照
type brokerCollector struct {
	source StatsSource

	activeLinks *prometheus.Desc
	queuedLinks *prometheus.Desc
	finds       *prometheus.Desc
	advertised  *prometheus.Desc
	peers       *prometheus.Desc
	discovered  *prometheus.Desc
	enabled     *prometheus.Desc
	discovering *prometheus.Desc
}

func newBrokerCollector(namespace string, source StatsSource) *brokerCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "broker", name), help, nil, nil)
	}
	return &brokerCollector{
		source:      source,
		activeLinks: desc("active_links", "Links that are negotiating or established."),
		queuedLinks: desc("queued_links", "Links waiting for a group formation slot."),
		finds:       desc("find_requests", "Distinct name prefixes being searched for."),
		advertised:  desc("advertised_names", "Names currently advertised."),
		peers:       desc("peers", "Peers in the last peer list."),
		discovered:  desc("discovered_names", "Remote names currently discovered."),
		enabled:     desc("p2p_enabled", "Whether Wi-Fi P2P is enabled."),
		discovering: desc("discovering", "Whether a peer discovery session is active."),
	}
}

func (b *brokerCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		b.activeLinks, b.queuedLinks, b.finds, b.advertised,
		b.peers, b.discovered, b.enabled, b.discovering,
	} {
		ch <- d
	}
}

func (b *brokerCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	st, err := b.source.Stats(ctx)
	if err != nil {
		// 代理停止期间不导出状态指标
		return
	}

	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	gauge(b.activeLinks, float64(st.ActiveLinks))
	gauge(b.queuedLinks, float64(st.QueuedLinks))
	gauge(b.finds, float64(st.FindRequests))
	gauge(b.advertised, float64(st.AdvertisedNames))
	gauge(b.peers, float64(st.Peers))
	gauge(b.discovered, float64(st.DiscoveredNames))
	gauge(b.enabled, boolGauge(st.Enabled))
	gauge(b.discovering, boolGauge(st.Discovering))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
