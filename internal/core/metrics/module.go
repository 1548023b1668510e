package metrics

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-p2plink/config"
	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
)

// Config 指标配置
type Config struct {
	// Enabled 是否启用指标收集
	Enabled bool

	// Namespace 指标命名空间
	Namespace string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return Config{
		Enabled:   cfg.Metrics.Enabled,
		Namespace: cfg.Metrics.Namespace,
	}
}

// Params 采集器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config   `optional:"true"`
	Registerer prometheus.Registerer
	Broker     pkgif.LinkBroker `optional:"true"`
	Clock      clock.Clock      `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(NewCollectorFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// NewCollectorFromParams 从参数创建采集器
func NewCollectorFromParams(p Params) (*Collector, error) {
	var source StatsSource
	if p.Broker != nil {
		source = p.Broker
	}
	return NewCollector(ConfigFromUnified(p.UnifiedCfg), p.Registerer, source, WithClock(p.Clock))
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC        fx.Lifecycle
	Collector *Collector
	EventBus  pkgif.EventBus `optional:"true"`
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return input.Collector.Start(input.EventBus)
		},
		OnStop: input.Collector.Stop,
	})
}
