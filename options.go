package p2plink

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-p2plink/config"
	"github.com/dep2p/go-p2plink/internal/core/bridge"
	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// BridgeFactory 为每次启动创建新的原生通道
type BridgeFactory func(cfg config.BridgeConfig) pkgif.NativeBridge

// options 内部选项结构
type options struct {
	// 统一配置
	cfg *config.Config

	// 注入的操作系统 P2P 框架（为 nil 时按 Backend.Kind 加载内置后端）
	framework pkgif.P2PFramework
	scanner   pkgif.ScanTrigger

	// 原生通道工厂
	newBridge BridgeFactory

	// 时钟
	clk clock.Clock

	// 通道失败回调
	onFailure func(error)

	// 指标注册表
	registerer prometheus.Registerer

	// 事件总线（跨多次启动共享）
	bus pkgif.EventBus

	// 用户自定义 Fx 选项
	fxOptions []fx.Option
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{
		cfg: config.NewConfig(),
		newBridge: func(cfg config.BridgeConfig) pkgif.NativeBridge {
			return bridge.New(cfg)
		},
		clk:       clock.New(),
		onFailure: func(error) {},
	}
}

// WithConfig 使用完整配置
//
// 配置在 New 中验证，并被复制，之后对 cfg 的修改不影响 Helper。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return ErrNilOption
		}
		o.cfg = cfg.Clone()
		return nil
	}
}

// WithFramework 注入操作系统 P2P 框架
//
// 注入后不再加载内置后端，宿主负责通过 PostBroadcast 投递操作系统广播。
// 若 fw 同时实现 interfaces.ScanTrigger，RequestScan 会转发给它。
func WithFramework(fw pkgif.P2PFramework) Option {
	return func(o *options) error {
		if fw == nil {
			return ErrNilOption
		}
		o.framework = fw
		if st, ok := fw.(pkgif.ScanTrigger); ok && o.scanner == nil {
			o.scanner = st
		}
		return nil
	}
}

// WithScanner 注入扫描触发器
func WithScanner(st pkgif.ScanTrigger) Option {
	return func(o *options) error {
		if st == nil {
			return ErrNilOption
		}
		o.scanner = st
		return nil
	}
}

// WithBridge 设置原生通道工厂
//
// 每次 Startup 调用一次工厂，通道不跨启动复用。
func WithBridge(f BridgeFactory) Option {
	return func(o *options) error {
		if f == nil {
			return ErrNilOption
		}
		o.newBridge = f
		return nil
	}
}

// WithClock 设置时钟（测试使用 clock.NewMock()）
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		if clk == nil {
			return ErrNilOption
		}
		o.clk = clk
		return nil
	}
}

// WithFailureHandler 设置通道失败回调
//
// 启动时通道连接失败、运行中通道断开或信号投递失败时调用。
// 回调可能在任意 goroutine 上执行，不得阻塞。
func WithFailureHandler(fn func(error)) Option {
	return func(o *options) error {
		if fn == nil {
			return ErrNilOption
		}
		o.onFailure = fn
		return nil
	}
}

// WithRegistry 设置 Prometheus 注册表
//
// 未设置时 Helper 创建私有注册表，可通过 Helper.Gatherer 读取。
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) error {
		if reg == nil {
			return ErrNilOption
		}
		o.registerer = reg
		return nil
	}
}

// WithEventBus 使用外部事件总线
func WithEventBus(bus pkgif.EventBus) Option {
	return func(o *options) error {
		if bus == nil {
			return ErrNilOption
		}
		o.bus = bus
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项，在每次启动时生效
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
