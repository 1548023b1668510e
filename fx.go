package p2plink

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-p2plink/config"
	"github.com/dep2p/go-p2plink/pkg/lib/log"

	"github.com/dep2p/go-p2plink/internal/core/broker"
	"github.com/dep2p/go-p2plink/internal/core/legacyscan"
	"github.com/dep2p/go-p2plink/internal/core/metrics"
	"github.com/dep2p/go-p2plink/internal/core/peerevent"
	"github.com/dep2p/go-p2plink/internal/core/wpas"

	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
	"github.com/dep2p/go-p2plink/pkg/types"
)

var fxLogger = log.Logger("p2plink/fx")

// startupRefs 一次启动中 Helper 需要直接持有的组件
type startupRefs struct {
	fx.In

	Broker  *broker.Broker
	Scanner pkgif.ScanTrigger   `optional:"true"`
	Legacy  *legacyscan.Adapter `optional:"true"`
}

// buildFxApp 构建一次启动的 Fx 应用
//
// 组装顺序（生命周期钩子按此顺序启动、逆序停止）：
//  1. 基础依赖：配置、事件总线、时钟、信号输出、注册表、起始句柄
//  2. 操作系统后端（最先连接、最后断开，代理停止时的撤销调用仍可到达）
//  3. Broker → PeerEventAdapter → LegacyScanAdapter → Metrics
//  4. 后端初始广播（订阅者均已就绪）
func buildFxApp(h *Helper, first types.LinkHandle, refs *startupRefs) (*fx.App, error) {
	cfg := h.opts.cfg

	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 基础依赖
	// ════════════════════════════════════════════════════════════════════════
	opts := []fx.Option{
		fx.Supply(cfg),
		fx.Provide(
			func() pkgif.EventBus { return h.bus },
			func() clock.Clock { return h.opts.clk },
			func() pkgif.SignalSink { return h },
			func() prometheus.Registerer { return h.registerer },
			fx.Annotate(
				func() types.LinkHandle { return first },
				fx.ResultTags(`name:"first_handle"`),
			),
		),
	}

	// 注入的框架替代内置后端
	if h.opts.framework != nil {
		opts = append(opts, fx.Provide(func() pkgif.P2PFramework { return h.opts.framework }))
		if h.opts.scanner != nil {
			opts = append(opts, fx.Provide(func() pkgif.ScanTrigger { return h.opts.scanner }))
		}
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 操作系统后端（必须最先）
	// ════════════════════════════════════════════════════════════════════════
	builtin := h.opts.framework == nil
	if builtin {
		switch cfg.Backend.Kind {
		case config.BackendWpas:
			opts = append(opts, wpas.Module())
			fxLogger.Debug("加载 wpa_supplicant 后端", "iface", cfg.Backend.Interface)
		default:
			return nil, ErrNoFramework
		}
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	opts = append(opts,
		broker.Module(),
		peerevent.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 5. 条件模块
	// ════════════════════════════════════════════════════════════════════════
	if cfg.LegacyScan.Enabled {
		opts = append(opts, legacyscan.Module())
		fxLogger.Debug("加载扫描适配器模块")
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, metrics.Module())
		fxLogger.Debug("加载指标模块", "namespace", cfg.Metrics.Namespace)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 6. 后端初始广播（必须最后）
	// ════════════════════════════════════════════════════════════════════════
	if builtin {
		opts = append(opts, wpas.AnnounceModule())
	}

	// ════════════════════════════════════════════════════════════════════════
	// 7. 用户扩展与日志
	// ════════════════════════════════════════════════════════════════════════
	opts = append(opts, h.opts.fxOptions...)
	opts = append(opts,
		fx.Invoke(func(in startupRefs) { *refs = in }),
		fx.WithLogger(func() fxevent.Logger {
			return newFxEventLogger(cfg.Log.Level)
		}),
	)

	return fx.New(opts...), nil
}

// newFxEventLogger 返回 Fx 事件日志
//
// 调试级别输出 Fx 的依赖注入过程，其余级别静默。
func newFxEventLogger(level string) fxevent.Logger {
	if level == "debug" {
		if l, err := zap.NewDevelopment(); err == nil {
			return &fxevent.ZapLogger{Logger: l}
		}
	}
	return &fxevent.ZapLogger{Logger: zap.NewNop()}
}
