package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	p2plink "github.com/dep2p/go-p2plink"
	"github.com/dep2p/go-p2plink/config"
	"github.com/dep2p/go-p2plink/internal/core/introspect"
	"github.com/dep2p/go-p2plink/pkg/lib/log"
	"github.com/dep2p/go-p2plink/pkg/types"
)

// runFlags run 子命令参数
type runFlags struct {
	bridgeURL    string
	iface        string
	logLevel     string
	metricsAddr  string
	restartDelay time.Duration
	advertise    []string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "连接原生守护进程并运行链路代理",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			applyFlagOverrides(cmd, cfg, &f)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("配置无效: %w", err)
			}

			closeLog, err := setupLogging(cfg.Log)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, cfg, &f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.bridgeURL, "bridge-url", "", "原生守护进程 websocket 地址")
	flags.StringVar(&f.iface, "iface", "", "wpa_supplicant 管理的网络接口")
	flags.StringVar(&f.logLevel, "log-level", "", "日志级别 (debug/info/warn/error)")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "自省与 /metrics 服务监听地址")
	flags.DurationVar(&f.restartDelay, "restart-delay", 3*time.Second, "通道失败后重新启动的等待时间")
	flags.StringSliceVar(&f.advertise, "advertise", nil, "每次启动后通告的本地名称（可重复）")
	return cmd
}

// applyFlagOverrides 命令行参数覆盖配置（最高优先级）
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, f *runFlags) {
	flags := cmd.Flags()
	if flags.Changed("bridge-url") {
		cfg.Bridge.URL = f.bridgeURL
	}
	if flags.Changed("iface") {
		cfg.Backend.Interface = f.iface
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.ListenAddr = f.metricsAddr
	}
}

// setupLogging 按配置重建默认 logger，返回关闭日志文件的函数
func setupLogging(cfg config.LogConfig) (func(), error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // G304: 用户指定的日志路径
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		w = file
		closeFn = func() { _ = file.Close() }
	}
	log.Setup(w, cfg.Format, level)
	return closeFn, nil
}

// runDaemon 运行守护进程直到 ctx 取消
//
// 通道失败或空闲回收后 Helper 自行撤下；此处等到撤下完成，
// 再等待 restartDelay 后再次 Startup。
func runDaemon(ctx context.Context, cfg *config.Config, f *runFlags) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	failures := make(chan error, 1)
	h, err := p2plink.New(
		p2plink.WithConfig(cfg),
		p2plink.WithRegistry(reg),
		p2plink.WithFailureHandler(func(err error) {
			select {
			case failures <- err:
			default:
			}
		}),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			logger.Warn("关闭 Helper 失败", "error", err)
		}
	}()

	if cfg.Metrics.ListenAddr != "" {
		srv := introspect.New(introspect.Config{
			Addr:     cfg.Metrics.ListenAddr,
			Source:   h,
			Gatherer: reg,
		})
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("启动自省服务失败: %w", err)
		}
		defer func() { _ = srv.Stop() }()
	}

	names := make([]types.AdvertisedName, 0, len(f.advertise))
	for _, n := range f.advertise {
		names = append(names, types.AdvertisedName{Name: n, GUID: uuid.NewString()})
	}

	fmt.Printf("📦 %s\n", p2plink.VersionInfo())
	logger.Info("启动 p2plinkd", "version", p2plink.Version, "bridge", cfg.Bridge.URL, "backend", cfg.Backend.Kind)

	return supervise(ctx, h, names, failures, f.restartDelay)
}

// supervised supervise 驱动的 Helper 能力
type supervised interface {
	Startup(ctx context.Context) error
	Done() <-chan struct{}
	AdvertiseName(name, guid string) types.Status
}

// supervise 启动 h 并在每次撤下后重新启动，直到 ctx 取消
func supervise(ctx context.Context, h supervised, names []types.AdvertisedName, failures <-chan error, restartDelay time.Duration) error {
	for {
		err := h.Startup(ctx)
		done := h.Done()
		if err != nil {
			if errors.Is(err, p2plink.ErrClosed) {
				return err
			}
			logger.Warn("启动失败，稍后重试", "error", err, "delay", restartDelay)
		} else {
			for _, an := range names {
				if st := h.AdvertiseName(an.Name, an.GUID); !st.IsOK() {
					logger.Warn("通告本地名称失败", "name", an.Name, "status", st)
				}
			}
			logger.Info("链路代理运行中")

			// 通道失败、空闲回收都会撤下当前启动
			select {
			case <-ctx.Done():
				logger.Info("收到退出信号，正在关闭")
				return nil
			case <-done:
				select {
				case err := <-failures:
					logger.Warn("原生通道失败，准备重新启动", "error", err, "delay", restartDelay)
				default:
					logger.Info("链路代理已撤下，准备重新启动", "delay", restartDelay)
				}
			}
		}

		// 启动失败同样会写入 failures，清空避免误报到下一轮
		select {
		case <-failures:
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(restartDelay):
		}
	}
}
