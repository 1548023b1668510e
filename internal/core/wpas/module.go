package wpas

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-p2plink/config"
	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
)

// Module 返回 Fx 模块
//
// 应放在使用后端的模块之前：后端最先连接系统总线、最后断开，
// 代理停止时撤销组、发现会话和本地服务的调用仍能到达 wpa_supplicant。
// 初始广播由 AnnounceModule 发出。
func Module(opts ...Option) fx.Option {
	return fx.Module("wpas",
		fx.Provide(func(in backendInput) (Result, error) {
			return ProvideBackend(in, opts...)
		}),
		fx.Invoke(registerLifecycle),
	)
}

// AnnounceModule 返回发布初始广播的 Fx 模块
//
// 应放在所有订阅后端事件的模块之后。
func AnnounceModule() fx.Option {
	return fx.Module("wpas-announce",
		fx.Invoke(registerAnnounce),
	)
}

type backendInput struct {
	fx.In

	Config   *config.Config
	EventBus pkgif.EventBus
}

// Result 模块输出
type Result struct {
	fx.Out

	Backend   *Backend
	Framework pkgif.P2PFramework
	Scanner   pkgif.ScanTrigger
}

// ProvideBackend 提供 wpa_supplicant 后端
func ProvideBackend(in backendInput, opts ...Option) (Result, error) {
	b, err := New(in.Config.Backend, in.EventBus, opts...)
	if err != nil {
		return Result{}, err
	}
	return Result{Backend: b, Framework: b, Scanner: b}, nil
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC      fx.Lifecycle
	Backend *Backend
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: input.Backend.Start,
		OnStop: func(ctx context.Context) error {
			return multierr.Append(input.Backend.Stop(ctx), input.Backend.Close())
		},
	})
}

// registerAnnounce 订阅者就绪后发布初始广播
func registerAnnounce(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: input.Backend.Announce,
	})
}
