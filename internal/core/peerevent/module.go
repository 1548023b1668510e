package peerevent

import (
	"context"

	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("peerevent",
		fx.Provide(ProvideAdapter),
		fx.Invoke(registerLifecycle),
	)
}

type adapterInput struct {
	fx.In

	EventBus pkgif.EventBus
	Broker   pkgif.LinkBroker
}

// ProvideAdapter 提供广播适配器
func ProvideAdapter(in adapterInput) (*Adapter, error) {
	return New(in.EventBus, in.Broker)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC      fx.Lifecycle
	Adapter *Adapter
}

// registerLifecycle 注册生命周期
//
// 在代理之后启动、之前停止（fx 按依赖顺序排列钩子）。
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: input.Adapter.Start,
		OnStop: func(ctx context.Context) error {
			return input.Adapter.Stop(ctx)
		},
	})
}
