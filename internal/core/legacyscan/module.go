package legacyscan

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-p2plink/config"
	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("legacyscan",
		fx.Provide(ProvideAdapter),
		fx.Invoke(registerLifecycle),
	)
}

type adapterInput struct {
	fx.In

	Config *config.Config
	Clock  clock.Clock `optional:"true"`
}

// ProvideAdapter 提供扫描结果适配器
func ProvideAdapter(in adapterInput) (*Adapter, error) {
	return New(in.Config.LegacyScan, WithClock(in.Clock))
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC       fx.Lifecycle
	Adapter  *Adapter
	EventBus pkgif.EventBus
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return input.Adapter.Start(input.EventBus)
		},
		OnStop: input.Adapter.Stop,
	})
}
