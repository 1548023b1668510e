package broker

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
	"github.com/dep2p/go-p2plink/pkg/types"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("broker",
		fx.Provide(
			ConfigFromUnified,
			ProvideBroker,
		),
		fx.Invoke(registerLifecycle),
	)
}

// brokerInput 构造输入
type brokerInput struct {
	fx.In

	Config      Config
	Framework   pkgif.P2PFramework
	Sink        pkgif.SignalSink
	Clock       clock.Clock      `optional:"true"`
	FirstHandle types.LinkHandle `name:"first_handle" optional:"true"`
}

// Result 模块输出
type Result struct {
	fx.Out

	Broker     *Broker
	LinkBroker pkgif.LinkBroker
}

// ProvideBroker 提供链路代理
func ProvideBroker(in brokerInput) (Result, error) {
	b, err := New(in.Config, in.Framework, in.Sink,
		WithClock(in.Clock),
		WithFirstHandle(in.FirstHandle),
	)
	if err != nil {
		return Result{}, err
	}
	return Result{Broker: b, LinkBroker: b}, nil
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC     fx.Lifecycle
	Broker *Broker
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Broker.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return input.Broker.Stop(ctx)
		},
	})
}
