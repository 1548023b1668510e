package eventbus

import (
	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
)

// Module 返回 Fx 模块
//
// 仅用于独立组装；Helper 持有跨多次启动的长生命周期总线，直接以 fx.Provide 注入。
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideEventBus),
	)
}

// ProvideEventBus 提供 EventBus 实例
func ProvideEventBus() pkgif.EventBus {
	return NewBus()
}
