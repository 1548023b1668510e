// Package p2plink 是 Wi-Fi Direct (P2P) 链路代理的宿主入口
//
// 原生消息总线守护进程通过 RPC 请求查找/通告名称、建立/释放链路；
// 操作系统 Wi-Fi P2P 框架的异步广播经事件总线送入链路代理，
// 结果以信号形式回送给守护进程。
//
// # 快速开始
//
//	h, err := p2plink.New(
//	    p2plink.WithConfig(cfg),
//	    p2plink.WithFailureHandler(func(err error) { ... }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	if err := h.Startup(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # 组件
//
//	┌──────────────────────────────────────────────────────────────┐
//	│  原生守护进程  ◄── websocket ──►  Helper (RPC / 信号)          │
//	├──────────────────────────────────────────────────────────────┤
//	│  Broker: 单事件循环，持有对端/名称/链路全部表                    │
//	├──────────────────────────────────────────────────────────────┤
//	│  EventBus: P2PBroadcast / ScanResultsEvent / SignalEvent      │
//	├──────────────────────────────────────────────────────────────┤
//	│  peerevent · legacyscan · metrics · wpas (wpa_supplicant)     │
//	└──────────────────────────────────────────────────────────────┘
//
// # 生命周期
//
// 每次 Startup 组装一个新的 Fx 应用（代理、适配器、后端），Shutdown 将其整体停止。
// 通道断开或信号投递失败时 Helper 自行 Shutdown，并通过失败回调通知宿主，
// 宿主随后可以再次调用 Startup。句柄序列跨多次启动延续，永不复用。
//
// # 文件组织
//
//   - helper.go: Helper 与 RPC/信号实现
//   - fx.go: 每次启动的 Fx 应用组装
//   - options.go: 函数式选项
//   - errors.go: 公共错误
//   - version.go: 版本信息
package p2plink
