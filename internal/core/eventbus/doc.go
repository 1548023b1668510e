// Package eventbus 实现进程内事件总线
//
// 提供类型安全的事件发布/订阅机制，支持：
//   - 多订阅者、缓冲区配置
//   - 无损订阅（Lossless）：缓冲区满时阻塞发射者，用于状态机输入
//   - 发射器引用计数
//   - 有状态模式（Stateful）
//
// 在 p2plink 中承载三类事件：
//   - types.P2PBroadcast：操作系统后端 → PeerEventAdapter
//   - types.ScanResultsEvent：操作系统后端 → LegacyScanAdapter
//   - types.SignalEvent：Helper → 指标
//
// # 快速开始
//
//	bus := eventbus.NewBus()
//
//	sub, _ := bus.Subscribe(new(types.P2PBroadcast), eventbus.Lossless())
//	defer sub.Close()
//
//	em, _ := bus.Emitter(new(types.P2PBroadcast))
//	defer em.Close()
//	em.Emit(types.P2PBroadcast{Kind: types.EventPeersChanged})
//
// # 并发安全
//
// 订阅/取消订阅由 RWMutex 保护，每个事件类型节点有独立的锁；
// emit 持有节点锁期间同一类型的事件严格按发射顺序到达每个订阅者。
package eventbus
