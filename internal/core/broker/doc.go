// Package broker 实现 Wi-Fi Direct 链路代理
//
// Broker 是一个单写者状态机：原生守护进程的请求与操作系统的 P2P 事件
// 全部作为命令进入同一个事件循环，按到达顺序串行执行。它独占以下表：
//   - 本地通告名称（AdvertisedName）
//   - 名称前缀查找请求（FindRequest，引用计数）
//   - 对端表（Peer，按完整列表整表替换）
//   - 对端服务快照与已发现名称（DiscoveredName）
//   - 链路表（句柄单调分配、永不复用）
//
// # 链路状态机
//
//	EstablishLink ──► REQUESTED ──dispatch──► NEGOTIATING ──连接信息──► ESTABLISHED
//	                      │                      │  超时/失败/禁用              │
//	                      │                      └──────────► ERROR            │
//	                      └──────── ReleaseLink / 对端丢失 ──────► RELEASED ◄───┘
//
// 同一时刻只有一个组形成尝试交给操作系统，其余请求在 FIFO 队列中保持 REQUESTED。
// NEGOTIATING 超过 LinkTimeout 由监督定时器强制转为 ERROR。
//
// # 发现
//
// 只要存在任意查找请求，就维持一个操作系统发现会话；会话静默停止时按限速自动重启。
// 每个 (name, device, prefix) 只发出一次 FoundAdvertisedName。
//
// # 信号
//
// 所有信号通过 SignalSink 在事件循环上同步发出。
package broker
