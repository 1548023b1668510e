// Package peerevent 把操作系统的原始 P2P 广播转换为链路代理事件
//
// 每个广播恰好转换为一次代理调用：
//
//	STATE_CHANGED       → SetEnabled
//	CONNECTION_CHANGED  → OnConnectionInfoAvailable
//	THIS_DEVICE_CHANGED → SetDevice（重复的本机记录被抑制）
//	DISCOVERY_CHANGED   → DiscoveryChanged
//	PEERS_CHANGED       → PeersChanged
//	SERVICE_RESPONSE    → OnServiceResponse
//	CONNECT_FAILED      → OnConnectFailed
//
// 代理未运行时到达的广播记录日志后丢弃，不排队。
//
// 广播经由事件总线的无损订阅到达，保证状态机输入不丢失。
package peerevent
