// Package types 定义 p2plink 的基础类型
//
// 包含：
//   - 标识：DeviceID、LinkHandle
//   - 领域实体：Peer、LinkInfo、AdvertisedName、DiscoveredName、FindRequest
//   - 操作系统 P2P 广播事件：P2PBroadcast 及其负载
//   - 发往原生守护进程的信号：Signal
//   - 错误分类与状态码：Status、StatusOf
//
// 本包不依赖项目内任何其它包。
package types
