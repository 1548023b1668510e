// Package wpas 基于 wpa_supplicant D-Bus 接口的 Wi-Fi P2P 后端
//
// Backend 实现 interfaces.P2PFramework 与 interfaces.ScanTrigger：
// 方法调用转换为 fi.w1.wpa_supplicant1 的 D-Bus 方法，
// D-Bus 信号转换为事件总线上的 types.P2PBroadcast / types.ScanResultsEvent。
//
// 信号映射：
//
//	DeviceFound / DeviceLost           → PEERS_CHANGED
//	FindStopped                        → DISCOVERY_CHANGED(false)
//	GroupStarted                       → CONNECTION_CHANGED(formed)
//	GroupFinished                      → CONNECTION_CHANGED(dissolved)
//	GONegotiationFailure               → CONNECT_FAILED(peer)
//	GroupFormationFailure              → CONNECT_FAILED(正在连接的对端)
//	ServiceDiscoveryResponse           → SERVICE_RESPONSE
//	InterfaceAdded / InterfaceRemoved  → STATE_CHANGED
//	ScanDone                           → ScanResultsEvent
//
// 名称通告与服务发现使用 Bonjour（DNS-SD）服务，编码见 internal/core/dnssd。
package wpas
