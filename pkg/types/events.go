package types

import "time"

// ============================================================================
//                              操作系统 P2P 广播
// ============================================================================

// P2PEventKind 原始 P2P 广播类型
type P2PEventKind int

const (
	// EventStateChanged P2P 功能启用/禁用
	EventStateChanged P2PEventKind = iota + 1
	// EventConnectionChanged 组连接信息变化
	EventConnectionChanged
	// EventThisDeviceChanged 本机设备信息变化
	EventThisDeviceChanged
	// EventDiscoveryChanged 对端发现会话启动/停止
	EventDiscoveryChanged
	// EventPeersChanged 对端列表变化（需拉取完整列表）
	EventPeersChanged
	// EventServiceResponse 对端服务发现响应
	EventServiceResponse
	// EventConnectFailed 组形成失败
	EventConnectFailed
)

// String 返回事件类型的字符串表示
func (k P2PEventKind) String() string {
	switch k {
	case EventStateChanged:
		return "STATE_CHANGED"
	case EventConnectionChanged:
		return "CONNECTION_CHANGED"
	case EventThisDeviceChanged:
		return "THIS_DEVICE_CHANGED"
	case EventDiscoveryChanged:
		return "DISCOVERY_CHANGED"
	case EventPeersChanged:
		return "PEERS_CHANGED"
	case EventServiceResponse:
		return "SERVICE_RESPONSE"
	case EventConnectFailed:
		return "CONNECT_FAILED"
	default:
		return "UNKNOWN"
	}
}

// P2PBroadcast 原始 P2P 广播事件
//
// 由操作系统后端发布到事件总线，按 Kind 读取对应负载字段，其余字段为零值。
type P2PBroadcast struct {
	Kind P2PEventKind

	// Enabled STATE_CHANGED 负载
	Enabled bool

	// Device THIS_DEVICE_CHANGED 负载
	Device Peer

	// Discovering DISCOVERY_CHANGED 负载
	Discovering bool

	// Connection CONNECTION_CHANGED 负载
	Connection ConnectionInfo

	// Service SERVICE_RESPONSE 负载
	Service ServiceResponse

	// Failure CONNECT_FAILED 负载
	Failure ConnectFailure

	// Timestamp 事件时间
	Timestamp time.Time
}

// ConnectionInfo 组连接信息
type ConnectionInfo struct {
	// GroupFormed 组是否已形成
	GroupFormed bool

	// IsGroupOwner 本机是否为组主
	IsGroupOwner bool

	// GroupOwnerAddress 组主 IP 地址
	GroupOwnerAddress string

	// InterfaceName 组网络接口名（如 "p2p-wlan0-0"）
	InterfaceName string

	// Devices 组内的对端设备
	Devices []DeviceID
}

// Contains 检查组内是否包含指定设备
func (c ConnectionInfo) Contains(device DeviceID) bool {
	device = device.Normalize()
	for _, d := range c.Devices {
		if d.Normalize() == device {
			return true
		}
	}
	return false
}

// ServiceResponse 对端服务发现响应
//
// Names 为该设备当前通告的完整名称集合，接收方按设备整体替换。
type ServiceResponse struct {
	Device DeviceID
	Names  []AdvertisedName
}

// ConnectFailure 组形成失败
type ConnectFailure struct {
	Device DeviceID
	Reason string
}

// ============================================================================
//                              Wi-Fi 扫描
// ============================================================================

// ScanResult 单个扫描结果
type ScanResult struct {
	BSSID     string
	SSID      string
	Frequency int
	Level     int
}

// ScanResultsEvent 一次扫描的结果集合
//
// Results 可以为空：零结果的扫描同样有效。
type ScanResultsEvent struct {
	Results []ScanResult

	// CurrentBSSID 当前关联的接入点 BSSID（未关联时为空）
	CurrentBSSID string

	// CurrentSSID 当前关联的网络 SSID（未关联时为空）
	CurrentSSID string

	Timestamp time.Time
}
