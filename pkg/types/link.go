package types

import "time"

// ============================================================================
//                              LinkState - 链路状态
// ============================================================================

// LinkState 链路状态
//
// 状态迁移：
//
//	REQUESTED → NEGOTIATING → ESTABLISHED → RELEASED
//	REQUESTED / NEGOTIATING → ERROR
//
// RELEASED 与 ERROR 为终态。
type LinkState int

const (
	// LinkStateRequested 已请求，等待组网队列
	LinkStateRequested LinkState = iota
	// LinkStateNegotiating 已交给操作系统，正在进行组协商
	LinkStateNegotiating
	// LinkStateEstablished 组已形成，接口名可用
	LinkStateEstablished
	// LinkStateReleased 已释放（本地释放或对端丢失）
	LinkStateReleased
	// LinkStateError 组网失败、超时或 P2P 被禁用
	LinkStateError
)

// String 返回状态的字符串表示
func (s LinkState) String() string {
	switch s {
	case LinkStateRequested:
		return "REQUESTED"
	case LinkStateNegotiating:
		return "NEGOTIATING"
	case LinkStateEstablished:
		return "ESTABLISHED"
	case LinkStateReleased:
		return "RELEASED"
	case LinkStateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal 是否为终态
func (s LinkState) IsTerminal() bool {
	return s == LinkStateReleased || s == LinkStateError
}

// LinkInfo 链路快照
type LinkInfo struct {
	// Handle 链路句柄
	Handle LinkHandle

	// Device 对端设备
	Device DeviceID

	// GroupOwnerIntent 组主意愿（0-15）
	GroupOwnerIntent int

	// State 当前状态
	State LinkState

	// InterfaceName 网络接口名，仅在 ESTABLISHED 时有值
	InterfaceName string

	// CreatedAt 请求时间
	CreatedAt time.Time
}

// 组主意愿取值范围（Wi-Fi P2P 规范）
const (
	MinGroupOwnerIntent = 0
	MaxGroupOwnerIntent = 15
)
