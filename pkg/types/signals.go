package types

import "time"

// SignalKind 发往原生守护进程的信号类型
type SignalKind int

const (
	// SignalFoundAdvertisedName 发现匹配前缀的远端名称
	SignalFoundAdvertisedName SignalKind = iota + 1
	// SignalLostAdvertisedName 已发现名称丢失
	SignalLostAdvertisedName
	// SignalLinkEstablished 链路建立
	SignalLinkEstablished
	// SignalLinkError 链路失败
	SignalLinkError
	// SignalLinkLost 已建立链路丢失
	SignalLinkLost
)

// String 返回信号的方法名
func (k SignalKind) String() string {
	switch k {
	case SignalFoundAdvertisedName:
		return "OnFoundAdvertisedName"
	case SignalLostAdvertisedName:
		return "OnLostAdvertisedName"
	case SignalLinkEstablished:
		return "OnLinkEstablished"
	case SignalLinkError:
		return "OnLinkError"
	case SignalLinkLost:
		return "OnLinkLost"
	default:
		return "Unknown"
	}
}

// Signal 发往原生守护进程的信号
//
// 名称类信号使用 Name/NamePrefix/GUID/Device，链路类信号使用 Handle/InterfaceName/Code。
type Signal struct {
	Kind          SignalKind
	Name          string
	NamePrefix    string
	GUID          string
	Device        DeviceID
	Handle        LinkHandle
	InterfaceName string
	Code          Status
}

// SignalEvent 信号投递结果事件
//
// 由 Helper 发布到事件总线，供指标统计使用。
type SignalEvent struct {
	Signal    Signal
	Delivered bool
	Timestamp time.Time
}
