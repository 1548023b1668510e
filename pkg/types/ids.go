package types

import (
	"strconv"
	"strings"
)

// DeviceID Wi-Fi P2P 设备地址
//
// 形如 "02:00:00:00:00:01" 的 MAC 地址字符串，在操作系统 P2P 框架中唯一标识对端设备。
type DeviceID string

// String 返回设备地址
func (d DeviceID) String() string {
	return string(d)
}

// IsEmpty 检查设备地址是否为空
func (d DeviceID) IsEmpty() bool {
	return strings.TrimSpace(string(d)) == ""
}

// Normalize 返回小写形式的设备地址
//
// 不同来源上报的 MAC 地址大小写不一致，表查找前统一规范化。
func (d DeviceID) Normalize() DeviceID {
	return DeviceID(strings.ToLower(strings.TrimSpace(string(d))))
}

// LinkHandle 链路句柄
//
// 不透明的正整数，单调分配且永不复用。0 表示无效句柄。
type LinkHandle int32

// InvalidHandle 无效句柄
const InvalidHandle LinkHandle = 0

// IsValid 检查句柄是否有效
func (h LinkHandle) IsValid() bool {
	return h > 0
}

// String 返回句柄的十进制表示
func (h LinkHandle) String() string {
	return strconv.FormatInt(int64(h), 10)
}
