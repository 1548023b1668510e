package interfaces

import (
	"context"

	"github.com/dep2p/go-p2plink/pkg/types"
)

// NativeBridge 原生消息总线守护进程通道
type NativeBridge interface {
	// Connect 建立通道，之后收到的 RPC 请求交给 handler 处理
	Connect(ctx context.Context, handler BridgeHandler) error

	// Send 投递一个信号；失败返回包装了 types.ErrChannelDown 的错误
	Send(ctx context.Context, sig types.Signal) error

	// Close 关闭通道，可重复调用
	Close() error
}

// BridgeHandler 处理原生守护进程发来的 RPC 请求
//
// 返回值直接作为 RPC 结果：状态码、句柄或接口名。
type BridgeHandler interface {
	FindAdvertisedName(namePrefix string) types.Status
	CancelFindAdvertisedName(namePrefix string) types.Status
	AdvertiseName(name, guid string) types.Status
	CancelAdvertiseName(name, guid string) types.Status

	// EstablishLink 成功返回正的句柄，失败返回负的状态码
	EstablishLink(device string, groupOwnerIntent int) int32
	ReleaseLink(handle int32) types.Status

	// GetInterfaceNameFromHandle 未知句柄或链路未建立时返回空字符串
	GetInterfaceNameFromHandle(handle int32) string

	// OnChannelDown 通道在读写过程中断开
	OnChannelDown(err error)
}

// SignalSink 链路代理的信号输出
//
// 所有方法在链路代理的事件循环上调用，实现不得阻塞在代理自身上。
type SignalSink interface {
	OnFoundAdvertisedName(name, namePrefix, guid string, device types.DeviceID)
	OnLostAdvertisedName(name, namePrefix, guid string, device types.DeviceID)
	OnLinkEstablished(handle types.LinkHandle, interfaceName string)
	OnLinkError(handle types.LinkHandle, code types.Status)
	OnLinkLost(handle types.LinkHandle)
}
