package interfaces

import (
	"context"

	"github.com/dep2p/go-p2plink/pkg/types"
)

// LinkBroker 链路代理
//
// 所有请求和事件在单个事件循环上按到达顺序串行处理。
// 请求类方法等待事件循环处理完成后返回，但从不等待网络或操作系统的异步结果。
type LinkBroker interface {
	// Start 启动事件循环
	Start(ctx context.Context) error

	// Stop 释放所有链路、取消所有查找、撤回所有通告，然后停止事件循环
	Stop(ctx context.Context) error

	// Running 事件循环是否在运行
	Running() bool

	BrokerRequests
	BrokerEvents

	// Links 返回非终态链路快照
	Links(ctx context.Context) ([]types.LinkInfo, error)

	// Peers 返回对端表快照
	Peers(ctx context.Context) ([]types.Peer, error)

	// Discovered 返回已发现名称快照
	Discovered(ctx context.Context) ([]types.DiscoveredName, error)

	// Stats 返回统计快照
	Stats(ctx context.Context) (types.BrokerStats, error)
}

// BrokerRequests 原生守护进程发起的请求
type BrokerRequests interface {
	FindAdvertisedName(ctx context.Context, namePrefix string) error
	CancelFindAdvertisedName(ctx context.Context, namePrefix string) error
	AdvertiseName(ctx context.Context, name, guid string) error
	CancelAdvertiseName(ctx context.Context, name, guid string) error
	EstablishLink(ctx context.Context, device types.DeviceID, groupOwnerIntent int) (types.LinkHandle, error)
	ReleaseLink(ctx context.Context, handle types.LinkHandle) error
	GetInterfaceNameFromHandle(ctx context.Context, handle types.LinkHandle) (string, error)
}

// BrokerEvents 操作系统事件入口
//
// 事件只入队不等待；代理未运行时返回 types.ErrNotInitialized。
type BrokerEvents interface {
	SetEnabled(enabled bool) error
	SetDevice(self types.Peer) error
	OnConnectionInfoAvailable(info types.ConnectionInfo) error
	DiscoveryChanged(discovering bool) error
	PeersChanged() error
	OnServiceResponse(resp types.ServiceResponse) error
	OnConnectFailed(failure types.ConnectFailure) error
}
