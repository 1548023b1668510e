package interfaces

import "github.com/dep2p/go-p2plink/pkg/types"

// P2PFramework 操作系统 Wi-Fi P2P 框架
//
// 除 RequestPeers 外，所有方法只负责发起操作并立即返回；
// 操作结果通过事件总线上的 types.P2PBroadcast 异步到达。
// 返回错误表示操作系统同步拒绝了该操作。
type P2PFramework interface {
	// DiscoverPeers 启动对端发现会话
	DiscoverPeers() error

	// StopPeerDiscovery 停止对端发现会话
	StopPeerDiscovery() error

	// AddServiceRequest 为名称前缀注册服务发现请求
	AddServiceRequest(prefix string) error

	// RemoveServiceRequest 移除名称前缀的服务发现请求
	RemoveServiceRequest(prefix string) error

	// AddLocalService 通告本地名称
	AddLocalService(name types.AdvertisedName) error

	// RemoveLocalService 撤回本地名称
	RemoveLocalService(name types.AdvertisedName) error

	// Connect 向对端发起组形成
	Connect(device types.DeviceID, groupOwnerIntent int) error

	// CancelConnect 取消进行中的组形成
	CancelConnect(device types.DeviceID) error

	// RemoveGroup 解散指定接口上的组
	RemoveGroup(interfaceName string) error

	// RequestPeers 返回操作系统当前的完整对端列表
	RequestPeers() ([]types.Peer, error)
}

// ScanTrigger 可触发一次性 Wi-Fi 扫描的后端
//
// 扫描结果以 types.ScanResultsEvent 发布到事件总线。
type ScanTrigger interface {
	RequestScan() error
}
