package types

// Peer 对端设备
//
// 由操作系统的完整对端列表刷新得到，刷新时整表替换。
type Peer struct {
	// DeviceID 设备地址
	DeviceID DeviceID

	// DisplayName 设备名称
	DisplayName string

	// IsGroupOwner 对端当前是否为某个组的组主
	IsGroupOwner bool
}

// ============================================================================
//                              名称通告与发现
// ============================================================================

// AdvertisedName 本地通告的名称
//
// (Name, GUID) 唯一；重复通告是幂等的。
type AdvertisedName struct {
	Name string
	GUID string
}

// FindRequest 名称前缀查找请求
//
// 多个调用者共享同一前缀时按引用计数，计数归零时删除。
type FindRequest struct {
	NamePrefix string
	RefCount   int
}

// DiscoveredName 已发现的远端名称
//
// 每个 (Name, Device) 对应一条记录；NamePrefix 为触发本次发现的前缀。
type DiscoveredName struct {
	Name       string
	NamePrefix string
	GUID       string
	Device     DeviceID
}

// BrokerStats 链路代理统计快照
type BrokerStats struct {
	ActiveLinks     int
	QueuedLinks     int
	FindRequests    int
	AdvertisedNames int
	Peers           int
	DiscoveredNames int
	Enabled         bool
	Discovering     bool
}
