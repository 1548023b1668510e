package broker

import (
	"github.com/dep2p/go-p2plink/pkg/types"
)

// ============================================================================
//                              P2P 启用状态
// ============================================================================

// SetEnabled P2P 功能启用/禁用
func (b *Broker) SetEnabled(enabled bool) error {
	return b.post(func() { b.setEnabled(enabled) })
}

func (b *Broker) setEnabled(enabled bool) {
	if enabled == b.enabled {
		return
	}
	b.enabled = enabled
	logger.Info("P2P 状态变化", "enabled", enabled)

	if !enabled {
		// 操作系统已撤销全部 P2P 状态：链路失败，会话标记清除，逻辑请求保留
		for _, h := range sortedHandles(b.links) {
			b.fail(b.links[h], types.StatusP2PDisabled)
		}
		b.pending = nil
		b.inFlight = types.InvalidHandle
		for _, f := range b.finds {
			f.active = false
		}
		for an := range b.advertised {
			b.advertised[an] = false
		}
		b.discovering = false
		b.cancelRestart()
		return
	}

	// 重新下发逻辑请求
	for _, an := range sortedAdvertised(b.advertised) {
		if err := b.fw.AddLocalService(an); err != nil {
			logger.Warn("重新通告失败", "name", an.Name, "error", err)
			continue
		}
		b.advertised[an] = true
	}
	if len(b.finds) == 0 {
		return
	}
	if err := b.startDiscovery(); err != nil {
		logger.Warn("重新启动对端发现失败", "error", err)
		b.scheduleRestart()
	}
	for _, prefix := range sortedKeys(b.finds) {
		if err := b.fw.AddServiceRequest(prefix); err != nil {
			logger.Warn("重新注册服务发现请求失败", "prefix", prefix, "error", err)
			continue
		}
		b.finds[prefix].active = true
	}
}

// ============================================================================
//                              本机与对端
// ============================================================================

// SetDevice 本机设备信息
func (b *Broker) SetDevice(self types.Peer) error {
	return b.post(func() {
		if self == b.self {
			return
		}
		b.self = self
		logger.Debug("本机设备信息更新", "device", self.DeviceID, "name", self.DisplayName, "go", self.IsGroupOwner)
	})
}

// PeersChanged 对端列表变化：拉取完整列表并整表替换
func (b *Broker) PeersChanged() error {
	return b.post(b.refreshPeers)
}

func (b *Broker) refreshPeers() {
	peers, err := b.fw.RequestPeers()
	if err != nil {
		logger.Warn("拉取对端列表失败", "error", err)
		return
	}

	next := make(map[types.DeviceID]types.Peer, len(peers))
	for _, p := range peers {
		if p.DeviceID.IsEmpty() {
			continue
		}
		p.DeviceID = p.DeviceID.Normalize()
		next[p.DeviceID] = p
	}

	// 消失对端上的链路丢失
	for _, id := range sortedKeys(b.peers) {
		if _, ok := next[id]; ok {
			continue
		}
		if h, ok := b.byDevice[id]; ok {
			l := b.links[h]
			b.releaseOS(l)
			b.lose(l)
		}
	}
	b.peers = next

	// 消失对端的服务与已发现名称失效
	stale := make(map[types.DeviceID]struct{})
	for id := range b.services {
		stale[id] = struct{}{}
	}
	for key := range b.discovered {
		stale[key.device] = struct{}{}
	}
	for _, id := range sortedKeys(stale) {
		if _, ok := next[id]; !ok {
			b.expireDevice(id)
		}
	}

	b.pump()
	logger.Debug("对端表已刷新", "peers", len(next))
}

// ============================================================================
//                              收尾
// ============================================================================

// teardown 释放链路、取消查找、撤回通告，不发出信号
func (b *Broker) teardown() {
	for _, h := range sortedHandles(b.links) {
		l := b.links[h]
		if b.enabled {
			b.releaseOS(l)
		}
		b.finish(l, types.LinkStateReleased)
	}
	b.pending = nil
	b.inFlight = types.InvalidHandle

	for _, prefix := range sortedKeys(b.finds) {
		if b.finds[prefix].active {
			if err := b.fw.RemoveServiceRequest(prefix); err != nil {
				logger.Debug("收尾时移除服务发现请求失败", "prefix", prefix, "error", err)
			}
		}
	}
	b.finds = make(map[string]*findEntry)
	b.maybeStopDiscovery()

	for _, an := range sortedAdvertised(b.advertised) {
		if b.advertised[an] {
			if err := b.fw.RemoveLocalService(an); err != nil {
				logger.Debug("收尾时撤回本地服务失败", "name", an.Name, "error", err)
			}
		}
	}
	b.advertised = make(map[types.AdvertisedName]bool)
	b.discovered = make(map[nameKey]*discoveredEntry)
	b.services = make(map[types.DeviceID][]types.AdvertisedName)
}
