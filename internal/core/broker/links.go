package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-p2plink/pkg/types"
)

// link 链路表项
type link struct {
	handle  types.LinkHandle
	device  types.DeviceID
	intent  int
	state   types.LinkState
	ifname  string
	created time.Time
	timer   *clock.Timer
}

func (l *link) info() types.LinkInfo {
	return types.LinkInfo{
		Handle:           l.handle,
		Device:           l.device,
		GroupOwnerIntent: l.intent,
		State:            l.state,
		InterfaceName:    l.ifname,
		CreatedAt:        l.created,
	}
}

// ============================================================================
//                              请求
// ============================================================================

// EstablishLink 请求与对端建立链路
//
// 立即返回新句柄；结果通过 LinkEstablished / LinkError 信号异步到达。
func (b *Broker) EstablishLink(ctx context.Context, device types.DeviceID, groupOwnerIntent int) (types.LinkHandle, error) {
	return call(ctx, b, func() (types.LinkHandle, error) {
		return b.establishLink(device, groupOwnerIntent)
	})
}

// ReleaseLink 释放链路
//
// 对已释放或已失败的句柄重复释放返回成功。
func (b *Broker) ReleaseLink(ctx context.Context, handle types.LinkHandle) error {
	_, err := call(ctx, b, func() (struct{}, error) {
		return struct{}{}, b.releaseLink(handle)
	})
	return err
}

// GetInterfaceNameFromHandle 返回链路的网络接口名
//
// 链路尚未建立时返回空字符串；未知或已终结的句柄返回 ErrUnknownHandle。
func (b *Broker) GetInterfaceNameFromHandle(ctx context.Context, handle types.LinkHandle) (string, error) {
	return call(ctx, b, func() (string, error) {
		l, ok := b.links[handle]
		if !ok {
			return "", types.ErrUnknownHandle
		}
		return l.ifname, nil
	})
}

func (b *Broker) establishLink(device types.DeviceID, intent int) (types.LinkHandle, error) {
	if device.IsEmpty() || intent < types.MinGroupOwnerIntent || intent > types.MaxGroupOwnerIntent {
		return types.InvalidHandle, types.ErrInvalidArgument
	}
	device = device.Normalize()

	if _, ok := b.peers[device]; !ok {
		return types.InvalidHandle, types.ErrUnknownPeer
	}
	if h, ok := b.byDevice[device]; ok {
		logger.Debug("对端已有链路", "device", device, "handle", h)
		return types.InvalidHandle, types.ErrAlreadyLinked
	}
	if !b.enabled {
		return types.InvalidHandle, types.ErrP2PDisabled
	}

	h := b.nextHandle
	b.nextHandle++
	b.lastIssued.Store(int32(h))

	l := &link{
		handle:  h,
		device:  device,
		intent:  intent,
		state:   types.LinkStateRequested,
		created: b.clk.Now(),
	}
	b.links[h] = l
	b.byDevice[device] = h

	if b.inFlight != types.InvalidHandle {
		b.pending = append(b.pending, h)
		logger.Debug("链路请求排队", "handle", h, "device", device, "queued", len(b.pending))
		return h, nil
	}

	if err := b.dispatch(l); err != nil {
		b.finish(l, types.LinkStateError)
		return types.InvalidHandle, err
	}
	return h, nil
}

func (b *Broker) releaseLink(h types.LinkHandle) error {
	l, ok := b.links[h]
	if !ok {
		if st, ok := b.history.Get(h); ok {
			logger.Debug("重复释放终结链路", "handle", h, "state", st)
			return nil
		}
		// 已分配但已移出历史的句柄同样视为已终结
		if h >= b.firstHandle && h < b.nextHandle {
			return nil
		}
		return types.ErrUnknownHandle
	}

	b.releaseOS(l)
	b.finish(l, types.LinkStateReleased)
	logger.Info("链路已释放", "handle", h, "device", l.device)
	b.pump()
	return nil
}

// releaseOS 撤销链路在操作系统侧的状态，失败只记录日志
func (b *Broker) releaseOS(l *link) {
	switch l.state {
	case types.LinkStateRequested:
		b.removePending(l.handle)
	case types.LinkStateNegotiating:
		if err := b.fw.CancelConnect(l.device); err != nil {
			logger.Warn("取消组形成失败", "handle", l.handle, "device", l.device, "error", err)
		}
	case types.LinkStateEstablished:
		if b.groupShared(l) {
			logger.Debug("组仍被其它链路使用，保留", "handle", l.handle, "iface", l.ifname)
			return
		}
		if err := b.fw.RemoveGroup(l.ifname); err != nil {
			logger.Warn("解散组失败", "handle", l.handle, "iface", l.ifname, "error", err)
		}
	}
}

// groupShared 检查是否有其它已建立链路使用同一个组接口
func (b *Broker) groupShared(l *link) bool {
	for h, other := range b.links {
		if h != l.handle && other.state == types.LinkStateEstablished && other.ifname == l.ifname {
			return true
		}
	}
	return false
}

// ============================================================================
//                              组形成队列
// ============================================================================

// dispatch 把链路交给操作系统开始组形成
func (b *Broker) dispatch(l *link) error {
	if err := b.fw.Connect(l.device, l.intent); err != nil {
		return fmt.Errorf("%w: connect %s: %v", types.ErrOsOperationFailed, l.device, err)
	}

	l.state = types.LinkStateNegotiating
	b.inFlight = l.handle

	h := l.handle
	l.timer = b.clk.AfterFunc(b.cfg.LinkTimeout, func() {
		_ = b.post(func() { b.onLinkTimeout(h) })
	})

	logger.Info("开始组形成", "handle", h, "device", l.device, "intent", l.intent)
	return nil
}

// pump 在没有进行中的组形成时派发下一个排队链路
func (b *Broker) pump() {
	for b.inFlight == types.InvalidHandle && len(b.pending) > 0 && b.enabled {
		h := b.pending[0]
		b.pending = b.pending[1:]

		l, ok := b.links[h]
		if !ok {
			continue
		}
		if err := b.dispatch(l); err != nil {
			logger.Warn("排队链路派发失败", "handle", h, "error", err)
			b.fail(l, types.StatusOsOperationFailed)
		}
	}
}

func (b *Broker) removePending(h types.LinkHandle) {
	for i, p := range b.pending {
		if p == h {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return
		}
	}
}

// finish 将链路移入终态并从活动表删除
func (b *Broker) finish(l *link, state types.LinkState) {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.state = state
	delete(b.links, l.handle)
	if b.byDevice[l.device] == l.handle {
		delete(b.byDevice, l.device)
	}
	if b.inFlight == l.handle {
		b.inFlight = types.InvalidHandle
	}
	b.removePending(l.handle)
	b.history.Add(l.handle, state)
}

// fail 链路进入 ERROR 并发出 LinkError
func (b *Broker) fail(l *link, code types.Status) {
	b.finish(l, types.LinkStateError)
	logger.Warn("链路失败", "handle", l.handle, "device", l.device, "code", code)
	b.sink.OnLinkError(l.handle, code)
}

// lose 链路进入 RELEASED 并发出 LinkLost
func (b *Broker) lose(l *link) {
	b.finish(l, types.LinkStateReleased)
	logger.Info("链路丢失", "handle", l.handle, "device", l.device)
	b.sink.OnLinkLost(l.handle)
}

// establish 链路进入 ESTABLISHED 并发出 LinkEstablished
func (b *Broker) establish(l *link, ifname string) {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.state == types.LinkStateRequested {
		b.removePending(l.handle)
	}
	if b.inFlight == l.handle {
		b.inFlight = types.InvalidHandle
	}
	l.state = types.LinkStateEstablished
	l.ifname = ifname

	logger.Info("链路已建立", "handle", l.handle, "device", l.device, "iface", ifname)
	b.sink.OnLinkEstablished(l.handle, ifname)
}

// ============================================================================
//                              操作系统事件
// ============================================================================

// OnConnectionInfoAvailable 组连接信息
func (b *Broker) OnConnectionInfoAvailable(info types.ConnectionInfo) error {
	return b.post(func() { b.onConnectionInfo(info) })
}

// OnConnectFailed 组形成失败
func (b *Broker) OnConnectFailed(failure types.ConnectFailure) error {
	return b.post(func() { b.onConnectFailed(failure) })
}

func (b *Broker) onConnectionInfo(info types.ConnectionInfo) {
	if !info.GroupFormed {
		// 组解散：该组接口上的已建立链路丢失（接口未知时视为全部组解散），
		// 进行中的协商等待超时或失败事件
		for _, h := range sortedHandles(b.links) {
			l := b.links[h]
			if l.state != types.LinkStateEstablished {
				continue
			}
			if info.InterfaceName == "" || l.ifname == info.InterfaceName {
				b.lose(l)
			}
		}
		b.pump()
		return
	}

	for _, h := range sortedHandles(b.links) {
		l, ok := b.links[h]
		if !ok {
			continue
		}
		switch l.state {
		case types.LinkStateRequested, types.LinkStateNegotiating:
			if info.Contains(l.device) || (h == b.inFlight && len(info.Devices) == 0) {
				b.establish(l, info.InterfaceName)
			}
		case types.LinkStateEstablished:
			// 同一组内的成员变化：对端离开组
			if l.ifname == info.InterfaceName && len(info.Devices) > 0 && !info.Contains(l.device) {
				b.lose(l)
			}
		}
	}
	b.pump()
}

func (b *Broker) onConnectFailed(f types.ConnectFailure) {
	h := b.inFlight
	if !f.Device.IsEmpty() {
		var ok bool
		if h, ok = b.byDevice[f.Device.Normalize()]; !ok {
			logger.Debug("忽略无链路对端的组形成失败", "device", f.Device)
			return
		}
	}

	l, ok := b.links[h]
	if !ok || l.state != types.LinkStateNegotiating {
		logger.Debug("忽略过期的组形成失败", "device", f.Device, "handle", h)
		return
	}
	logger.Warn("组形成失败", "handle", h, "device", l.device, "reason", f.Reason)
	b.fail(l, types.StatusFormationFailed)
	b.pump()
}

func (b *Broker) onLinkTimeout(h types.LinkHandle) {
	l, ok := b.links[h]
	if !ok || l.state != types.LinkStateNegotiating {
		return
	}
	if err := b.fw.CancelConnect(l.device); err != nil {
		logger.Warn("超时后取消组形成失败", "handle", h, "error", err)
	}
	b.fail(l, types.StatusFormationTimeout)
	b.pump()
}
