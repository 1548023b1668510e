package broker

import (
	"context"
	"fmt"
	"strings"

	"github.com/dep2p/go-p2plink/pkg/types"
)

// findEntry 查找请求
type findEntry struct {
	refCount int
	// active 服务发现请求已在操作系统生效
	active bool
}

// nameKey 已发现名称的键：每个 (name, device) 一条
type nameKey struct {
	name   string
	device types.DeviceID
}

// discoveredEntry 已发现名称
type discoveredEntry struct {
	guid string
	// prefixes 已为其发出 Found 的前缀，按匹配顺序
	prefixes []string
}

func (e *discoveredEntry) has(prefix string) bool {
	for _, p := range e.prefixes {
		if p == prefix {
			return true
		}
	}
	return false
}

func (e *discoveredEntry) remove(prefix string) {
	for i, p := range e.prefixes {
		if p == prefix {
			e.prefixes = append(e.prefixes[:i], e.prefixes[i+1:]...)
			return
		}
	}
}

// matches 前缀匹配：区分大小写的字符串前缀
func matches(name, prefix string) bool {
	return strings.HasPrefix(name, prefix)
}

// ============================================================================
//                              查找
// ============================================================================

// FindAdvertisedName 开始查找名称前缀
//
// 同一前缀重复查找只增加引用计数并返回 ErrAlreadyFinding（按成功处理）。
func (b *Broker) FindAdvertisedName(ctx context.Context, prefix string) error {
	_, err := call(ctx, b, func() (struct{}, error) {
		return struct{}{}, b.findName(prefix)
	})
	return err
}

// CancelFindAdvertisedName 取消一次名称前缀查找
func (b *Broker) CancelFindAdvertisedName(ctx context.Context, prefix string) error {
	_, err := call(ctx, b, func() (struct{}, error) {
		b.cancelFind(prefix)
		return struct{}{}, nil
	})
	return err
}

func (b *Broker) findName(prefix string) error {
	if f, ok := b.finds[prefix]; ok {
		f.refCount++
		logger.Debug("前缀已在查找", "prefix", prefix, "refCount", f.refCount)
		return types.ErrAlreadyFinding
	}

	f := &findEntry{refCount: 1}
	b.finds[prefix] = f

	if b.enabled {
		if err := b.activateFind(prefix, f); err != nil {
			delete(b.finds, prefix)
			b.maybeStopDiscovery()
			return err
		}
	}
	logger.Info("开始查找名称前缀", "prefix", prefix, "enabled", b.enabled)

	// 已缓存的对端服务立即参与匹配
	for _, device := range sortedKeys(b.services) {
		for _, an := range b.services[device] {
			if matches(an.Name, prefix) {
				b.addMatch(an, device, prefix)
			}
		}
	}
	return nil
}

func (b *Broker) activateFind(prefix string, f *findEntry) error {
	if err := b.startDiscovery(); err != nil {
		return err
	}
	if err := b.fw.AddServiceRequest(prefix); err != nil {
		return fmt.Errorf("%w: add service request %q: %v", types.ErrOsOperationFailed, prefix, err)
	}
	f.active = true
	return nil
}

func (b *Broker) cancelFind(prefix string) {
	f, ok := b.finds[prefix]
	if !ok {
		logger.Debug("取消未在查找的前缀", "prefix", prefix)
		return
	}
	f.refCount--
	if f.refCount > 0 {
		return
	}

	delete(b.finds, prefix)
	if f.active {
		if err := b.fw.RemoveServiceRequest(prefix); err != nil {
			logger.Warn("移除服务发现请求失败", "prefix", prefix, "error", err)
		}
	}
	b.maybeStopDiscovery()

	// 只由该前缀匹配的名称随之丢失
	for _, key := range sortedNameKeys(b.discovered) {
		e := b.discovered[key]
		if !e.has(prefix) {
			continue
		}
		e.remove(prefix)
		if len(e.prefixes) == 0 {
			delete(b.discovered, key)
			b.sink.OnLostAdvertisedName(key.name, prefix, e.guid, key.device)
		}
	}
	logger.Info("停止查找名称前缀", "prefix", prefix)
}

// addMatch 记录一次 (name, device, prefix) 匹配，首次匹配时发出 Found
func (b *Broker) addMatch(an types.AdvertisedName, device types.DeviceID, prefix string) {
	key := nameKey{name: an.Name, device: device}
	e, ok := b.discovered[key]
	if !ok {
		e = &discoveredEntry{guid: an.GUID}
		b.discovered[key] = e
	}
	if e.has(prefix) {
		return
	}
	e.prefixes = append(e.prefixes, prefix)
	logger.Debug("发现名称", "name", an.Name, "prefix", prefix, "device", device)
	b.sink.OnFoundAdvertisedName(an.Name, prefix, an.GUID, device)
}

// loseEntry 删除已发现名称，为每个匹配过的前缀发出 Lost
func (b *Broker) loseEntry(key nameKey) {
	e, ok := b.discovered[key]
	if !ok {
		return
	}
	delete(b.discovered, key)
	for _, prefix := range e.prefixes {
		b.sink.OnLostAdvertisedName(key.name, prefix, e.guid, key.device)
	}
}

// ============================================================================
//                              发现会话
// ============================================================================

func (b *Broker) startDiscovery() error {
	if b.discovering {
		return nil
	}
	if err := b.fw.DiscoverPeers(); err != nil {
		return fmt.Errorf("%w: discover peers: %v", types.ErrOsOperationFailed, err)
	}
	b.discovering = true
	return nil
}

func (b *Broker) maybeStopDiscovery() {
	if len(b.finds) > 0 {
		return
	}
	b.cancelRestart()
	if !b.discovering {
		return
	}
	if err := b.fw.StopPeerDiscovery(); err != nil {
		logger.Warn("停止对端发现失败", "error", err)
	}
	b.discovering = false
}

// DiscoveryChanged 对端发现会话状态变化
func (b *Broker) DiscoveryChanged(discovering bool) error {
	return b.post(func() { b.onDiscoveryChanged(discovering) })
}

func (b *Broker) onDiscoveryChanged(discovering bool) {
	if discovering {
		logger.Debug("对端发现会话已启动")
		return
	}
	if !b.discovering {
		return
	}
	// 会话被操作系统静默停止
	b.discovering = false
	if len(b.finds) > 0 && b.enabled {
		logger.Info("对端发现会话停止，计划重启", "finds", len(b.finds))
		b.scheduleRestart()
	}
}

// scheduleRestart 按限速重启发现会话
func (b *Broker) scheduleRestart() {
	if b.restartTimer != nil {
		return
	}
	now := b.clk.Now()
	r := b.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay <= 0 {
		b.restartDiscovery()
		return
	}

	logger.Debug("发现会话重启被限速", "delay", delay)
	b.restartTimer = b.clk.AfterFunc(delay, func() {
		_ = b.post(func() {
			b.restartTimer = nil
			b.restartDiscovery()
		})
	})
}

func (b *Broker) cancelRestart() {
	if b.restartTimer != nil {
		b.restartTimer.Stop()
		b.restartTimer = nil
	}
}

func (b *Broker) restartDiscovery() {
	if !b.enabled || len(b.finds) == 0 || b.discovering {
		return
	}
	if err := b.startDiscovery(); err != nil {
		logger.Warn("重启对端发现失败", "error", err)
		b.scheduleRestart()
	}
}

// ============================================================================
//                              服务响应
// ============================================================================

// OnServiceResponse 对端服务快照
func (b *Broker) OnServiceResponse(resp types.ServiceResponse) error {
	return b.post(func() { b.onServiceResponse(resp) })
}

func (b *Broker) onServiceResponse(resp types.ServiceResponse) {
	if resp.Device.IsEmpty() {
		return
	}
	device := resp.Device.Normalize()

	names := make([]types.AdvertisedName, 0, len(resp.Names))
	current := make(map[string]string, len(resp.Names))
	for _, an := range resp.Names {
		if an.Name == "" {
			continue
		}
		if _, dup := current[an.Name]; dup {
			continue
		}
		current[an.Name] = an.GUID
		names = append(names, an)
	}
	if len(names) == 0 {
		delete(b.services, device)
	} else {
		b.services[device] = names
	}

	// 撤回或 GUID 变化的名称先丢失
	for _, key := range sortedNameKeys(b.discovered) {
		if key.device != device {
			continue
		}
		guid, ok := current[key.name]
		if !ok || guid != b.discovered[key].guid {
			b.loseEntry(key)
		}
	}

	for _, an := range names {
		for _, prefix := range sortedKeys(b.finds) {
			if matches(an.Name, prefix) {
				b.addMatch(an, device, prefix)
			}
		}
	}
}

// expireDevice 对端消失：其服务与已发现名称全部失效
func (b *Broker) expireDevice(device types.DeviceID) {
	delete(b.services, device)
	for _, key := range sortedNameKeys(b.discovered) {
		if key.device == device {
			b.loseEntry(key)
		}
	}
}

// ============================================================================
//                              通告
// ============================================================================

// AdvertiseName 通告本地名称
//
// 重复通告返回 ErrAlreadyAdvertising（按成功处理）。
func (b *Broker) AdvertiseName(ctx context.Context, name, guid string) error {
	_, err := call(ctx, b, func() (struct{}, error) {
		return struct{}{}, b.advertise(types.AdvertisedName{Name: name, GUID: guid})
	})
	return err
}

// CancelAdvertiseName 撤回本地名称
func (b *Broker) CancelAdvertiseName(ctx context.Context, name, guid string) error {
	_, err := call(ctx, b, func() (struct{}, error) {
		b.cancelAdvertise(types.AdvertisedName{Name: name, GUID: guid})
		return struct{}{}, nil
	})
	return err
}

func (b *Broker) advertise(an types.AdvertisedName) error {
	if an.Name == "" {
		return types.ErrInvalidArgument
	}
	if _, ok := b.advertised[an]; ok {
		return types.ErrAlreadyAdvertising
	}

	active := false
	if b.enabled {
		if err := b.fw.AddLocalService(an); err != nil {
			return fmt.Errorf("%w: add local service %q: %v", types.ErrOsOperationFailed, an.Name, err)
		}
		active = true
	}
	b.advertised[an] = active
	logger.Info("通告名称", "name", an.Name, "guid", an.GUID, "active", active)
	return nil
}

func (b *Broker) cancelAdvertise(an types.AdvertisedName) {
	active, ok := b.advertised[an]
	if !ok {
		logger.Debug("撤回未通告的名称", "name", an.Name)
		return
	}
	delete(b.advertised, an)
	if active {
		if err := b.fw.RemoveLocalService(an); err != nil {
			logger.Warn("撤回本地服务失败", "name", an.Name, "error", err)
		}
	}
	logger.Info("撤回名称", "name", an.Name, "guid", an.GUID)
}
