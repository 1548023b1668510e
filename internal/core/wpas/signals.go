package wpas

import (
	"github.com/godbus/dbus/v5"

	"github.com/dep2p/go-p2plink/internal/core/dnssd"
	"github.com/dep2p/go-p2plink/pkg/types"
)

// groupRoleOwner GroupStarted 中组主角色的取值
const groupRoleOwner = "GO"

func (b *Backend) signalLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case sig, ok := <-b.sigCh:
			if !ok {
				return
			}
			b.handleSignal(sig)
		}
	}
}

// handleSignal 将一个 D-Bus 信号转换为事件总线事件
func (b *Backend) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	switch sig.Name {
	case p2pIface + ".DeviceFound", p2pIface + ".DeviceLost":
		b.emit(types.P2PBroadcast{Kind: types.EventPeersChanged})

	case p2pIface + ".FindStopped":
		b.emit(types.P2PBroadcast{Kind: types.EventDiscoveryChanged, Discovering: false})

	case p2pIface + ".GroupStarted":
		if props, ok := bodyMap(sig, 0); ok {
			b.onGroupStarted(props)
		}

	case p2pIface + ".GroupFinished":
		if props, ok := bodyMap(sig, 0); ok {
			b.onGroupFinished(props)
		}

	case p2pIface + ".GONegotiationFailure":
		props, _ := bodyMap(sig, 0)
		device := deviceFromPeerPath(variantPath(props, "peer_object"))
		b.emit(types.P2PBroadcast{
			Kind:    types.EventConnectFailed,
			Failure: types.ConnectFailure{Device: device, Reason: "go negotiation failure"},
		})

	case p2pIface + ".GroupFormationFailure":
		reason, _ := bodyString(sig, 0)
		b.mu.Lock()
		device := b.connecting
		b.mu.Unlock()
		b.emit(types.P2PBroadcast{
			Kind:    types.EventConnectFailed,
			Failure: types.ConnectFailure{Device: device, Reason: reason},
		})

	case p2pIface + ".ServiceDiscoveryResponse":
		if props, ok := bodyMap(sig, 0); ok {
			b.onServiceResponse(props)
		}

	case ifaceIface + ".ScanDone":
		if success, ok := bodyBool(sig, 0); ok && !success {
			logger.Debug("扫描未成功完成")
			return
		}
		evt := b.readScanResults()
		if err := b.scanEm.Emit(&evt); err != nil {
			logger.Debug("发布扫描结果失败", "error", err)
		}

	case rootIface + ".InterfaceRemoved":
		if p, ok := bodyPath(sig, 0); ok && p == b.iface() {
			logger.Warn("P2P 网络接口已移除", "path", p)
			b.emit(types.P2PBroadcast{Kind: types.EventStateChanged, Enabled: false})
		}

	case rootIface + ".InterfaceAdded":
		props, _ := bodyMap(sig, 1)
		if variantString(props, "Ifname") == b.cfg.Interface {
			p, _ := bodyPath(sig, 0)
			logger.Info("P2P 网络接口已恢复", "path", p)
			if p != "" && p != b.iface() {
				b.rebind(p)
			}
			b.emit(types.P2PBroadcast{Kind: types.EventStateChanged, Enabled: true})
		}
	}
}

func (b *Backend) onGroupStarted(props map[string]dbus.Variant) {
	groupIfacePath := variantPath(props, "interface_object")
	role := variantString(props, "role")

	var ifname string
	if v, err := b.conn.Object(service, groupIfacePath).GetProperty(ifaceIface + ".Ifname"); err == nil {
		ifname, _ = v.Value().(string)
	}
	if ifname == "" {
		logger.Warn("无法确定组接口名", "path", groupIfacePath)
		return
	}

	devices := b.groupMembers(variantPath(props, "group_object"))

	b.mu.Lock()
	b.groups[ifname] = groupIfacePath
	b.groupNames[groupIfacePath] = ifname
	if b.connecting != "" {
		devices = appendDevice(devices, b.connecting)
		b.connecting = ""
	}
	b.self.IsGroupOwner = role == groupRoleOwner
	self := b.self
	b.mu.Unlock()

	logger.Info("组已建立", "iface", ifname, "role", role, "members", len(devices))
	b.emit(types.P2PBroadcast{
		Kind: types.EventConnectionChanged,
		Connection: types.ConnectionInfo{
			GroupFormed:   true,
			IsGroupOwner:  role == groupRoleOwner,
			InterfaceName: ifname,
			Devices:       devices,
		},
	})
	b.emit(types.P2PBroadcast{Kind: types.EventThisDeviceChanged, Device: self})
}

func (b *Backend) onGroupFinished(props map[string]dbus.Variant) {
	groupIfacePath := variantPath(props, "interface_object")

	b.mu.Lock()
	ifname := b.groupNames[groupIfacePath]
	delete(b.groupNames, groupIfacePath)
	delete(b.groups, ifname)
	b.self.IsGroupOwner = false
	self := b.self
	b.mu.Unlock()

	logger.Info("组已解散", "iface", ifname)
	b.emit(types.P2PBroadcast{
		Kind:       types.EventConnectionChanged,
		Connection: types.ConnectionInfo{GroupFormed: false, InterfaceName: ifname},
	})
	b.emit(types.P2PBroadcast{Kind: types.EventThisDeviceChanged, Device: self})
}

func (b *Backend) onServiceResponse(props map[string]dbus.Variant) {
	device := deviceFromPeerPath(variantPath(props, "peer_object"))
	if device.IsEmpty() {
		return
	}
	names, err := dnssd.DecodeResponseTLVs(variantBytes(props, "tlvs"))
	if err != nil {
		logger.Debug("服务发现响应解析失败", "device", device, "error", err)
		return
	}
	b.emit(types.P2PBroadcast{
		Kind:    types.EventServiceResponse,
		Service: types.ServiceResponse{Device: device, Names: names},
	})
}

// groupMembers 读取组成员（仅组主可见）
func (b *Backend) groupMembers(group dbus.ObjectPath) []types.DeviceID {
	if group == "" {
		return nil
	}
	v, err := b.conn.Object(service, group).GetProperty(groupIface + ".Members")
	if err != nil {
		return nil
	}
	paths, _ := v.Value().([]dbus.ObjectPath)
	out := make([]types.DeviceID, 0, len(paths))
	for _, p := range paths {
		if d := deviceFromPeerPath(p); !d.IsEmpty() {
			out = append(out, d)
		}
	}
	return out
}

func appendDevice(list []types.DeviceID, d types.DeviceID) []types.DeviceID {
	for _, x := range list {
		if x == d {
			return list
		}
	}
	return append(list, d)
}

// ============================================================================
//                              信号体解析
// ============================================================================

func bodyMap(sig *dbus.Signal, i int) (map[string]dbus.Variant, bool) {
	if len(sig.Body) <= i {
		return nil, false
	}
	m, ok := sig.Body[i].(map[string]dbus.Variant)
	return m, ok
}

func bodyString(sig *dbus.Signal, i int) (string, bool) {
	if len(sig.Body) <= i {
		return "", false
	}
	s, ok := sig.Body[i].(string)
	return s, ok
}

func bodyBool(sig *dbus.Signal, i int) (bool, bool) {
	if len(sig.Body) <= i {
		return false, false
	}
	v, ok := sig.Body[i].(bool)
	return v, ok
}

func bodyPath(sig *dbus.Signal, i int) (dbus.ObjectPath, bool) {
	if len(sig.Body) <= i {
		return "", false
	}
	p, ok := sig.Body[i].(dbus.ObjectPath)
	return p, ok
}
