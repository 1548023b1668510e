package wpas

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/dep2p/go-p2plink/pkg/types"
)

// wpa_supplicant D-Bus 名称
const (
	service      = "fi.w1.wpa_supplicant1"
	rootPath     = dbus.ObjectPath("/fi/w1/wpa_supplicant1")
	rootIface    = "fi.w1.wpa_supplicant1"
	ifaceIface   = "fi.w1.wpa_supplicant1.Interface"
	p2pIface     = "fi.w1.wpa_supplicant1.Interface.P2PDevice"
	peerIface    = "fi.w1.wpa_supplicant1.Peer"
	groupIface   = "fi.w1.wpa_supplicant1.Group"
	bssIface     = "fi.w1.wpa_supplicant1.BSS"
	propsGetAll  = "org.freedesktop.DBus.Properties.GetAll"
	serviceTypeB = "bonjour"
)

// groupCapabilityOwner 对端组能力位：当前为组主
const groupCapabilityOwner = 0x01

// busConn D-Bus 连接（*dbus.Conn 的子集）
type busConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	AddMatchSignal(options ...dbus.MatchOption) error
	Close() error
}

// dialSystemBus 建立独占的系统总线连接
func dialSystemBus() (busConn, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ============================================================================
//                              地址与路径
// ============================================================================

// formatMAC 将 6 字节地址格式化为小写冒号分隔形式
func formatMAC(b []byte) string {
	if len(b) != 6 {
		return ""
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4], b[5])
}

// peerPath 返回对端的对象路径：<iface>/Peers/<不带冒号的地址>
func peerPath(iface dbus.ObjectPath, device types.DeviceID) dbus.ObjectPath {
	hex := strings.ReplaceAll(string(device.Normalize()), ":", "")
	return dbus.ObjectPath(string(iface) + "/Peers/" + hex)
}

// deviceFromPeerPath 从对端对象路径还原设备地址
func deviceFromPeerPath(p dbus.ObjectPath) types.DeviceID {
	s := string(p)
	idx := strings.LastIndex(s, "/Peers/")
	if idx < 0 {
		return ""
	}
	hex := strings.ToLower(s[idx+len("/Peers/"):])
	if len(hex) != 12 {
		return ""
	}
	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, hex[i:i+2])
	}
	return types.DeviceID(strings.Join(parts, ":"))
}

// ============================================================================
//                              属性解析
// ============================================================================

// peerFromProps 从 Peer 对象属性构造对端
func peerFromProps(path dbus.ObjectPath, props map[string]dbus.Variant) types.Peer {
	p := types.Peer{DeviceID: deviceFromPeerPath(path)}
	if v, ok := props["DeviceName"]; ok {
		p.DisplayName, _ = v.Value().(string)
	}
	if v, ok := props["DeviceAddress"]; ok {
		if addr, ok := v.Value().([]byte); ok {
			if mac := formatMAC(addr); mac != "" {
				p.DeviceID = types.DeviceID(mac)
			}
		}
	}
	if v, ok := props["GroupCapability"]; ok {
		if capab, ok := v.Value().(byte); ok {
			p.IsGroupOwner = capab&groupCapabilityOwner != 0
		}
	}
	return p
}

// scanResultFromProps 从 BSS 对象属性构造扫描结果
func scanResultFromProps(props map[string]dbus.Variant) types.ScanResult {
	var r types.ScanResult
	if v, ok := props["BSSID"]; ok {
		if b, ok := v.Value().([]byte); ok {
			r.BSSID = formatMAC(b)
		}
	}
	if v, ok := props["SSID"]; ok {
		if b, ok := v.Value().([]byte); ok {
			r.SSID = string(b)
		}
	}
	if v, ok := props["Frequency"]; ok {
		if f, ok := v.Value().(uint16); ok {
			r.Frequency = int(f)
		}
	}
	if v, ok := props["Signal"]; ok {
		if s, ok := v.Value().(int16); ok {
			r.Level = int(s)
		}
	}
	return r
}

func variantPath(m map[string]dbus.Variant, key string) dbus.ObjectPath {
	if v, ok := m[key]; ok {
		p, _ := v.Value().(dbus.ObjectPath)
		return p
	}
	return ""
}

func variantString(m map[string]dbus.Variant, key string) string {
	if v, ok := m[key]; ok {
		s, _ := v.Value().(string)
		return s
	}
	return ""
}

func variantBytes(m map[string]dbus.Variant, key string) []byte {
	if v, ok := m[key]; ok {
		b, _ := v.Value().([]byte)
		return b
	}
	return nil
}
