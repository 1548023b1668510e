package config

import (
	"errors"
	"fmt"
	"time"
)

// 后端类型
const (
	// BackendWpas Linux wpa_supplicant（D-Bus）
	BackendWpas = "wpas"
	// BackendNone 不加载内置后端，由调用方通过选项注入
	BackendNone = "none"
)

// BackendConfig 操作系统 P2P 后端配置
type BackendConfig struct {
	// Kind 后端类型：wpas / none
	Kind string `json:"kind"`

	// Interface wpa_supplicant 管理的网络接口名
	Interface string `json:"interface"`

	// FindTimeout 单次对端发现会话时长，0 表示不限
	FindTimeout Duration `json:"find_timeout"`

	// WPSMethod 组形成使用的 WPS 方式
	WPSMethod string `json:"wps_method"`
}

// DefaultBackendConfig 返回默认后端配置
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Kind:        BackendWpas,
		Interface:   "wlan0",
		FindTimeout: Duration(120 * time.Second),
		WPSMethod:   "pbc",
	}
}

// Validate 验证后端配置
func (c BackendConfig) Validate() error {
	switch c.Kind {
	case BackendWpas:
		if c.Interface == "" {
			return errors.New("interface is required for wpas backend")
		}
		switch c.WPSMethod {
		case "pbc", "display", "keypad":
		default:
			return fmt.Errorf("unsupported wps_method %q", c.WPSMethod)
		}
	case BackendNone:
	default:
		return fmt.Errorf("unknown backend kind %q", c.Kind)
	}
	if c.FindTimeout < 0 {
		return errors.New("find_timeout must not be negative")
	}
	return nil
}
