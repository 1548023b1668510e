package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// BridgeConfig 原生守护进程通道配置
type BridgeConfig struct {
	// URL 守护进程 websocket 地址
	URL string `json:"url"`

	// HandshakeTimeout 握手超时
	HandshakeTimeout Duration `json:"handshake_timeout"`

	// WriteTimeout 单条信号写超时
	WriteTimeout Duration `json:"write_timeout"`

	// IdleTimeout 空闲回收超时
	// 超过此时长没有收到任何 RPC 时自动 Shutdown；0 表示禁用
	IdleTimeout Duration `json:"idle_timeout"`
}

// DefaultBridgeConfig 返回默认通道配置
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		URL:              "ws://127.0.0.1:9955/p2plink",
		HandshakeTimeout: Duration(10 * time.Second),
		WriteTimeout:     Duration(5 * time.Second),
		IdleTimeout:      0,
	}
}

// Validate 验证通道配置
func (c BridgeConfig) Validate() error {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("url scheme must be ws or wss, got %q", u.Scheme)
		}
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("handshake_timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write_timeout must be positive")
	}
	if c.IdleTimeout < 0 {
		return errors.New("idle_timeout must not be negative")
	}
	return nil
}
