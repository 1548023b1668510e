// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义，提供 DefaultXxxConfig() 与 Validate()
//   - 支持从 JSON 加载和保存配置
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Broker.LinkTimeout = config.Duration(45 * time.Second)
//
//	cfg, err := config.LoadFile("/etc/p2plink/config.json")
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Config 是 p2plink 的完整配置结构
//
//   - Broker: 链路代理（超时、队列、历史）
//   - Bridge: 原生守护进程通道
//   - Backend: 操作系统 P2P 后端
//   - LegacyScan: Wi-Fi 扫描适配器
//   - Metrics: Prometheus 指标
//   - Log: 日志
type Config struct {
	// Broker 链路代理配置
	Broker BrokerConfig `json:"broker"`

	// Bridge 原生通道配置
	Bridge BridgeConfig `json:"bridge"`

	// Backend 操作系统后端配置
	Backend BackendConfig `json:"backend"`

	// LegacyScan 扫描适配器配置
	LegacyScan LegacyScanConfig `json:"legacy_scan"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Broker:     DefaultBrokerConfig(),
		Bridge:     DefaultBridgeConfig(),
		Backend:    DefaultBackendConfig(),
		LegacyScan: DefaultLegacyScanConfig(),
		Metrics:    DefaultMetricsConfig(),
		Log:        DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
//
// 依次验证所有子配置，返回第一个错误。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	validators := []struct {
		name string
		fn   func() error
	}{
		{"broker", c.Broker.Validate},
		{"bridge", c.Bridge.Validate},
		{"backend", c.Backend.Validate},
		{"legacy_scan", c.LegacyScan.Validate},
		{"metrics", c.Metrics.Validate},
		{"log", c.Log.Validate},
	}
	for _, v := range validators {
		if err := v.fn(); err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return nil
}

// Clone 返回配置的深拷贝
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// FromJSON 从 JSON 加载配置
//
// 未出现在 JSON 中的字段保持默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return FromJSON(data)
}

// ToJSON 将配置序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
