package config

import "errors"

// LegacyScanConfig Wi-Fi 扫描适配器配置
type LegacyScanConfig struct {
	// Enabled 是否加载扫描适配器
	Enabled bool `json:"enabled"`

	// CacheSize 最近见到的 BSSID 缓存容量
	CacheSize int `json:"cache_size"`
}

// DefaultLegacyScanConfig 返回默认扫描适配器配置
func DefaultLegacyScanConfig() LegacyScanConfig {
	return LegacyScanConfig{
		Enabled:   true,
		CacheSize: 256,
	}
}

// Validate 验证扫描适配器配置
func (c LegacyScanConfig) Validate() error {
	if c.Enabled && c.CacheSize <= 0 {
		return errors.New("cache_size must be positive")
	}
	return nil
}
