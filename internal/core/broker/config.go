package broker

import (
	"time"

	"github.com/dep2p/go-p2plink/config"
)

// Config 链路代理配置
type Config struct {
	// LinkTimeout NEGOTIATING 监督超时
	LinkTimeout time.Duration

	// CommandQueueSize 命令队列长度
	CommandQueueSize int

	// ReleasedHistorySize 终结句柄历史容量
	ReleasedHistorySize int

	// DiscoveryRestartInterval 发现会话重启的最小间隔
	DiscoveryRestartInterval time.Duration

	// DiscoveryRestartBurst 发现会话重启突发次数
	DiscoveryRestartBurst int

	// AssumeEnabled 初始是否认为 P2P 已启用
	AssumeEnabled bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(config.NewConfig())
}

// ConfigFromUnified 从统一配置创建链路代理配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return Config{
		LinkTimeout:              cfg.Broker.LinkTimeout.Duration(),
		CommandQueueSize:         cfg.Broker.CommandQueueSize,
		ReleasedHistorySize:      cfg.Broker.ReleasedHistorySize,
		DiscoveryRestartInterval: cfg.Broker.DiscoveryRestartInterval.Duration(),
		DiscoveryRestartBurst:    cfg.Broker.DiscoveryRestartBurst,
		AssumeEnabled:            cfg.Broker.AssumeEnabled,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.LinkTimeout <= 0 || c.CommandQueueSize <= 0 || c.ReleasedHistorySize <= 0 {
		return ErrInvalidConfig
	}
	if c.DiscoveryRestartInterval < 0 || c.DiscoveryRestartBurst <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
