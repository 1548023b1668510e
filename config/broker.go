package config

import (
	"errors"
	"time"
)

// BrokerConfig 链路代理配置
type BrokerConfig struct {
	// LinkTimeout 组形成监督超时
	// NEGOTIATING 状态超过此时长仍未收到连接信息则判为 ERROR
	LinkTimeout Duration `json:"link_timeout"`

	// CommandQueueSize 事件循环命令队列长度
	CommandQueueSize int `json:"command_queue_size"`

	// ReleasedHistorySize 已终结句柄的历史容量
	// 用于识别对已释放句柄的重复释放
	ReleasedHistorySize int `json:"released_history_size"`

	// DiscoveryRestartInterval 对端发现静默停止后的最小重启间隔
	DiscoveryRestartInterval Duration `json:"discovery_restart_interval"`

	// DiscoveryRestartBurst 允许的连续重启次数
	DiscoveryRestartBurst int `json:"discovery_restart_burst"`

	// RequestTimeout 单个 RPC 在事件循环上的等待上限
	RequestTimeout Duration `json:"request_timeout"`

	// AssumeEnabled 在收到第一个 STATE_CHANGED 之前是否认为 P2P 已启用
	AssumeEnabled bool `json:"assume_enabled"`
}

// DefaultBrokerConfig 返回默认链路代理配置
func DefaultBrokerConfig() BrokerConfig {
	return BrokerConfig{
		LinkTimeout:              Duration(30 * time.Second), // 组形成监督超时
		CommandQueueSize:         256,                        // 命令队列
		ReleasedHistorySize:      1024,                       // 终结句柄历史
		DiscoveryRestartInterval: Duration(5 * time.Second),  // 发现重启节流
		DiscoveryRestartBurst:    2,
		RequestTimeout:           Duration(5 * time.Second),
		AssumeEnabled:            true,
	}
}

// Validate 验证链路代理配置
func (c BrokerConfig) Validate() error {
	if c.LinkTimeout <= 0 {
		return errors.New("link_timeout must be positive")
	}
	if c.CommandQueueSize <= 0 {
		return errors.New("command_queue_size must be positive")
	}
	if c.ReleasedHistorySize <= 0 {
		return errors.New("released_history_size must be positive")
	}
	if c.DiscoveryRestartInterval < 0 {
		return errors.New("discovery_restart_interval must not be negative")
	}
	if c.DiscoveryRestartBurst <= 0 {
		return errors.New("discovery_restart_burst must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}
