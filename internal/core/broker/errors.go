package broker

import "errors"

// 链路代理错误定义
var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("broker: invalid config")

	// ErrNilFramework 未提供操作系统 P2P 框架
	ErrNilFramework = errors.New("broker: nil p2p framework")

	// ErrNilSink 未提供信号输出
	ErrNilSink = errors.New("broker: nil signal sink")
)
