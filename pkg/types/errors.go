package types

import (
	"context"
	"errors"
)

// ============================================================================
//                              链路代理错误
// ============================================================================

var (
	// ErrUnknownHandle 未知句柄
	ErrUnknownHandle = errors.New("unknown link handle")

	// ErrUnknownPeer 未知对端
	ErrUnknownPeer = errors.New("unknown peer")

	// ErrAlreadyLinked 对端已存在非终态链路
	ErrAlreadyLinked = errors.New("peer already linked")

	// ErrAlreadyAdvertising 名称已在通告（按成功处理）
	ErrAlreadyAdvertising = errors.New("name already advertised")

	// ErrAlreadyFinding 前缀已在查找（按成功处理）
	ErrAlreadyFinding = errors.New("prefix already being found")

	// ErrOsOperationFailed 操作系统原语同步拒绝
	ErrOsOperationFailed = errors.New("os p2p operation failed")

	// ErrChannelDown 原生通道断开
	ErrChannelDown = errors.New("native channel down")

	// ErrNotInitialized 代理未运行
	ErrNotInitialized = errors.New("broker not initialized")

	// ErrInvalidArgument 参数无效
	ErrInvalidArgument = errors.New("invalid argument")
)

// ============================================================================
//                              异步失败原因
// ============================================================================

var (
	// ErrFormationTimeout 组形成超时
	ErrFormationTimeout = errors.New("group formation timed out")

	// ErrFormationFailed 组形成失败
	ErrFormationFailed = errors.New("group formation failed")

	// ErrP2PDisabled P2P 已禁用
	ErrP2PDisabled = errors.New("wifi p2p disabled")
)

// ============================================================================
//                              状态码
// ============================================================================

// Status RPC 状态码
//
// 0 表示成功，负数表示错误。EstablishLink 成功时返回正的句柄值。
type Status int32

// 状态码定义
const (
	StatusOK                Status = 0
	StatusUnknownHandle     Status = -1
	StatusUnknownPeer       Status = -2
	StatusAlreadyLinked     Status = -3
	StatusOsOperationFailed Status = -4
	StatusChannelDown       Status = -5
	StatusNotInitialized    Status = -6
	StatusInvalidArgument   Status = -7
	StatusFormationTimeout  Status = -8
	StatusFormationFailed   Status = -9
	StatusP2PDisabled       Status = -10
)

// statusTable 错误到状态码的映射，按顺序匹配
var statusTable = []struct {
	err    error
	status Status
}{
	{ErrAlreadyAdvertising, StatusOK},
	{ErrAlreadyFinding, StatusOK},
	{ErrUnknownHandle, StatusUnknownHandle},
	{ErrUnknownPeer, StatusUnknownPeer},
	{ErrAlreadyLinked, StatusAlreadyLinked},
	{ErrOsOperationFailed, StatusOsOperationFailed},
	{ErrChannelDown, StatusChannelDown},
	{ErrNotInitialized, StatusNotInitialized},
	{ErrInvalidArgument, StatusInvalidArgument},
	{ErrFormationTimeout, StatusFormationTimeout},
	{ErrFormationFailed, StatusFormationFailed},
	{ErrP2PDisabled, StatusP2PDisabled},
}

// StatusOf 将错误映射为 RPC 状态码
//
// nil 与"已在通告/已在查找"映射为 StatusOK；上下文取消视为代理不可用；
// 未识别的错误归为 StatusOsOperationFailed。
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return StatusNotInitialized
	}
	return StatusOsOperationFailed
}

// Err 返回状态码对应的错误，StatusOK 返回 nil
func (s Status) Err() error {
	for _, e := range statusTable {
		if e.status == s && s != StatusOK {
			return e.err
		}
	}
	return nil
}

// IsOK 是否成功
func (s Status) IsOK() bool {
	return s >= 0
}

// String 返回状态码名称
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusUnknownHandle:
		return "UnknownHandle"
	case StatusUnknownPeer:
		return "UnknownPeer"
	case StatusAlreadyLinked:
		return "AlreadyLinked"
	case StatusOsOperationFailed:
		return "OsOperationFailed"
	case StatusChannelDown:
		return "ChannelDown"
	case StatusNotInitialized:
		return "NotInitialized"
	case StatusInvalidArgument:
		return "InvalidArgument"
	case StatusFormationTimeout:
		return "FormationTimeout"
	case StatusFormationFailed:
		return "FormationFailed"
	case StatusP2PDisabled:
		return "P2PDisabled"
	default:
		return "Status(" + LinkHandle(s).String() + ")"
	}
}
