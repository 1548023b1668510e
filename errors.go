package p2plink

import "errors"

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// Helper 生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrClosed Helper 已关闭
	ErrClosed = errors.New("p2plink: helper closed")

	// ErrNoFramework 后端类型为 none 且未注入 P2P 框架
	ErrNoFramework = errors.New("p2plink: no p2p framework configured")

	// ────────────────────────────────────────────────────────────────────────
	// 扫描相关错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrScanUnsupported 当前后端不支持触发扫描
	ErrScanUnsupported = errors.New("p2plink: backend does not support scans")

	// ────────────────────────────────────────────────────────────────────────
	// 选项错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNilOption 选项参数为 nil
	ErrNilOption = errors.New("p2plink: nil option value")
)
