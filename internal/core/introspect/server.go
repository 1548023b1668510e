// Package introspect 提供本地自省 HTTP 服务
//
// 该服务运行在本地端口，提供 JSON 格式的链路代理快照和 Prometheus 指标，用于调试和监控。
//
// 端点：
//   - GET /debug/introspect         - 完整快照 (JSON)
//   - GET /debug/introspect/links   - 非终态链路
//   - GET /debug/introspect/peers   - 对端表
//   - GET /debug/introspect/names   - 已发现名称
//   - GET /metrics                  - Prometheus 指标（提供 Gatherer 时）
//   - GET /health                   - 健康检查
//   - GET /debug/pprof/*            - Go pprof 端点
package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-p2plink/pkg/lib/log"
	"github.com/dep2p/go-p2plink/pkg/types"
)

var logger = log.Logger("core/introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// snapshotTimeout 单次快照读取上限
const snapshotTimeout = 2 * time.Second

// Source 快照来源
type Source interface {
	Running() bool
	Stats(ctx context.Context) (types.BrokerStats, error)
	Links(ctx context.Context) ([]types.LinkInfo, error)
	Peers(ctx context.Context) ([]types.Peer, error)
	Discovered(ctx context.Context) ([]types.DiscoveredName, error)
}

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// Source 必需的快照来源
	Source Source

	// Gatherer 可选的指标读取端
	Gatherer prometheus.Gatherer
}

// Server 本地自省 HTTP 服务
type Server struct {
	source   Source
	gatherer prometheus.Gatherer
	addr     string

	server   *http.Server
	listener net.Listener

	running bool
	mu      sync.Mutex
}

// New 创建自省服务
func New(cfg Config) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		source:   cfg.Source,
		gatherer: cfg.Gatherer,
		addr:     addr,
	}
}

// Handler 返回服务路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/introspect", s.handleIntrospect)
	mux.HandleFunc("/debug/introspect/links", s.handleLinks)
	mux.HandleFunc("/debug/introspect/peers", s.handlePeers)
	mux.HandleFunc("/debug/introspect/names", s.handleNames)
	mux.HandleFunc("/health", s.handleHealth)

	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("自省服务异常退出", "error", err)
		}
	}()

	s.running = true
	logger.Info("自省服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭自省服务失败", "error", err)
		return err
	}

	s.running = false
	logger.Info("自省服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

// Report 完整快照
type Report struct {
	Running    bool                   `json:"running"`
	Stats      *types.BrokerStats     `json:"stats,omitempty"`
	Links      []types.LinkInfo       `json:"links,omitempty"`
	Peers      []types.Peer           `json:"peers,omitempty"`
	Discovered []types.DiscoveredName `json:"discovered,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// handleIntrospect 处理完整快照请求
//
// 代理未运行时只返回 running=false。
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := Report{Timestamp: time.Now()}
	if s.source != nil && s.source.Running() {
		ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
		defer cancel()

		report.Running = true
		if st, err := s.source.Stats(ctx); err == nil {
			report.Stats = &st
		}
		report.Links, _ = s.source.Links(ctx)
		report.Peers, _ = s.source.Peers(ctx)
		report.Discovered, _ = s.source.Discovered(ctx)
	}
	s.writeJSON(w, report)
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	serveSnapshot(s, w, r, func(ctx context.Context) (interface{}, error) {
		return s.source.Links(ctx)
	})
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	serveSnapshot(s, w, r, func(ctx context.Context) (interface{}, error) {
		return s.source.Peers(ctx)
	})
}

func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	serveSnapshot(s, w, r, func(ctx context.Context) (interface{}, error) {
		return s.source.Discovered(ctx)
	})
}

// serveSnapshot 读取单个快照，代理未运行时返回 503
func serveSnapshot(s *Server, w http.ResponseWriter, r *http.Request, fn func(context.Context) (interface{}, error)) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.source == nil || !s.source.Running() {
		http.Error(w, "Broker not running", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()

	v, err := fn(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, v)
}

// handleHealth 处理健康检查请求
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	running := s.source != nil && s.source.Running()
	health := struct {
		Status  string `json:"status"`
		Running bool   `json:"running"`
	}{Status: "ok", Running: running}
	if !running {
		health.Status = "degraded"
	}
	s.writeJSON(w, health)
}

// writeJSON 写入 JSON 响应
func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		logger.Error("编码 JSON 响应失败", "error", err)
	}
}
