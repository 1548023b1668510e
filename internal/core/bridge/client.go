package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dep2p/go-p2plink/config"
	pkgif "github.com/dep2p/go-p2plink/pkg/interfaces"
	"github.com/dep2p/go-p2plink/pkg/lib/log"
	"github.com/dep2p/go-p2plink/pkg/types"
)

var logger = log.Logger("core/bridge")

// sendBuffer 发送队列长度
const sendBuffer = 100

var (
	// ErrAlreadyConnected 通道已建立
	ErrAlreadyConnected = errors.New("bridge: already connected")

	// ErrUnknownMethod 未知的 RPC 方法
	ErrUnknownMethod = errors.New("bridge: unknown method")
)

// Client websocket 原生通道
type Client struct {
	cfg    config.BridgeConfig
	dialer *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	handler pkgif.BridgeHandler
	session string
	closed  bool

	sendCh   chan *Message
	closeCh  chan struct{}
	downOnce sync.Once
}

var _ pkgif.NativeBridge = (*Client)(nil)

// New 创建通道
func New(cfg config.BridgeConfig) *Client {
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout.Duration(),
		},
		sendCh:  make(chan *Message, sendBuffer),
		closeCh: make(chan struct{}),
	}
}

// Session 返回本次连接的会话 ID
func (c *Client) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Connect 连接守护进程、发送 Hello 并启动读写循环
func (c *Client) Connect(ctx context.Context, handler pkgif.BridgeHandler) error {
	c.mu.Lock()
	if c.conn != nil || c.closed {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", types.ErrChannelDown, c.cfg.URL, err)
	}

	session := uuid.NewString()
	hello, _ := json.Marshal(HelloParams{Session: session, Version: ProtocolVersion})
	if err := c.writeNow(conn, &Message{Method: MethodHello, Params: hello}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: hello: %v", types.ErrChannelDown, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.handler = handler
	c.session = session
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	logger.Info("原生通道已连接", "url", c.cfg.URL, "session", session)
	return nil
}

// Send 将信号放入发送队列
func (c *Client) Send(ctx context.Context, sig types.Signal) error {
	msg, err := signalMessage(sig)
	if err != nil {
		return err
	}

	c.mu.Lock()
	closed := c.closed || c.conn == nil
	c.mu.Unlock()
	if closed {
		return types.ErrChannelDown
	}

	select {
	case c.sendCh <- msg:
		return nil
	case <-c.closeCh:
		return types.ErrChannelDown
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", types.ErrChannelDown, ctx.Err())
	}
}

// Close 关闭通道，不触发 OnChannelDown
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	close(c.closeCh)
	if conn == nil {
		return nil
	}

	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	err := conn.Close()
	logger.Info("原生通道已关闭", "session", c.Session())
	return err
}

// fail 读写失败：报告一次通道断开并关闭
func (c *Client) fail(err error) {
	c.mu.Lock()
	closed := c.closed
	handler := c.handler
	c.mu.Unlock()
	if closed {
		return
	}

	c.downOnce.Do(func() {
		logger.Warn("原生通道断开", "error", err)
		_ = c.Close()
		if handler != nil {
			handler.OnChannelDown(fmt.Errorf("%w: %v", types.ErrChannelDown, err))
		}
	})
}

// writeNow 立即写出一条消息
func (c *Client) writeNow(conn *websocket.Conn, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if t := c.cfg.WriteTimeout.Duration(); t > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// ============================================================================
//                              读写循环
// ============================================================================

func (c *Client) readPump() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("无法解析通道消息", "error", err)
			continue
		}
		if msg.IsResponse {
			continue
		}

		resp := c.dispatch(&msg)
		select {
		case c.sendCh <- resp:
		case <-c.closeCh:
			return
		}
	}
}

func (c *Client) writePump() {
	for {
		select {
		case msg := <-c.sendCh:
			if err := c.writeNow(c.conn, msg); err != nil {
				c.fail(err)
				return
			}
		case <-c.closeCh:
			return
		}
	}
}

// dispatch 分发一个 RPC 请求并构造响应
func (c *Client) dispatch(req *Message) *Message {
	resp := &Message{ID: req.ID, Method: req.Method, IsResponse: true}

	result, err := c.invoke(req)
	if err != nil {
		logger.Warn("RPC 请求处理失败", "method", req.Method, "error", err)
		resp.Error = err.Error()
		return resp
	}
	resp.Result, _ = json.Marshal(result)
	return resp
}

func (c *Client) invoke(req *Message) (interface{}, error) {
	h := c.handler
	switch req.Method {
	case MethodFindAdvertisedName, MethodCancelFindAdvertisedName,
		MethodAdvertiseName, MethodCancelAdvertiseName:
		var p NameParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, err
		}
		var st types.Status
		switch req.Method {
		case MethodFindAdvertisedName:
			st = h.FindAdvertisedName(p.NamePrefix)
		case MethodCancelFindAdvertisedName:
			st = h.CancelFindAdvertisedName(p.NamePrefix)
		case MethodAdvertiseName:
			st = h.AdvertiseName(p.Name, p.GUID)
		default:
			st = h.CancelAdvertiseName(p.Name, p.GUID)
		}
		return int32(st), nil

	case MethodEstablishLink:
		var p EstablishParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, err
		}
		return h.EstablishLink(p.Device, p.GroupOwnerIntent), nil

	case MethodReleaseLink:
		var p HandleParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, err
		}
		return int32(h.ReleaseLink(p.Handle)), nil

	case MethodGetInterfaceNameFromHandle:
		var p HandleParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, err
		}
		return h.GetInterfaceNameFromHandle(p.Handle), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, req.Method)
}
