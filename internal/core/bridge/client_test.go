package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-p2plink/config"
	"github.com/dep2p/go-p2plink/pkg/types"
)

// fakeDaemon 测试用守护进程端
type fakeDaemon struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newFakeDaemon(t *testing.T) *fakeDaemon {
	t.Helper()
	d := &fakeDaemon{conns: make(chan *websocket.Conn, 1)}
	upgrader := websocket.Upgrader{}
	d.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		d.conns <- conn
	}))
	t.Cleanup(d.srv.Close)
	return d
}

func (d *fakeDaemon) url() string {
	return "ws" + strings.TrimPrefix(d.srv.URL, "http")
}

func (d *fakeDaemon) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-d.conns:
		t.Cleanup(func() { _ = c.Close() })
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("等待连接超时")
		return nil
	}
}

func readMsg(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// stubHandler 记录 RPC 请求
type stubHandler struct {
	mu    sync.Mutex
	calls []string
	down  chan error
}

func newStubHandler() *stubHandler {
	return &stubHandler{down: make(chan error, 1)}
}

func (h *stubHandler) record(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, s)
}

func (h *stubHandler) FindAdvertisedName(p string) types.Status {
	h.record("find:" + p)
	return types.StatusOK
}

func (h *stubHandler) CancelFindAdvertisedName(p string) types.Status {
	h.record("cancelfind:" + p)
	return types.StatusOK
}

func (h *stubHandler) AdvertiseName(n, g string) types.Status {
	h.record("adv:" + n + "/" + g)
	return types.StatusOK
}

func (h *stubHandler) CancelAdvertiseName(n, g string) types.Status {
	h.record("canceladv:" + n + "/" + g)
	return types.StatusOK
}

func (h *stubHandler) EstablishLink(device string, intent int) int32 {
	h.record("establish:" + device)
	if device == "unknown" {
		return int32(types.StatusUnknownPeer)
	}
	return 7
}

func (h *stubHandler) ReleaseLink(handle int32) types.Status {
	h.record("release")
	return types.StatusOK
}

func (h *stubHandler) GetInterfaceNameFromHandle(handle int32) string {
	if handle == 7 {
		return "p2p-wlan0-0"
	}
	return ""
}

func (h *stubHandler) OnChannelDown(err error) {
	h.down <- err
}

func newClient(d *fakeDaemon) *Client {
	cfg := config.DefaultBridgeConfig()
	cfg.URL = d.url()
	return New(cfg)
}

func TestClient_HelloAndRPC(t *testing.T) {
	d := newFakeDaemon(t)
	c := newClient(d)
	h := newStubHandler()

	require.NoError(t, c.Connect(context.Background(), h))
	defer c.Close()
	srv := d.accept(t)

	hello := readMsg(t, srv)
	assert.Equal(t, MethodHello, hello.Method)
	var hp HelloParams
	require.NoError(t, json.Unmarshal(hello.Params, &hp))
	assert.Equal(t, c.Session(), hp.Session)
	assert.Equal(t, ProtocolVersion, hp.Version)

	params, _ := json.Marshal(EstablishParams{Device: "dev-42", GroupOwnerIntent: 1})
	require.NoError(t, srv.WriteJSON(Message{ID: 1, Method: MethodEstablishLink, Params: params}))
	resp := readMsg(t, srv)
	assert.True(t, resp.IsResponse)
	assert.EqualValues(t, 1, resp.ID)
	assert.JSONEq(t, "7", string(resp.Result))

	params, _ = json.Marshal(HandleParams{Handle: 7})
	require.NoError(t, srv.WriteJSON(Message{ID: 2, Method: MethodGetInterfaceNameFromHandle, Params: params}))
	resp = readMsg(t, srv)
	assert.JSONEq(t, `"p2p-wlan0-0"`, string(resp.Result))

	params, _ = json.Marshal(NameParams{NamePrefix: "org.example"})
	require.NoError(t, srv.WriteJSON(Message{ID: 3, Method: MethodFindAdvertisedName, Params: params}))
	resp = readMsg(t, srv)
	assert.JSONEq(t, "0", string(resp.Result))

	require.NoError(t, srv.WriteJSON(Message{ID: 4, Method: "Bogus"}))
	resp = readMsg(t, srv)
	assert.Contains(t, resp.Error, "unknown method")

	t.Log("✅ Hello 与 RPC 分发通过")
}

func TestClient_SendSignal(t *testing.T) {
	d := newFakeDaemon(t)
	c := newClient(d)

	require.NoError(t, c.Connect(context.Background(), newStubHandler()))
	defer c.Close()
	srv := d.accept(t)
	readMsg(t, srv)

	require.NoError(t, c.Send(context.Background(), types.Signal{
		Kind:          types.SignalLinkEstablished,
		Handle:        7,
		InterfaceName: "p2p-wlan0-0",
	}))

	msg := readMsg(t, srv)
	assert.Equal(t, "OnLinkEstablished", msg.Method)
	assert.False(t, msg.IsResponse)
	var sp SignalParams
	require.NoError(t, json.Unmarshal(msg.Params, &sp))
	assert.EqualValues(t, 7, sp.Handle)
	assert.Equal(t, "p2p-wlan0-0", sp.InterfaceName)
}

// TestClient_ChannelDown 对端关闭后报告一次通道断开
func TestClient_ChannelDown(t *testing.T) {
	d := newFakeDaemon(t)
	c := newClient(d)
	h := newStubHandler()

	require.NoError(t, c.Connect(context.Background(), h))
	srv := d.accept(t)
	readMsg(t, srv)
	require.NoError(t, srv.Close())

	select {
	case err := <-h.down:
		assert.ErrorIs(t, err, types.ErrChannelDown)
	case <-time.After(2 * time.Second):
		t.Fatal("未报告通道断开")
	}

	err := c.Send(context.Background(), types.Signal{Kind: types.SignalLinkLost, Handle: 1})
	assert.ErrorIs(t, err, types.ErrChannelDown)
	assert.Equal(t, types.StatusChannelDown, types.StatusOf(err))
}

func TestClient_CloseDoesNotReportDown(t *testing.T) {
	d := newFakeDaemon(t)
	c := newClient(d)
	h := newStubHandler()

	require.NoError(t, c.Connect(context.Background(), h))
	d.accept(t)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case <-h.down:
		t.Fatal("主动关闭不应报告通道断开")
	case <-time.After(100 * time.Millisecond):
	}
	assert.ErrorIs(t, c.Connect(context.Background(), h), ErrAlreadyConnected)
}

func TestClient_DialFailure(t *testing.T) {
	cfg := config.DefaultBridgeConfig()
	cfg.URL = "ws://127.0.0.1:1/p2plink"
	c := New(cfg)

	err := c.Connect(context.Background(), newStubHandler())
	assert.ErrorIs(t, err, types.ErrChannelDown)
	assert.ErrorIs(t, c.Send(context.Background(), types.Signal{}), types.ErrChannelDown)
}
