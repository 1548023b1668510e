// Package bridge 实现与原生消息总线守护进程之间的 websocket 通道
//
// 通道上传输 JSON 消息（Message）。守护进程发来 RPC 请求，
// 本端按方法名分发给 interfaces.BridgeHandler 并回写响应；
// 本端发出的信号是不需要响应的单向消息。
//
// 连接建立后本端首先发送 Hello，携带本次会话的 uuid。
//
// 读或写失败即视为通道断开：通过 BridgeHandler.OnChannelDown 报告一次，
// 此后 Send 返回 types.ErrChannelDown。
package bridge
