// Package interfaces 定义 p2plink 的组件接口
//
// 组件之间只通过本包中的接口协作：
//   - EventBus：进程内事件总线（操作系统广播、扫描结果、信号投递事件）
//   - P2PFramework：操作系统 Wi-Fi P2P 框架原语
//   - NativeBridge / BridgeHandler：与原生消息总线守护进程之间的通道
//   - SignalSink：链路代理向外输出信号
//   - LinkBroker：链路代理
//
// mocks 子包提供 gomock 生成的测试替身。
package interfaces

//go:generate mockgen -destination=mocks/mock_p2p.go -package=mocks github.com/dep2p/go-p2plink/pkg/interfaces P2PFramework,ScanTrigger
//go:generate mockgen -destination=mocks/mock_bridge.go -package=mocks github.com/dep2p/go-p2plink/pkg/interfaces NativeBridge
