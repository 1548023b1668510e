package interfaces

// EventBus 事件总线接口
//
// 事件类型以指针形式注册，例如 bus.Subscribe(new(types.P2PBroadcast))。
type EventBus interface {
	// Subscribe 订阅指定类型的事件
	Subscribe(eventType interface{}, opts ...SubscriptionOpt) (Subscription, error)

	// Emitter 获取指定事件类型的发射器
	Emitter(eventType interface{}, opts ...EmitterOpt) (Emitter, error)
}

// Subscription 事件订阅
type Subscription interface {
	// Out 返回接收事件的通道
	Out() <-chan interface{}

	// Close 取消订阅
	Close() error
}

// Emitter 事件发射器
type Emitter interface {
	// Emit 发射事件
	Emit(event interface{}) error

	// Close 关闭发射器
	Close() error
}

// SubscriptionOpt 订阅选项函数类型
type SubscriptionOpt func(*SubscriptionSettings)

// EmitterOpt 发射器选项函数类型
type EmitterOpt func(*EmitterSettings)

// SubscriptionSettings 订阅设置
type SubscriptionSettings struct {
	// Buffer 订阅通道缓冲区大小
	Buffer int

	// Lossless 缓冲区满时阻塞发射者而不是丢弃事件
	Lossless bool
}

// EmitterSettings 发射器设置
type EmitterSettings struct {
	Stateful bool
}

// BufSize 设置订阅缓冲区大小
func BufSize(size int) SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Buffer = size
	}
}

// Lossless 设置订阅为无损模式
//
// 用于状态机输入这类不允许丢失的事件流。
func Lossless() SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Lossless = true
	}
}

// Stateful 设置发射器为有状态模式（新订阅者收到最后一个事件）
func Stateful() EmitterOpt {
	return func(s *EmitterSettings) {
		s.Stateful = true
	}
}
