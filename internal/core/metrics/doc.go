// Package metrics 提供链路代理的 Prometheus 指标
//
// 指标分两类：
//
//   - 信号计数：按信号类型与投递结果统计，来源是事件总线上的 types.SignalEvent
//   - 代理状态：活动链路、排队链路、查找请求、通告名称、对端、已发现名称，
//     每次抓取时从链路代理的统计快照读取
//
// 另有最近 60 秒的信号速率。
//
// # 注册表
//
// 注册表由调用方持有并跨越多次启动；Collector 在启动时注册、停止时注销，
// 因此同一个注册表可以反复挂载新的 Collector。
//
//	reg := prometheus.NewRegistry()
//	c, _ := metrics.NewCollector(metrics.DefaultConfig(), reg, broker)
//	_ = c.Start(bus)
//	defer c.Stop(ctx)
package metrics
