// Package legacyscan 消费一次性 Wi-Fi 扫描结果
//
// 记录最近一次扫描的时间，逐条判断结果是否为当前关联的接入点，
// 并回答“是否已经获得过扫描结果”。零条结果的扫描同样有效。
//
// 关联判断：BSSID 相同即为关联；当前 BSSID 未知时退化为 SSID 相同。
package legacyscan
