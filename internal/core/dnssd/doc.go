// Package dnssd 编解码 Wi-Fi Direct 服务发现使用的 Bonjour 记录
//
// 本地通告的每个 (name, guid) 对应一条 TXT 记录：
//
//	<murmur3(name, guid)>._p2plink._udp.local.  TXT  "txtvers=1" "n=<name>" "g=<guid>"
//
// wpa_supplicant 的 bonjour 服务由 query（DNS 名称 + 类型 + 版本）和 response（RDATA）两部分组成；
// 服务发现响应以 TLV 序列到达：
//
//	Length(2, LE) | Protocol(1) | TransactionID(1) | Status(1) | Data
//
// 其中 Data 为 query 与 response 的拼接。
package dnssd
