// Package main 提供 p2plinkd 守护进程入口
//
// p2plinkd 连接原生消息总线守护进程，代理其 Wi-Fi Direct 名称发现与链路请求。
package main

import (
	"fmt"
	"os"

	"github.com/dep2p/go-p2plink/pkg/lib/log"
)

var logger = log.Logger("p2plink/cmd")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
