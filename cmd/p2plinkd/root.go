package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd 创建根命令
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "p2plinkd",
		Short:         "Wi-Fi Direct 链路代理守护进程",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "配置文件路径（JSON）")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}
