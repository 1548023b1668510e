package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	p2plink "github.com/dep2p/go-p2plink"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, p2plink.VersionInfo())
			if p2plink.GoVersion == "" {
				fmt.Fprintf(out, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			}
		},
	}
}
