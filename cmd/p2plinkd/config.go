package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-p2plink/config"
)

// ============================================================================
//                              环境变量
// ============================================================================

// envPrefix 环境变量前缀
const envPrefix = "P2PLINK_"

// 支持的环境变量（均使用 P2PLINK_ 前缀）
const (
	envBridgeURL    = "BRIDGE_URL"
	envInterface    = "INTERFACE"
	envBackend      = "BACKEND"
	envLogLevel     = "LOG_LEVEL"
	envLogFile      = "LOG_FILE"
	envMetricsAddr  = "METRICS_ADDR"
	envMetrics      = "METRICS"
	envLegacyScan   = "LEGACY_SCAN"
	envLinkTimeout  = "LINK_TIMEOUT"
	envIdleTimeout  = "IDLE_TIMEOUT"
	envAssumeEnable = "ASSUME_ENABLED"
)

// ============================================================================
//                              配置加载
// ============================================================================

// loadConfig 加载配置
//
// 配置优先级（从高到低）：命令行参数 > 环境变量 > 配置文件 > 默认值。
// 命令行参数在调用方覆盖。
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	} else {
		cfg = config.NewConfig()
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides 应用环境变量覆盖配置
func applyEnvOverrides(cfg *config.Config) error {
	if v := getenv(envBridgeURL); v != "" {
		cfg.Bridge.URL = v
	}
	if v := getenv(envInterface); v != "" {
		cfg.Backend.Interface = v
	}
	if v := getenv(envBackend); v != "" {
		cfg.Backend.Kind = v
	}
	if v := getenv(envLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv(envLogFile); v != "" {
		cfg.Log.File = v
	}
	if v := getenv(envMetricsAddr); v != "" {
		cfg.Metrics.ListenAddr = v
	}
	if v := getenv(envMetrics); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := getenv(envLegacyScan); v != "" {
		cfg.LegacyScan.Enabled = parseBool(v)
	}
	if v := getenv(envAssumeEnable); v != "" {
		cfg.Broker.AssumeEnabled = parseBool(v)
	}

	durations := []struct {
		env string
		dst *config.Duration
	}{
		{envLinkTimeout, &cfg.Broker.LinkTimeout},
		{envIdleTimeout, &cfg.Bridge.IdleTimeout},
	}
	for _, d := range durations {
		v := getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := config.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, d.env, err)
		}
		*d.dst = parsed
	}
	return nil
}

func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

// parseBool 解析布尔值字符串
func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		s = strings.ToLower(strings.TrimSpace(s))
		return s == "yes" || s == "on"
	}
	return b
}

// ============================================================================
//                              config 子命令
// ============================================================================

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "查看或验证配置",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "输出合并后的有效配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := cfg.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "验证配置文件与环境变量",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("配置无效: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "配置有效")
			return nil
		},
	})

	return cmd
}
