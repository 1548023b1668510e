package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Duration 配置中的时长
//
// 配置文件与环境变量使用同一套写法：
//
//	{"link_timeout": "30s"}   Go 时长字符串
//	{"link_timeout": 30}      整数秒
//	P2PLINK_LINK_TIMEOUT=30   整数秒
//
// 负值一律拒绝；0 的含义由各字段自行约定（如 idle_timeout=0 表示关闭）。
type Duration time.Duration

// errNegativeDuration 负时长
var errNegativeDuration = errors.New("duration must not be negative")

// ParseDuration 解析时长：整数按秒，其余按 Go 时长字符串
func ParseDuration(s string) (Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return secondsDuration(n)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%q: %w", s, errNegativeDuration)
	}
	return Duration(d), nil
}

func secondsDuration(n int64) (Duration, error) {
	if n < 0 {
		return 0, fmt.Errorf("%d: %w", n, errNegativeDuration)
	}
	return Duration(time.Duration(n) * time.Second), nil
}

// UnmarshalJSON 接受字符串或整数秒
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseDuration(s)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\" or whole seconds, got %s", data)
	}
	parsed, err := secondsDuration(n)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON 输出 Go 时长字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Duration 返回 time.Duration
func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }
