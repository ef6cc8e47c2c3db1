package utils

import "time"

// Duration 支持 TOML 字符串解析的 time.Duration 包装
type Duration struct {
	time.Duration
}

// Seconds 构造 n 秒的 Duration，用于默认值
func Seconds(n int) Duration {
	return Duration{Duration: time.Duration(n) * time.Second}
}

// UnmarshalText 实现 encoding.TextUnmarshaler 接口，空字符串表示未设置
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText 实现 encoding.TextMarshaler 接口
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
