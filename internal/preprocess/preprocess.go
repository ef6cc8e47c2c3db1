// Package preprocess 在分诊前清理症状文本并脱敏个人信息
package preprocess

import (
	"regexp"
	"strings"
)

var (
	whitespace = regexp.MustCompile(`\s+`)

	// SSN 先于电话号码替换，否则会被电话规则部分命中
	redactions = []struct {
		pattern *regexp.Regexp
		label   string
	}{
		{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL]"},
		{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN]"},
		{regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`), "[PHONE]"},
	}
)

// Clean 去掉首尾空白并合并连续空白
func Clean(text string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(text), " ")
}

// Redact 替换邮箱、SSN 和电话号码
func Redact(text string) string {
	for _, r := range redactions {
		text = r.pattern.ReplaceAllString(text, r.label)
	}
	return text
}

// Process Clean + Redact
func Process(text string) string {
	if text == "" {
		return ""
	}
	return Redact(Clean(text))
}
