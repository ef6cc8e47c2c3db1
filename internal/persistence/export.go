package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/medtriage/store"
)

// DefaultExportDir 未指定路径时的输出目录
const DefaultExportDir = "reports"

// ExportReport 将报告写成 Markdown，返回实际写入的路径
func ExportReport(r *store.Report, path string) (string, error) {
	content, err := EncodeMarkdownV1(r, "")
	if err != nil {
		return "", err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join(DefaultExportDir, fmt.Sprintf("report-%d.md", r.ID))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ImportReport 读取 ExportReport 写出的文件
func ImportReport(path string) (*store.Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := DecodeMarkdownV1(b)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return r, nil
}
