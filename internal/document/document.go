// Package document 读取上传的症状文档
package document

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupported 无法直接提取文本的文档类型（PDF、图片等）
var ErrUnsupported = errors.New("document: unsupported content type")

// DefaultMaxSize 读取上限
const DefaultMaxSize = 5 << 20

// Document 提取结果
type Document struct {
	Path     string
	MIME     string
	Text     string
	Size     int
}

type Extractor struct {
	MaxSize int64
}

func NewExtractor() *Extractor {
	return &Extractor{MaxSize: DefaultMaxSize}
}

// Extract 按内容识别类型，只接受 text/* 以及 JSON/XML 一类的文本格式
func (e *Extractor) Extract(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat document %s: %w", path, err)
	}
	if e.MaxSize > 0 && info.Size() > e.MaxSize {
		return nil, fmt.Errorf("document %s is %d bytes, limit %d", path, info.Size(), e.MaxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	return e.ExtractBytes(path, data)
}

// ExtractBytes 同 Extract，内容已在内存中
func (e *Extractor) ExtractBytes(name string, data []byte) (*Document, error) {
	mtype := mimetype.Detect(data)
	if !isText(mtype) || !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupported, mtype.String(), name)
	}
	return &Document{
		Path: name,
		MIME: mtype.String(),
		Text: strings.TrimSpace(string(data)),
		Size: len(data),
	}, nil
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// Combine 将文档文本附加到症状描述后
func Combine(symptoms, extracted string) string {
	extracted = strings.TrimSpace(extracted)
	if extracted == "" {
		return symptoms
	}
	if strings.TrimSpace(symptoms) == "" {
		return extracted
	}
	return symptoms + "\n\nExtracted from file:\n" + extracted
}
