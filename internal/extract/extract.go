// Package extract 从模型的自由文本回复中提取 JSON 结构。
//
// 模型经常在 JSON 前后附带说明文字或 markdown 代码块，Decode 依次尝试：
// 去掉代码块后整体解析，然后从每个 '{' 或 '[' 位置开始解析第一个完整的 JSON 值。
// 全部失败时返回 Raw 结果，调用方据此走各自的兜底逻辑，不会 panic 也不会返回 error。
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrNoJSON 文本中找不到可解析为目标类型的 JSON
var ErrNoJSON = errors.New("extract: no matching json value")

// Kind 区分结构化结果与原始文本
type Kind int

const (
	Raw Kind = iota
	Structured
)

func (k Kind) String() string {
	if k == Structured {
		return "structured"
	}
	return "raw"
}

// Result 提取结果。Kind 为 Structured 时 Value 有效，Raw 始终保存原始回复
type Result[T any] struct {
	Kind  Kind
	Value T
	Raw   string
	Err   error
}

// OK 是否提取成功
func (r Result[T]) OK() bool { return r.Kind == Structured }

// Or 成功时返回 Value，否则返回 fallback
func (r Result[T]) Or(fallback T) T {
	if r.OK() {
		return r.Value
	}
	return fallback
}

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\n(.*?)\n?```")

// Decoder 解析为 T，可选地用 JSON Schema 校验
type Decoder[T any] struct {
	schema *jsonschema.Resolved
}

// NewDecoder 创建 Decoder。validate 为 true 时根据 T 的结构推导 schema，
// 只有通过校验的候选值才会被接受
func NewDecoder[T any](validate bool) (*Decoder[T], error) {
	d := &Decoder[T]{}
	if !validate {
		return d, nil
	}
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	d.schema = resolved
	return d, nil
}

// Decode 使用不带校验的 Decoder 解析 text
func Decode[T any](text string) Result[T] {
	return (&Decoder[T]{}).Decode(text)
}

// Decode 从 text 中提取第一个能解析为 T 的 JSON 值
func (d *Decoder[T]) Decode(text string) Result[T] {
	res := Result[T]{Kind: Raw, Raw: text, Err: ErrNoJSON}

	body := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(body); len(m) == 2 {
		body = strings.TrimSpace(m[1])
	}
	if v, err := d.accept([]byte(body)); err == nil {
		res.Kind, res.Value, res.Err = Structured, v, nil
		return res
	}

	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		var candidate json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&candidate); err != nil {
			continue
		}
		v, err := d.accept(candidate)
		if err != nil {
			res.Err = fmt.Errorf("%w: %v", ErrNoJSON, err)
			continue
		}
		res.Kind, res.Value, res.Err = Structured, v, nil
		return res
	}
	return res
}

func (d *Decoder[T]) accept(data []byte) (T, error) {
	var zero T
	if !json.Valid(data) {
		return zero, errors.New("invalid json")
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, err
	}
	if d.schema != nil {
		var instance any
		if err := json.Unmarshal(data, &instance); err != nil {
			return zero, err
		}
		if err := d.schema.Validate(instance); err != nil {
			return zero, fmt.Errorf("schema: %w", err)
		}
	}
	return v, nil
}
