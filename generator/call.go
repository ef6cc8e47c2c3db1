package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"

	"github.com/medtriage/internal/consts"
	"github.com/medtriage/internal/extract"
	"github.com/medtriage/internal/llm"
)

var errNoModel = errors.New("generator: model not configured")

// structuredCall 渲染 prompt、调用模型并提取 T，{{.Schema}} 自动填入示例 JSON
type structuredCall[T any] struct {
	model   llm.Invoker
	prompt  *template.Template
	decoder *extract.Decoder[T]
	schema  string
}

func newStructuredCall[T any](name, text string, model llm.Invoker, example T) (*structuredCall[T], error) {
	tmpl, err := consts.Parse(name, text)
	if err != nil {
		return nil, err
	}
	shape, err := json.MarshalIndent(example, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("render %s example: %w", name, err)
	}
	decoder, err := extract.NewDecoder[T](false)
	if err != nil {
		return nil, err
	}
	return &structuredCall[T]{model: model, prompt: tmpl, decoder: decoder, schema: string(shape)}, nil
}

// run 不返回 error，失败时 Kind 为 Raw
func (c *structuredCall[T]) run(ctx context.Context, data map[string]any) (res extract.Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = extract.Result[T]{Kind: extract.Raw, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	if c.model == nil {
		return extract.Result[T]{Kind: extract.Raw, Err: errNoModel}
	}
	data["Schema"] = c.schema
	prompt, err := consts.Render(c.prompt, data)
	if err != nil {
		return extract.Result[T]{Kind: extract.Raw, Err: err}
	}
	text, err := c.model.Invoke(ctx, prompt)
	if err != nil {
		return extract.Result[T]{Kind: extract.Raw, Err: err}
	}
	return c.decoder.Decode(text)
}

// invokeText 纯文本调用
func invokeText(ctx context.Context, model llm.Invoker, tmpl *template.Template, data any) (string, error) {
	if model == nil {
		return "", errNoModel
	}
	prompt, err := consts.Render(tmpl, data)
	if err != nil {
		return "", err
	}
	text, err := model.Invoke(ctx, prompt)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}
