package generator

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/medtriage/internal/llm"
)

var errModelDown = errors.New("model unavailable")

// scripted 按 prompt 中的关键字返回不同回复
type scripted struct {
	mu      sync.Mutex
	prompts []string
	replies map[string]string
	err     error
}

func (s *scripted) Invoke(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	for key, reply := range s.replies {
		if strings.Contains(prompt, key) {
			return reply, nil
		}
	}
	return "no idea", nil
}

func (s *scripted) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

func reply(text string) llm.Invoker {
	return llm.InvokerFunc(func(context.Context, string) (string, error) { return text, nil })
}

func failing() llm.Invoker {
	return llm.InvokerFunc(func(context.Context, string) (string, error) { return "", errModelDown })
}

type staticLabels struct {
	text string
	err  error
}

func (s staticLabels) Label(context.Context, string) (string, error) { return s.text, s.err }
