package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-kratos/blades"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	reply  *blades.ModelResponse
	err    error
	got    *blades.ModelRequest
	closed bool
}

func (s *stubGenerator) Generate(_ context.Context, req *blades.ModelRequest) (*blades.ModelResponse, error) {
	s.got = req
	return s.reply, s.err
}

func (s *stubGenerator) Close() error {
	s.closed = true
	return nil
}

func TestFromProvider(t *testing.T) {
	gen := &stubGenerator{reply: &blades.ModelResponse{Message: blades.AssistantMessage("  assessment  ")}}
	inv := FromProvider(gen)

	out, err := inv.Invoke(context.Background(), "chest pain")
	require.NoError(t, err)
	assert.Equal(t, "assessment", out)
	require.Len(t, gen.got.Messages, 1)
	assert.Equal(t, "chest pain", gen.got.Messages[0].Text())

	require.NoError(t, inv.(interface{ Close() error }).Close())
	assert.True(t, gen.closed)
}

func TestFromProvider_Errors(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := FromProvider(&stubGenerator{err: boom}).Invoke(context.Background(), "x")
	assert.ErrorIs(t, err, boom)

	_, err = FromProvider(&stubGenerator{}).Invoke(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestWithTimeout(t *testing.T) {
	slow := InvokerFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	_, err := WithTimeout(slow, 10*time.Millisecond).Invoke(context.Background(), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.NotNil(t, WithTimeout(slow, 0))
	_, isWrapped := WithTimeout(slow, 0).(*timeoutInvoker)
	assert.False(t, isWrapped)
}
