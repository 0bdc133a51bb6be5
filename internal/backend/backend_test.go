package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusRequestTimeout, true},
		{http.StatusConflict, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
		{http.StatusUnprocessableEntity, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, retryableStatus(tt.status))
		})
	}
}

func TestTransportError(t *testing.T) {
	t.Run("network failure is retryable", func(t *testing.T) {
		err := transportError("anthropic", context.Background(), errors.New("connection reset"))

		perr, ok := AsProviderError(err)
		require.True(t, ok)
		assert.True(t, perr.Retryable)
		assert.Equal(t, "anthropic", perr.Provider)
	})

	t.Run("caller cancellation is not retryable", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := transportError("openai", ctx, ctx.Err())

		perr, ok := AsProviderError(err)
		require.True(t, ok)
		assert.False(t, perr.Retryable)
	})
}

func TestProviderError(t *testing.T) {
	underlying := errors.New("boom")
	perr := &ProviderError{
		Provider:   "anthropic",
		StatusCode: 429,
		Retryable:  true,
		Detail:     "rate limited",
		Err:        underlying,
	}

	assert.Contains(t, perr.Error(), "status 429")
	assert.Contains(t, perr.Error(), "retryable=true")
	assert.True(t, errors.Is(perr, underlying))

	wrapped := fmt.Errorf("generate: %w", perr)
	got, ok := AsProviderError(wrapped)
	require.True(t, ok)
	assert.Equal(t, perr, got)

	_, ok = AsProviderError(errors.New("plain"))
	assert.False(t, ok)
}

func TestScriptedGeneratorScript(t *testing.T) {
	g := &ScriptedGenerator{
		Script: []Reply{
			{Response: "first"},
			{Err: &ProviderError{Provider: "scripted", Retryable: true, Detail: "hiccup"}},
			{Response: "third"},
		},
	}
	ctx := context.Background()

	resp, err := g.Generate(ctx, Request{Instruction: "a"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp)

	_, err = g.Generate(ctx, Request{Instruction: "b"})
	require.Error(t, err)

	resp, err = g.Generate(ctx, Request{Instruction: "c"})
	require.NoError(t, err)
	assert.Equal(t, "third", resp)

	// Exhausted scripts fail non-retryably so runaway loops surface fast.
	_, err = g.Generate(ctx, Request{Instruction: "d"})
	perr, ok := AsProviderError(err)
	require.True(t, ok)
	assert.False(t, perr.Retryable)

	reqs := g.Requests()
	require.Len(t, reqs, 4)
	assert.Equal(t, "a", reqs[0].Instruction)
	assert.Equal(t, "d", reqs[3].Instruction)
}

func TestScriptedGeneratorRespond(t *testing.T) {
	g := &ScriptedGenerator{
		Respond: func(req Request) (string, error) {
			return "echo: " + req.Instruction, nil
		},
	}

	resp, err := g.Generate(context.Background(), Request{Instruction: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", resp)
}
