package backend

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicGenerator implements [Generator] using the Anthropic Messages API.
//
// The system context is sent as a top-level system block and the history is
// packed as alternating user/assistant messages, which is the request shape
// the Messages API expects. Create instances with [NewAnthropicGenerator].
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
}

// NewAnthropicGenerator creates an [AnthropicGenerator] for the given model.
//
// The apiKey is used as-is; credential discovery is the caller's concern.
func NewAnthropicGenerator(apiKey, model string) *AnthropicGenerator {
	return &AnthropicGenerator{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Generate implements [Generator].
func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.History)*2+1)
	for _, ex := range req.History {
		messages = append(messages,
			anthropic.NewUserMessage(anthropic.NewTextBlock(ex.Instruction)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(ex.Response)),
		)
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Instruction)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			return "", &ProviderError{
				Provider:   "anthropic",
				StatusCode: apierr.StatusCode,
				Retryable:  retryableStatus(apierr.StatusCode),
				Detail:     apierr.Error(),
				Err:        err,
			}
		}
		return "", transportError("anthropic", ctx, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &ProviderError{
			Provider:  "anthropic",
			Retryable: false,
			Detail:    "response contained no text content",
		}
	}
	return sb.String(), nil
}
