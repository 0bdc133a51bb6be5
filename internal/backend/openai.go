package backend

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIGenerator implements [Generator] using the OpenAI chat completions
// API.
//
// The system context travels as the leading system message and the history
// as role-tagged chat messages. Create instances with [NewOpenAIGenerator].
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// NewOpenAIGenerator creates an [OpenAIGenerator] for the given model.
//
// A non-empty baseURL overrides the default API endpoint, which allows
// pointing the adapter at compatible gateways.
func NewOpenAIGenerator(apiKey, model, baseURL string) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Generate implements [Generator].
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)*2+2)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, ex := range req.History {
		msgs = append(msgs,
			openai.UserMessage(ex.Instruction),
			openai.ChatCompletionMessageParamOfAssistant(ex.Response),
		)
	}
	msgs = append(msgs, openai.UserMessage(req.Instruction))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return "", &ProviderError{
				Provider:   "openai",
				StatusCode: apierr.StatusCode,
				Retryable:  retryableStatus(apierr.StatusCode),
				Detail:     apierr.Error(),
				Err:        err,
			}
		}
		return "", transportError("openai", ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", &ProviderError{
			Provider:  "openai",
			Retryable: false,
			Detail:    "response contained no choices",
		}
	}
	return resp.Choices[0].Message.Content, nil
}
