package insight

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is the one hard failure: the model returned nothing at
// all. Any non-empty output, structured or not, yields a usable response.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Provider produces one completion for a system/user prompt pair.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewProviderFunc is the type for the provider factory function.
type NewProviderFunc func(apiKey, model string) (Provider, error)

// NewProvider creates the LLM provider used for insight queries.
var NewProvider NewProviderFunc = func(apiKey, model string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required for OpenAI")
	}
	return &OpenAIProvider{client: openai.NewClient(apiKey), model: model}, nil
}

// OpenAIProvider implements Provider over the OpenAI chat completion API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("error creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}
