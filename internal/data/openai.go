package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"wechat-gpt-bridge/internal/biz/domain"
	"wechat-gpt-bridge/internal/biz/repo"
)

const aiCallTimeout = 120 * time.Second

// aiRepo implements the AI repository using the OpenAI-compatible API.
type aiRepo struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewAIRepo creates a new AI repository. baseURL may be empty to use the
// provider default.
func NewAIRepo(apiKey, baseURL, model string, temperature float32) repo.AIRepo {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &aiRepo{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// ChatCompletion replays turns to the chat endpoint and returns the
// assistant's text. Provider failures are not retried here; the user
// resends instead.
func (r *aiRepo) ChatCompletion(ctx context.Context, turns []domain.ChatTurn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, aiCallTimeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Messages:    messages,
		Temperature: r.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", &repo.UpstreamError{Service: "openai", Message: "no response choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateImage calls the image endpoint. A provider-reported error is
// returned as text so the caller can relay it to the user instead of
// failing the whole turn.
func (r *aiRepo) GenerateImage(ctx context.Context, prompt string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, aiCallTimeout)
	defer cancel()

	resp, err := r.client.CreateImage(ctx, openai.ImageRequest{
		Prompt: prompt,
		N:      1,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", apiErr.Message, nil
		}
		return "", "", fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", "", &repo.UpstreamError{Service: "openai", Message: "no image data"}
	}
	return resp.Data[0].URL, "", nil
}
