package repo

import (
	"context"

	"wechat-gpt-bridge/internal/biz/domain"
)

// AIRepo performs outbound calls to the AI provider.
type AIRepo interface {
	// ChatCompletion replays turns to the chat endpoint and returns the
	// assistant's text. Provider failures are not retried locally.
	ChatCompletion(ctx context.Context, turns []domain.ChatTurn) (string, error)

	// GenerateImage calls the image endpoint. A provider-reported error is
	// returned as providerErr so the caller can relay it to the user as a
	// system message instead of failing the whole turn.
	GenerateImage(ctx context.Context, prompt string) (url, providerErr string, err error)
}
