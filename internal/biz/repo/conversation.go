package repo

import (
	"context"
	"time"

	"wechat-gpt-bridge/internal/biz/domain"
)

// ConversationRepo owns turn persistence. The pipeline never writes turns
// directly; it calls AppendExchange exactly once per completed AI exchange.
type ConversationRepo interface {
	// AppendExchange inserts the user prompt and the assistant reply as one
	// transaction, so readers never observe one without the other.
	AppendExchange(ctx context.Context, userID, userContent string, userAt time.Time, assistantContent string, assistantAt time.Time) error

	// RecentTurns returns at most limit turns whose timestamp falls within
	// window of now, in chronological (oldest first) order.
	RecentTurns(ctx context.Context, userID string, window time.Duration, limit int) ([]domain.ChatTurn, error)

	// GetInit returns the per-user system-prompt override, or nil when the
	// user has never run /init.
	GetInit(ctx context.Context, userID string) (*domain.UserSettings, error)

	// UpsertInit creates the settings row if absent, then updates exactly
	// one field. Field is one of "role" or "content" by construction.
	UpsertInit(ctx context.Context, userID, field, value string) error

	// SaveImage records a generated image for auditing.
	SaveImage(ctx context.Context, userID, prompt, url string) error

	Close() error
}
