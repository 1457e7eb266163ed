package domain

import "time"

// Roles used in conversation turns and AI chat requests.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one role/content pair replayed to the AI provider.
type ChatTurn struct {
	Role    string
	Content string
}

// ConversationTurn is one persisted message of a user's conversation log.
// The log is append-only; the recency window only filters what gets
// replayed as context, it never deletes older turns.
type ConversationTurn struct {
	UserID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

// UserSettings is the per-user system-prompt override, created lazily by
// the first /init command. Empty fields mean "use the default".
type UserSettings struct {
	UserID      string
	InitRole    string
	InitContent string
	CreatedAt   time.Time
}

// ImageRecord is a write-only audit record of one generated image.
type ImageRecord struct {
	UserID    string
	Prompt    string
	URL       string
	CreatedAt time.Time
}
