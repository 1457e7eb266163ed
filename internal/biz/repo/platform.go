package repo

import (
	"context"
	"time"
)

// PlatformRepo performs outbound calls to the messaging platform.
// Implementations own the platform's delivery constraints: chunked
// retransmission of oversized text, the periodic typing indicator, and the
// slow-call watchdog notice.
type PlatformRepo interface {
	// SendText posts text to the user. When the platform reports the
	// content-too-large error, the text is split and resent in chunks whose
	// in-order concatenation equals the original content.
	SendText(ctx context.Context, userID, content string) error

	// SendImage posts a previously uploaded image by media ID.
	SendImage(ctx context.Context, userID, mediaID string) error

	// UploadImage fetches bytes from url and uploads them to the platform,
	// returning the platform-assigned media ID.
	UploadImage(ctx context.Context, url string) (string, error)

	// StartTyping fires the typing indicator now and re-fires it
	// periodically until ctx is cancelled.
	StartTyping(ctx context.Context, userID string)

	// Watchdog schedules a one-shot slow-call notice after delay. The
	// returned cancel suppresses the notice; if cancel races with firing,
	// both the notice and the real reply may be delivered.
	Watchdog(userID, notice string, delay time.Duration) (cancel func())

	// WithTokenScope returns a view of the repository that reads the access
	// token from the cache at most once, for the span of one inbound
	// message.
	WithTokenScope() PlatformRepo
}
