package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wechat-gpt-bridge/internal/biz/repo"
	"wechat-gpt-bridge/internal/infra/wechat"
)

const (
	// maxChunkRunes caps a resend chunk; below the cap the content is
	// halved so the chunk count stays low.
	maxChunkRunes = 500

	typingInterval = 15 * time.Second
)

// platformRepo implements the Platform repository over the WeChat client.
type platformRepo struct {
	cli    *wechat.Client
	tokens repo.TokenSource
}

// NewPlatformRepo creates a new Platform repository.
func NewPlatformRepo(cli *wechat.Client, tokens repo.TokenSource) repo.PlatformRepo {
	return &platformRepo{cli: cli, tokens: tokens}
}

// WithTokenScope returns a view whose token source is read at most once,
// for the span of one inbound-message handling session.
func (r *platformRepo) WithTokenScope() repo.PlatformRepo {
	return &platformRepo{cli: r.cli, tokens: newMemoSource(r.tokens)}
}

// token returns the cached access token. An absent token is not fatal:
// the call proceeds with an empty token and surfaces the platform error.
func (r *platformRepo) token() string {
	token, ok := r.tokens.Token()
	if !ok {
		fmt.Println("[Platform] No access token cached, proceeding with empty token")
	}
	return token
}

// SendText posts text, falling back to chunked resend when the platform
// reports the body as too large.
func (r *platformRepo) SendText(ctx context.Context, userID, content string) error {
	err := r.cli.SendText(ctx, r.token(), userID, content)
	if errors.Is(err, wechat.ErrContentTooLarge) {
		return r.sendChunked(ctx, userID, content)
	}
	return err
}

// sendChunked splits content into rune chunks of min(500, ceil(len/2)) and
// resends each in order through SendText, which recurses if a chunk is
// still too large. There is no depth floor: content the platform rejects
// at a single rune would recurse forever. In practice reply length is
// bounded by the AI provider's own output limits.
func (r *platformRepo) sendChunked(ctx context.Context, userID, content string) error {
	runes := []rune(content)
	size := (len(runes) + 1) / 2
	if size > maxChunkRunes {
		size = maxChunkRunes
	}
	if size == 0 {
		return wechat.ErrContentTooLarge
	}
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if err := r.SendText(ctx, userID, string(runes[start:end])); err != nil {
			return fmt.Errorf("send chunk at %d: %w", start, err)
		}
	}
	return nil
}

// SendImage posts a pre-uploaded image by media ID.
func (r *platformRepo) SendImage(ctx context.Context, userID, mediaID string) error {
	return r.cli.SendImage(ctx, r.token(), userID, mediaID)
}

// UploadImage fetches the image bytes and uploads them to the platform.
func (r *platformRepo) UploadImage(ctx context.Context, url string) (string, error) {
	return r.cli.UploadImage(ctx, r.token(), url)
}

// StartTyping fires the typing indicator now and every 15 seconds until
// ctx is cancelled. The lifetime is scoped to the enclosing pipeline run
// rather than left ticking on its own schedule.
func (r *platformRepo) StartTyping(ctx context.Context, userID string) {
	go func() {
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for {
			if err := r.cli.SendTyping(ctx, r.token(), userID); err != nil && ctx.Err() == nil {
				fmt.Printf("[Platform] Typing indicator for %s: %v\n", userID, err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Watchdog schedules a one-shot slow-call notice after delay. The
// returned cancel suppresses the notice on the happy path; a cancel that
// races with firing may deliver both the notice and the real reply.
func (r *platformRepo) Watchdog(userID, notice string, delay time.Duration) func() {
	timer := time.AfterFunc(delay, func() {
		if err := r.SendText(context.Background(), userID, notice); err != nil {
			fmt.Printf("[Platform] Watchdog notice for %s: %v\n", userID, err)
		}
	})
	return func() { timer.Stop() }
}
