package data

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wechat-gpt-bridge/internal/infra/wechat"
)

type staticToken string

func (s staticToken) Token() (string, bool) { return string(s), s != "" }

// sendRecorder simulates the platform custom-send endpoint with a size
// ceiling measured in runes.
type sendRecorder struct {
	mu        sync.Mutex
	threshold int
	contents  []string
	typing    int
}

func (s *sendRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/message/custom/typing"):
			s.mu.Lock()
			s.typing++
			s.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]any{"errcode": 0})
		case strings.HasPrefix(r.URL.Path, "/message/custom/send"):
			var body struct {
				Text struct {
					Content string `json:"content"`
				} `json:"text"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if len([]rune(body.Text.Content)) > s.threshold {
				json.NewEncoder(w).Encode(map[string]any{"errcode": 45002, "errmsg": "content too large"})
				return
			}
			s.mu.Lock()
			s.contents = append(s.contents, body.Text.Content)
			s.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]any{"errcode": 0})
		default:
			json.NewEncoder(w).Encode(map[string]any{"errcode": 0})
		}
	}
}

func (s *sendRecorder) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.contents...)
}

func newTestPlatform(t *testing.T, threshold int) (*platformRepo, *sendRecorder) {
	t.Helper()
	recorder := &sendRecorder{threshold: threshold}
	srv := httptest.NewServer(recorder.handler())
	t.Cleanup(srv.Close)

	cli := wechat.NewClient("app-id", "secret")
	cli.SetBaseURL(srv.URL)
	return &platformRepo{cli: cli, tokens: staticToken("tok")}, recorder
}

func TestSendTextWithinLimit(t *testing.T) {
	platform, recorder := newTestPlatform(t, 600)

	err := platform.SendText(context.Background(), "user-1", "你好")
	require.NoError(t, err)
	assert.Equal(t, []string{"你好"}, recorder.sent())
}

func TestSendTextChunksOversizeContent(t *testing.T) {
	platform, recorder := newTestPlatform(t, 600)

	content := strings.Repeat("长", 1200)
	err := platform.SendText(context.Background(), "user-1", content)
	require.NoError(t, err)

	chunks := recorder.sent()
	// 1200 runes halve to 600, capped at 500: chunks of 500/500/200.
	require.Len(t, chunks, 3)
	assert.Len(t, []rune(chunks[0]), 500)
	assert.Len(t, []rune(chunks[1]), 500)
	assert.Len(t, []rune(chunks[2]), 200)
	assert.Equal(t, content, strings.Join(chunks, ""))
}

func TestSendTextRecursesUntilChunksFit(t *testing.T) {
	platform, recorder := newTestPlatform(t, 300)

	content := strings.Repeat("字", 1000)
	err := platform.SendText(context.Background(), "user-1", content)
	require.NoError(t, err)

	chunks := recorder.sent()
	for i, chunk := range chunks {
		assert.LessOrEqualf(t, len([]rune(chunk)), 300, "chunk %d over the ceiling", i)
	}
	assert.Equal(t, content, strings.Join(chunks, ""))
}

func TestWatchdogFiresAfterDelay(t *testing.T) {
	platform, recorder := newTestPlatform(t, 600)

	platform.Watchdog("user-1", "请稍等", 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, []string{"请稍等"}, recorder.sent())
}

func TestWatchdogCancelSuppressesNotice(t *testing.T) {
	platform, recorder := newTestPlatform(t, 600)

	cancel := platform.Watchdog("user-1", "请稍等", 50*time.Millisecond)
	cancel()
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, recorder.sent())
}

func TestStartTypingStopsWithContext(t *testing.T) {
	platform, recorder := newTestPlatform(t, 600)

	ctx, cancel := context.WithCancel(context.Background())
	platform.StartTyping(ctx, "user-1")
	time.Sleep(50 * time.Millisecond)
	cancel()

	recorder.mu.Lock()
	fired := recorder.typing
	recorder.mu.Unlock()
	assert.Equal(t, 1, fired)
}
