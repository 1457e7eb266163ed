package data

import (
	"sync"

	"wechat-gpt-bridge/internal/biz/repo"
)

// tokenCache is the process-wide access-token cache. Single writer (the
// scheduled refresh), many readers; readers tolerate a stale value.
type tokenCache struct {
	mu    sync.RWMutex
	token string
	set   bool
}

// NewTokenCache creates an empty token cache.
func NewTokenCache() repo.TokenCache {
	return &tokenCache{}
}

func (c *tokenCache) Token() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.set
}

func (c *tokenCache) Set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.set = true
}

// memoSource reads the underlying source at most once. One instance is
// created per inbound-message handling session, so several outbound sends
// in one reply share a single cache read.
type memoSource struct {
	src   repo.TokenSource
	once  sync.Once
	token string
	ok    bool
}

func newMemoSource(src repo.TokenSource) *memoSource {
	return &memoSource{src: src}
}

func (m *memoSource) Token() (string, bool) {
	m.once.Do(func() {
		m.token, m.ok = m.src.Token()
	})
	return m.token, m.ok
}
