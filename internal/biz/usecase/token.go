package usecase

import (
	"context"
	"fmt"

	"wechat-gpt-bridge/internal/biz/repo"
)

// TokenUsecase refreshes the process-wide access token. Readers only ever
// see the cache; the network fetch happens here, driven by the scheduler.
type TokenUsecase struct {
	cache   repo.TokenCache
	fetcher repo.TokenFetcher
}

// NewTokenUsecase creates a new token usecase.
func NewTokenUsecase(cache repo.TokenCache, fetcher repo.TokenFetcher) *TokenUsecase {
	return &TokenUsecase{cache: cache, fetcher: fetcher}
}

// Refresh fetches a fresh access token and publishes it to the cache.
func (uc *TokenUsecase) Refresh(ctx context.Context) error {
	token, err := uc.fetcher.FetchToken(ctx)
	if err != nil {
		return fmt.Errorf("fetch access token: %w", err)
	}
	uc.cache.Set(token)
	fmt.Println("[Token] Access token refreshed")
	return nil
}
