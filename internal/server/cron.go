package server

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"wechat-gpt-bridge/internal/biz/usecase"
)

const refreshTimeout = 30 * time.Second

// TokenScheduler refreshes the platform access token on a fixed schedule.
// The token expires after roughly two hours, so the default spec refreshes
// well under that; a failed refresh leaves the previous token cached.
type TokenScheduler struct {
	cron    *cron.Cron
	tokenUC *usecase.TokenUsecase
	spec    string
}

// NewTokenScheduler creates a new token scheduler.
func NewTokenScheduler(tokenUC *usecase.TokenUsecase, spec string) *TokenScheduler {
	return &TokenScheduler{
		cron:    cron.New(),
		tokenUC: tokenUC,
		spec:    spec,
	}
}

// Start performs an initial refresh, then schedules the periodic one.
func (s *TokenScheduler) Start() error {
	s.refresh()

	if _, err := s.cron.AddFunc(s.spec, s.refresh); err != nil {
		return fmt.Errorf("schedule token refresh: %w", err)
	}
	s.cron.Start()
	fmt.Printf("[Scheduler] Token refresh scheduled (%s)\n", s.spec)
	return nil
}

// Stop stops the scheduler.
func (s *TokenScheduler) Stop() {
	s.cron.Stop()
}

func (s *TokenScheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if err := s.tokenUC.Refresh(ctx); err != nil {
		fmt.Printf("[Scheduler] Token refresh failed: %v\n", err)
	}
}
