package repo

import "context"

// TokenSource yields the currently cached platform access token.
// Token never triggers a network fetch; staleness is tolerated.
type TokenSource interface {
	Token() (string, bool)
}

// TokenCache is the process-wide access-token cache: single writer (the
// scheduled refresh), many readers.
type TokenCache interface {
	TokenSource
	Set(token string)
}

// TokenFetcher performs the network fetch against the platform token
// endpoint. Invoked by the scheduled refresh, never by readers.
type TokenFetcher interface {
	FetchToken(ctx context.Context) (string, error)
}
