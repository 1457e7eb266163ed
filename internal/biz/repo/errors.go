package repo

import "fmt"

// UpstreamError reports a failure returned by the platform or the AI
// provider: a non-success status or a malformed body. It is surfaced to
// the user as an apology or provider text, never fatal to the process.
type UpstreamError struct {
	Service string // "wechat" or "openai"
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: errcode %d: %s", e.Service, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}
