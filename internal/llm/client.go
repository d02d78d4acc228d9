// Package llm provides the model gateway: provider clients for OpenAI and
// Anthropic, a sliding-window rate limiter, per-call cost accounting and a
// circuit breaker, behind a single Chat interface.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/domain/conversation"
)

// Response is a completed model call.
type Response struct {
	Content   string    `json:"content"`
	Model     string    `json:"model"`
	TokensIn  int       `json:"tokens_in"`
	TokensOut int       `json:"tokens_out"`
	CostUSD   float64   `json:"cost_usd"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is the provider-facing chat interface. Implementations are fixed to
// one provider and model at construction.
type Client interface {
	Chat(ctx context.Context, msgs []conversation.Message) (*Response, error)
	Model() string
}

// ProviderError wraps a transport or API failure from a model provider.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

type callerKey struct{}

// WithCaller tags the context with the agent name making the call, used for
// per-agent cost attribution in the ledger.
func WithCaller(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, callerKey{}, agent)
}

// Caller extracts the calling agent name, if any.
func Caller(ctx context.Context) string {
	name, _ := ctx.Value(callerKey{}).(string)
	return name
}
