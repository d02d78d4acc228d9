package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldwork-ai/fieldwork/internal/domain/conversation"
	"github.com/fieldwork-ai/fieldwork/internal/domain/cost"
	"github.com/fieldwork-ai/fieldwork/internal/port/cache"
	"github.com/fieldwork-ai/fieldwork/internal/resilience"
)

const tracerName = "fieldwork"

// Gateway is the single path through which agents reach a model provider.
// Every call is rate limited, breaker guarded and priced into the ledger.
type Gateway struct {
	client   Client
	limiter  *SlidingLimiter
	breaker  *resilience.Breaker
	ledger   *Ledger
	defPrice Price
	log      *slog.Logger

	cache    cache.Cache // nil disables response caching
	cacheTTL time.Duration
	onSpend  func(cost.Entry)
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithCache enables response caching keyed by conversation digest.
// Useful for replayed and deterministic runs.
func WithCache(c cache.Cache, ttl time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.cache = c
		g.cacheTTL = ttl
	}
}

// WithDefaultPrice sets the price applied to models missing from the price
// table.
func WithDefaultPrice(p Price) GatewayOption {
	return func(g *Gateway) { g.defPrice = p }
}

// WithSpendObserver registers a callback invoked after every priced call,
// used to push live cost updates to the dashboard. The callback must not
// block.
func WithSpendObserver(fn func(cost.Entry)) GatewayOption {
	return func(g *Gateway) { g.onSpend = fn }
}

// NewGateway wraps a provider client with rate limiting, a circuit breaker
// and cost accounting.
func NewGateway(client Client, callsPerMinute int, breaker *resilience.Breaker, log *slog.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client:   client,
		limiter:  NewSlidingLimiter(callsPerMinute),
		breaker:  breaker,
		ledger:   NewLedger(),
		defPrice: pricing["gpt-5"],
		log:      log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ledger exposes the gateway's cost ledger.
func (g *Gateway) Ledger() *Ledger { return g.ledger }

// Model returns the underlying client's model name.
func (g *Gateway) Model() string { return g.client.Model() }

// BreakerState reports the provider breaker state for health endpoints.
func (g *Gateway) BreakerState() string { return g.breaker.State() }

// Chat forwards the conversation to the provider. It blocks while the
// sliding rate window is full, records spend on success, and counts the
// call against the circuit breaker on failure.
func (g *Gateway) Chat(ctx context.Context, msgs []conversation.Message) (*Response, error) {
	ctx, span := otelapi.Tracer(tracerName).Start(ctx, "llm.chat",
		trace.WithAttributes(
			attribute.String("llm.model", g.client.Model()),
			attribute.String("llm.caller", Caller(ctx)),
		),
	)
	defer span.End()

	if g.cache != nil {
		key := conversation.Hash(msgs)
		if data, ok, err := g.cache.Get(ctx, key); err == nil && ok {
			var resp Response
			if err := json.Unmarshal(data, &resp); err == nil {
				span.SetAttributes(attribute.Bool("llm.cache_hit", true))
				return &resp, nil
			}
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var resp *Response
	err := g.breaker.Execute(func() error {
		var callErr error
		resp, callErr = g.client.Chat(ctx, msgs)
		return callErr
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		g.log.Error("model call failed", "model", g.client.Model(), "error", err)
		return nil, err
	}

	price := PriceFor(resp.Model, g.defPrice)
	resp.CostUSD = Cost(price, resp.TokensIn, resp.TokensOut)

	entry := cost.Entry{
		Timestamp: resp.Timestamp,
		Agent:     Caller(ctx),
		Model:     resp.Model,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
		CostUSD:   resp.CostUSD,
	}
	g.ledger.Record(entry)
	if g.onSpend != nil {
		g.onSpend(entry)
	}

	span.SetAttributes(
		attribute.Int("llm.tokens_in", resp.TokensIn),
		attribute.Int("llm.tokens_out", resp.TokensOut),
		attribute.Float64("llm.cost_usd", resp.CostUSD),
	)

	g.log.Debug("model call completed",
		"model", resp.Model,
		"tokens_in", resp.TokensIn,
		"tokens_out", resp.TokensOut,
		"cost_usd", resp.CostUSD,
	)

	if g.cache != nil {
		if data, err := json.Marshal(resp); err == nil {
			_ = g.cache.Set(ctx, conversation.Hash(msgs), data, g.cacheTTL)
		}
	}

	return resp, nil
}
