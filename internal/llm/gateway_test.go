package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/domain/cost"
	"github.com/fieldwork-ai/fieldwork/internal/resilience"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(client Client, opts ...GatewayOption) *Gateway {
	g := NewGateway(client, 1000, resilience.NewBreaker(3, time.Second), discard(), opts...)
	return g
}

func TestGatewayRecordsCost(t *testing.T) {
	client := NewScriptedClient("gpt-4o", `{"action":"document","content":"x"}`)
	g := newTestGateway(client)

	ctx := WithCaller(context.Background(), "Esther")
	resp, err := g.Chat(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}

	wantCost := float64(resp.TokensIn)*0.005/1000 + float64(resp.TokensOut)*0.015/1000
	if math.Abs(resp.CostUSD-wantCost) > 1e-12 {
		t.Errorf("cost = %v, want %v", resp.CostUSD, wantCost)
	}

	sum := g.Ledger().Summary()
	if sum.CallCount != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", sum.CallCount)
	}
	if sum.TotalCostUSD != resp.CostUSD {
		t.Errorf("ledger cost = %v, want %v", sum.TotalCostUSD, resp.CostUSD)
	}

	byAgent := g.Ledger().ByAgent()
	if len(byAgent) != 1 || byAgent[0].Agent != "Esther" {
		t.Errorf("expected attribution to Esther, got %+v", byAgent)
	}
}

func TestGatewayUnknownModelUsesDefaultPrice(t *testing.T) {
	client := NewScriptedClient("experimental-model-x", "some response text here")
	g := newTestGateway(client, WithDefaultPrice(Price{In: 0.02, Out: 0.06}))

	resp, err := g.Chat(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.TokensIn > 0 && resp.CostUSD == 0 {
		t.Error("unknown model must not be billed at zero")
	}
	want := float64(resp.TokensIn)*0.02/1000 + float64(resp.TokensOut)*0.06/1000
	if math.Abs(resp.CostUSD-want) > 1e-12 {
		t.Errorf("cost = %v, want default-priced %v", resp.CostUSD, want)
	}
}

func TestGatewayBreakerOpensAfterFailures(t *testing.T) {
	provErr := &ProviderError{Provider: "openai", Status: 500, Err: errors.New("boom")}
	client := NewScriptedClient("gpt-4o", "ok").
		FailWith(0, provErr).FailWith(1, provErr).FailWith(2, provErr)
	g := newTestGateway(client)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := g.Chat(ctx, nil); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	_, err := g.Chat(ctx, nil)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if client.CallCount != 3 {
		t.Errorf("provider reached %d times, want 3 (breaker should short-circuit)", client.CallCount)
	}
	if g.BreakerState() != "open" {
		t.Errorf("breaker state = %s, want open", g.BreakerState())
	}

	// Failed calls must not appear in the ledger.
	if got := g.Ledger().Summary().CallCount; got != 0 {
		t.Errorf("ledger has %d entries, want 0", got)
	}
}

func TestGatewayRateLimitsBeforeProvider(t *testing.T) {
	client := NewScriptedClient("gpt-4o", "ok")
	g := newTestGateway(client)

	clock := &fakeClock{now: time.Unix(0, 0)}
	g.limiter = NewSlidingLimiter(1)
	clock.install(g.limiter)

	ctx := context.Background()
	if _, err := g.Chat(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Chat(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if len(clock.sleeps) != 1 {
		t.Fatalf("expected the second call to block, sleeps = %v", clock.sleeps)
	}
}

// memCache is a minimal cache.Cache for gateway tests.
type memCache struct {
	data map[string][]byte
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestGatewayCacheShortCircuitsProvider(t *testing.T) {
	client := NewScriptedClient("gpt-4o", "cached answer")
	g := newTestGateway(client, WithCache(&memCache{data: map[string][]byte{}}, time.Hour))

	ctx := context.Background()
	first, err := g.Chat(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.Chat(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}

	if client.CallCount != 1 {
		t.Fatalf("provider reached %d times, want 1", client.CallCount)
	}
	if first.Content != second.Content {
		t.Errorf("cached response differs: %q vs %q", first.Content, second.Content)
	}
}

func TestPricingTable(t *testing.T) {
	tests := []struct {
		model     string
		tokensIn  int
		tokensOut int
		want      float64
	}{
		{"gpt-5", 1000, 1000, 0.015 + 0.045},
		{"gpt-3.5-turbo", 2000, 500, 2*0.0005 + 0.5*0.0015},
		{"claude-3-haiku", 1000, 0, 0.00025},
		{"ollama", 5000, 5000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p := PriceFor(tt.model, Price{In: 1, Out: 1})
			got := Cost(p, tt.tokensIn, tt.tokensOut)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Cost(%s) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}

	// Unknown models fall back to the provided default, never zero.
	def := Price{In: 0.015, Out: 0.045}
	if p := PriceFor("some-new-model", def); p != def {
		t.Errorf("PriceFor(unknown) = %+v, want default %+v", p, def)
	}
}

func TestGatewayNotifiesSpendObserver(t *testing.T) {
	client := NewScriptedClient("gpt-4o", "ack")

	var seen []string
	g := newTestGateway(client, WithSpendObserver(func(e cost.Entry) {
		seen = append(seen, e.Agent)
	}))

	if _, err := g.Chat(WithCaller(context.Background(), "Chuck"), nil); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0] != "Chuck" {
		t.Errorf("observer saw %v, want [Chuck]", seen)
	}
}
