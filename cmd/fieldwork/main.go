package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	fwhttp "github.com/fieldwork-ai/fieldwork/internal/adapter/http"
	fwnats "github.com/fieldwork-ai/fieldwork/internal/adapter/nats"
	fwotel "github.com/fieldwork-ai/fieldwork/internal/adapter/otel"
	"github.com/fieldwork-ai/fieldwork/internal/adapter/postgres"
	"github.com/fieldwork-ai/fieldwork/internal/adapter/ristretto"
	"github.com/fieldwork-ai/fieldwork/internal/adapter/ws"
	"github.com/fieldwork-ai/fieldwork/internal/config"
	"github.com/fieldwork-ai/fieldwork/internal/dashboard"
	"github.com/fieldwork-ai/fieldwork/internal/domain/cost"
	"github.com/fieldwork-ai/fieldwork/internal/engine"
	"github.com/fieldwork-ai/fieldwork/internal/gate"
	"github.com/fieldwork-ai/fieldwork/internal/ledger"
	"github.com/fieldwork-ai/fieldwork/internal/llm"
	"github.com/fieldwork-ai/fieldwork/internal/logger"
	"github.com/fieldwork-ai/fieldwork/internal/middleware"
	"github.com/fieldwork-ai/fieldwork/internal/resilience"
	"github.com/fieldwork-ai/fieldwork/internal/simclock"
	"github.com/fieldwork-ai/fieldwork/internal/team"
)

func main() {
	autoApprove := flag.Bool("auto-approve", false, "sign off review artifacts without prompting")
	approver := flag.String("approver", "Lead Reviewer", "name recorded on approvals")
	serveOnly := flag.Bool("serve-only", false, "start the dashboard without running the engagement")
	flag.Parse()

	if err := run(*autoApprove, *approver, *serveOnly); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(autoApprove bool, approver string, serveOnly bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	var metrics *fwotel.Metrics
	if cfg.Telemetry.Enabled {
		shutdown, err := fwotel.Setup(ctx, cfg.Logging.Service, cfg.Telemetry.Endpoint)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Warn("otel shutdown", "error", err)
			}
		}()
		if metrics, err = fwotel.NewMetrics(); err != nil {
			return fmt.Errorf("otel metrics: %w", err)
		}
	}

	// --- Model gateway ---
	client, err := newProviderClient(cfg.LLM)
	if err != nil {
		return err
	}

	hub := ws.NewHub()

	var gwOpts []llm.GatewayOption
	gwOpts = append(gwOpts, llm.WithDefaultPrice(llm.Price{
		In:  cfg.LLM.DefaultPriceIn,
		Out: cfg.LLM.DefaultPriceOut,
	}))
	gwOpts = append(gwOpts, llm.WithSpendObserver(func(e cost.Entry) {
		hub.BroadcastEvent(ctx, ws.EventCost, ws.CostEvent{
			Agent:     e.Agent,
			Model:     e.Model,
			CostUSD:   e.CostUSD,
			Timestamp: e.Timestamp,
		})
		if metrics != nil {
			attrs := metric.WithAttributes(attribute.String("llm.model", e.Model))
			metrics.ModelCalls.Add(ctx, 1, attrs)
			metrics.ModelCost.Record(ctx, e.CostUSD, attrs)
		}
	}))
	if cfg.Cache.Enabled {
		respCache, err := ristretto.New(cfg.Cache.MaxSizeMB * 1024 * 1024)
		if err != nil {
			return fmt.Errorf("response cache: %w", err)
		}
		defer respCache.Close()
		gwOpts = append(gwOpts, llm.WithCache(respCache, cfg.Cache.TTL))
	}

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	gateway := llm.NewGateway(client, cfg.LLM.CallsPerMinute, breaker, log, gwOpts...)

	// --- Simulated clock ---
	clock, err := simclock.New(time.Now(), cfg.Clock.CompressionRatio, nil)
	if err != nil {
		return fmt.Errorf("simclock: %w", err)
	}

	// --- Approval gate and event sinks ---
	reviewGate := gate.New(log, clock.Now)

	sinks := engine.MultiSink{reviewGate, hub}
	if metrics != nil {
		sinks = append(sinks, fwotel.NewMetricsSink(metrics))
	}

	if cfg.NATS.URL != "" {
		queue, err := fwnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
		natsSink := engine.NewAsyncSink(fwnats.NewSink(queue, log), 256)
		defer natsSink.Close()
		sinks = append(sinks, natsSink)
		log.Info("nats connected", "url", cfg.NATS.URL)
	}

	if cfg.Postgres.DSN != "" {
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		trailSink := engine.NewAsyncSink(postgres.NewSink(postgres.NewTrailStore(pool), log), 256)
		defer trailSink.Close()
		sinks = append(sinks, trailSink)
		version, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("migration version: %w", err)
		}
		log.Info("trail archive connected", "schema_version", version)
	}

	// --- Team ---
	store := ledger.NewStore(cfg.Workspace.TasksDir, clock.Now)
	auditTeam := team.NewTeam(log)

	factory := team.NewFactory(gateway, store, cfg.Workspace, cfg.Engine,
		reviewGate, sinks, auditTeam, clock.Now, log)
	if err := factory.BuildTeam(auditTeam, team.Builtin()); err != nil {
		return fmt.Errorf("build team: %w", err)
	}

	// --- Dashboard ---
	state := dashboard.New(auditTeam, gateway, reviewGate, store, time.Now)
	handlers := fwhttp.NewHandlers(state, gateway, hub, log)

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(fwhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(fwhttp.Logger(log))
	r.Use(limiter.Handler)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Telemetry.Enabled {
		r.Use(fwotel.HTTPMiddleware("fieldwork-dashboard"))
	}
	fwhttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("dashboard listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// --- Engagement ---
	engagementDone := make(chan error, 1)
	if serveOnly {
		log.Info("serve-only mode, engagement not started")
	} else {
		eng := &engagement{
			team:        auditTeam,
			gate:        reviewGate,
			reviewer:    gate.NewReviewer(os.Stdin, os.Stdout, reviewGate, approver, log),
			hub:         hub,
			metrics:     metrics,
			state:       state,
			clock:       clock,
			approver:    approver,
			autoApprove: autoApprove,
			log:         log,
		}
		go func() {
			engagementDone <- eng.run(ctx)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case err := <-engagementDone:
		if err != nil {
			log.Error("engagement failed", "error", err)
		} else {
			log.Info("engagement complete")
		}
		if !serveOnly {
			// Keep serving the dashboard until interrupted.
			<-ctx.Done()
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("goodbye")
	return nil
}

// newProviderClient builds the configured model client.
func newProviderClient(cfg config.LLM) (llm.Client, error) {
	switch cfg.Provider {
	case "openai":
		return llm.NewOpenAIClient(cfg), nil
	case "anthropic":
		return llm.NewAnthropicClient(cfg), nil
	case "scripted":
		return llm.NewScriptedClient(cfg.Model,
			`{"action": "goal_complete", "summary": "scripted run", "next_steps": "none"}`), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
