package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lunchcrew/lunchbuddy-bot/internal/bot"
	"github.com/lunchcrew/lunchbuddy-bot/internal/clock"
	"github.com/lunchcrew/lunchbuddy-bot/internal/database"
	"github.com/lunchcrew/lunchbuddy-bot/internal/dispatch"
	"github.com/lunchcrew/lunchbuddy-bot/internal/health"
	"github.com/lunchcrew/lunchbuddy-bot/internal/idempotency"
	"github.com/lunchcrew/lunchbuddy-bot/internal/lifecycle"
	"github.com/lunchcrew/lunchbuddy-bot/internal/middleware"
	"github.com/lunchcrew/lunchbuddy-bot/internal/ratelimit"
	"github.com/lunchcrew/lunchbuddy-bot/internal/reconcile"
	"github.com/lunchcrew/lunchbuddy-bot/internal/repository"
	"github.com/lunchcrew/lunchbuddy-bot/internal/session"
	"github.com/lunchcrew/lunchbuddy-bot/internal/state"
	"github.com/lunchcrew/lunchbuddy-bot/internal/submission"
	"github.com/lunchcrew/lunchbuddy-bot/internal/user"
	"github.com/lunchcrew/lunchbuddy-bot/internal/usercache"
	"github.com/lunchcrew/lunchbuddy-bot/pkg/config"
	"github.com/lunchcrew/lunchbuddy-bot/pkg/graceful"
	"github.com/lunchcrew/lunchbuddy-bot/pkg/logger"
	appredis "github.com/lunchcrew/lunchbuddy-bot/pkg/redis"

	_ "github.com/lib/pq"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	log.Info("starting lunchbuddy bot",
		slog.String("env", cfg.AppEnv),
		slog.Any("lunch_days", cfg.Lunch.Days),
		slog.String("trigger_time", cfg.Lunch.TriggerTime),
		slog.Duration("reply_timeout", cfg.Lunch.ReplyTimeout),
	)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			TracesSampleRate: cfg.Sentry.SampleRate,
		}); err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("error closing database", slog.Any("error", cerr))
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return err
	}

	if err := database.NewMigrator(db, log).ApplyDir(ctx, "migrations"); err != nil {
		return err
	}

	redisClient, err := appredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := redisClient.Close(); cerr != nil {
			log.Error("error closing redis", slog.Any("error", cerr))
		}
	}()

	userRepo := repository.NewUserRepository(db, log)
	overrideRepo := repository.NewOverrideRepository(db, log)
	sessionRepo := repository.NewSessionRepository(db, log)
	cycleRepo := repository.NewCycleRepository(db, log)

	userCache := usercache.NewCache(redisClient.Client, 10*time.Minute)
	users := user.NewService(userRepo, userCache, log)

	fsm := state.NewStateMachine(state.NewRedisStorage(redisClient.Client, log), log, redisClient.Client)
	deduper := idempotency.NewDeduper(redisClient.Client, log)
	limiter := ratelimit.NewRedisLimiter(redisClient.Client, log)
	rateLimitMw := middleware.NewRateLimitMiddleware(limiter, cfg.Bot.RateLimit, cfg.Bot.RateLimitWindow, log)

	b, err := bot.New(*cfg, log, fsm, deduper, rateLimitMw)
	if err != nil {
		return err
	}

	agent := submission.NewWebhookAgent(cfg.Submission.AgentURL, cfg.Submission.RequestTimeout, log)
	dispatcher := dispatch.NewDispatcher(overrideRepo, cycleRepo, agent, b.OperatorNotifier(), log)
	reconciler := reconcile.NewReconciler(overrideRepo, sessionRepo, cycleRepo, dispatcher, log)
	sessions := session.NewManager(userRepo, sessionRepo, cycleRepo, b.Gateway(), reconciler, cfg.Lunch.ReplyTimeout, log)

	b.RegisterHandlers(users, sessions, dispatcher)

	trigger, err := clock.NewTrigger(cfg.Lunch, sessions, log)
	if err != nil {
		return err
	}

	// crash recovery: re-arm pending sessions, finish interrupted
	// dispatches, then fire a missed trigger if one fell in the downtime
	if err := sessions.Recover(ctx); err != nil {
		return err
	}
	if err := dispatcher.Sweep(ctx); err != nil {
		log.Error("startup sweep failed", slog.Any("error", err))
	}
	if err := trigger.CatchUp(ctx); err != nil {
		log.Error("trigger catch-up failed", slog.Any("error", err))
	}

	trigger.Start()

	config.Watch(v, log, func(newCfg *config.Config) {
		if err := trigger.Reload(newCfg.Lunch); err != nil {
			log.Error("failed to apply reloaded lunch schedule", slog.Any("error", err))
		}
	})

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		results := checker.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if !health.Healthy(results) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(results)
	})

	opsServer := graceful.NewServer(log, &http.Server{
		Addr:    cfg.Server.Port,
		Handler: logger.Middleware(mux),
	}, cfg.Server.ShutdownTimeout)

	go func() {
		if err := opsServer.ListenAndServe(ctx); err != nil {
			log.Error("ops server failed", slog.Any("error", err))
		}
	}()

	go b.Start()

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("session-manager", func(context.Context) error {
		sessions.Stop()
		return nil
	})
	shutdown.Register("trigger-clock", func(context.Context) error {
		trigger.Stop()
		return nil
	})
	shutdown.Register("telegram-bot", func(context.Context) error {
		b.Stop()
		return nil
	})

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return shutdown.Execute(shutdownCtx)
}
