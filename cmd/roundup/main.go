package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/roundup/internal/accounts"
	"github.com/richxcame/roundup/internal/bank"
	"github.com/richxcame/roundup/internal/currency"
	"github.com/richxcame/roundup/internal/roundup"
	"github.com/richxcame/roundup/pkg/config"
	"github.com/richxcame/roundup/pkg/database"
	"github.com/richxcame/roundup/pkg/eventbus"
	"github.com/richxcame/roundup/pkg/health"
	"github.com/richxcame/roundup/pkg/logger"
	"github.com/richxcame/roundup/pkg/redis"
	"github.com/richxcame/roundup/pkg/secrets"
	"github.com/richxcame/roundup/pkg/tracing"
	"github.com/richxcame/roundup/pkg/workerpool"
	"go.uber.org/zap"
)

const serviceName = "roundup"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sentryMW []gin.HandlerFunc
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     serviceName + "@" + cfg.Tracing.Version,
		}); err != nil {
			logger.Warn("Sentry disabled", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
			sentryMW = append(sentryMW, sentrygin.New(sentrygin.Options{Repanic: true}))
		}
	}

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.Tracing)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Postgres
	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(&cfg.Database); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}
	db, err := database.NewPostgresPool(ctx, &cfg.Database, cfg.Timeouts.DatabaseQueryTimeout)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// Redis
	redisClient, err := redis.NewRedisClient(&cfg.Redis, cfg.Timeouts)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.RedisAddr()))

	// Currency
	rates, err := currency.LoadRateTable(cfg.RoundUp.RatesFile)
	if err != nil {
		logger.Fatal("Failed to load exchange rates", zap.Error(err))
	}
	converter := currency.NewConverter(cfg.RoundUp.BaseCurrency, rates)

	// Bank
	token, err := resolveBankToken(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to resolve bank API token", zap.Error(err))
	}
	bankClient := bank.NewClient(cfg.Bank, cfg.Resilience, token, cfg.RoundUp.BaseCurrency)
	gateway := bank.NewRoundUpGateway(bankClient)

	checks := map[string]func() error{
		"storage": health.CompositeChecker("storage", map[string]health.Checker{
			"database": health.DatabaseChecker(db),
			"redis":    health.RedisChecker(redisClient.PingContext),
		}),
		"bank": health.HTTPEndpointChecker(cfg.Bank.BaseURL),
	}

	// Events
	var procOpts []roundup.ProcessorOption
	procOpts = append(procOpts, roundup.WithTimeout(cfg.RoundUp.PipelineTimeout()))
	if cfg.NATS.Enabled {
		bus, err := eventbus.Connect(eventbus.Config{
			URL:      cfg.NATS.URL,
			Stream:   cfg.NATS.Stream,
			Subjects: []string{eventbus.SubjectRoundUpCompleted, eventbus.SubjectRoundUpFailed},
			Name:     serviceName,
		})
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer bus.Close()

		if err := subscribeAudit(ctx, bus); err != nil {
			logger.Fatal("Failed to subscribe to round-up events", zap.Error(err))
		}
		procOpts = append(procOpts, roundup.WithPublisher(bus))
		checks["nats"] = bus.Healthy
	}

	// Round-up engine
	ledger := roundup.NewRepository(db)
	locker := redis.NewLocker(redisClient.Client, cfg.RoundUp.LockTTL())
	processor := roundup.NewProcessor(ledger, gateway, gateway, gateway, converter, procOpts...)
	pool := workerpool.New[roundup.Job]("roundup", cfg.RoundUp.Workers, cfg.RoundUp.QueueSize, processor.Process)
	pool.Start()
	service := roundup.NewService(ledger, locker, pool)

	router := newRouter(cfg, handlers{
		roundUps: roundup.NewHandler(service),
		accounts: accounts.NewHandler(accounts.NewService(bankClient, cfg.RoundUp.BaseCurrency)),
		currency: currency.NewHandler(converter, rates),
	}, checks, sentryMW...)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Round-up service starting",
			zap.String("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment),
			zap.String("base_currency", cfg.RoundUp.BaseCurrency),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down round-up service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	// in-flight pipelines get the rest of the shutdown window to write their terminal status
	if err := pool.Stop(shutdownCtx); err != nil {
		logger.Warn("Worker pool did not drain", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Tracing shutdown failed", zap.Error(err))
	}

	logger.Info("Round-up service stopped")
}

// resolveBankToken prefers a secrets manager reference over the plain env token.
func resolveBankToken(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.Bank.TokenRef == "" {
		return cfg.Bank.AccessToken, nil
	}

	manager, err := secrets.NewManager(ctx, secrets.ConfigFromApp(cfg.Secrets))
	if err != nil {
		return "", err
	}
	defer manager.Close()

	return secrets.ResolveString(ctx, manager, "bank_api_token", secrets.SecretBankToken, cfg.Bank.TokenRef, cfg.Bank.AccessToken)
}

// subscribeAudit logs every round-up outcome published on the bus.
func subscribeAudit(ctx context.Context, bus *eventbus.Bus) error {
	handle := func(ctx context.Context, event *eventbus.Event) error {
		logger.WithContext(ctx).Info("round-up event",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
			zap.Time("timestamp", event.Timestamp),
		)
		return nil
	}
	if err := bus.Subscribe(ctx, eventbus.SubjectRoundUpCompleted, "roundup-audit-completed", handle); err != nil {
		return err
	}
	return bus.Subscribe(ctx, eventbus.SubjectRoundUpFailed, "roundup-audit-failed", handle)
}
