package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/luma-pay/luma_pay/internal/account"
	"github.com/luma-pay/luma_pay/internal/auth"
	"github.com/luma-pay/luma_pay/internal/authorizer"
	"github.com/luma-pay/luma_pay/internal/config"
	"github.com/luma-pay/luma_pay/internal/ledger"
	"github.com/luma-pay/luma_pay/internal/middleware"
	"github.com/luma-pay/luma_pay/internal/notification"
	"github.com/luma-pay/luma_pay/internal/queue"
	"github.com/luma-pay/luma_pay/internal/transfer"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg         config.Config
	DB          *pgxpool.Pool
	Cache       *redis.Client
	Logger      *slog.Logger
	KafkaWriter queue.KafkaWriter
	KafkaReader queue.KafkaReader
}

// Runtime holds the background components main must drive: the settlement
// worker for the maintenance sweep plus whichever queue consumer the
// configured worker mode requires.
type Runtime struct {
	Worker        *transfer.Worker
	MemoryQueue   *queue.Memory
	KafkaConsumer *queue.KafkaConsumer
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*Runtime, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Storage backends
	var ledgerBackend ledger.Ledger
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
	}

	var accountRepo account.Repository
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
	}

	// External collaborators
	var authClient authorizer.Client
	if d.Cfg.AuthorizerURL != "" {
		authClient = authorizer.NewHTTPClient(d.Cfg.AuthorizerURL, d.Cfg.AuthorizerTimeout)
	} else {
		authClient = authorizer.StaticApprover{}
	}

	var notifier notification.Notifier
	if d.Cfg.NotifierURL != "" {
		notifier = notification.NewHTTPNotifier(d.Cfg.NotifierURL, d.Cfg.NotifierTimeout)
	} else {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	// Services and worker
	accountSvc := account.NewService(accountRepo, ledgerBackend)
	authSvc := auth.NewService(d.Cfg, accountRepo)
	authHandler := auth.NewHandler(accountSvc, authSvc)

	worker := transfer.NewWorker(ledgerBackend, accountRepo, authClient, notifier, d.Logger)

	runtime := &Runtime{Worker: worker}
	var dispatcher queue.Dispatcher
	switch d.Cfg.WorkerMode {
	case config.WorkerModeInline:
		dispatcher = queue.NewInline(worker)
	case config.WorkerModeKafka:
		if d.KafkaWriter == nil || d.KafkaReader == nil {
			return nil, fmt.Errorf("kafka writer and reader are required when WORKER_MODE=kafka")
		}
		dispatcher = queue.NewKafka(d.KafkaWriter)
		runtime.KafkaConsumer = queue.NewKafkaConsumer(d.KafkaReader, worker, d.Logger)
	default:
		mq := queue.NewMemory(worker, 256, d.Logger)
		dispatcher = mq
		runtime.MemoryQueue = mq
	}

	transferSvc := transfer.NewService(ledgerBackend, accountRepo, dispatcher, d.Logger)
	transferHandler := transfer.NewHandler(transferSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterAccountRoutes(api, d.Cfg, accountSvc, d.Logger)
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, accountRepo)
	protected := api.Group("", jwtmw)
	RegisterTransferRoutes(protected, transferHandler)
	RegisterWalletRoutes(protected, ledgerBackend)
	protected.Post("/auth/logout", authHandler.Logout)

	return runtime, nil
}
