package app

import (
	"database/sql"

	"hrm-server/internal/application"
	"hrm-server/internal/apptemplate"
	"hrm-server/internal/config"
	"hrm-server/internal/employee"
	"hrm-server/internal/leavetype"
	"hrm-server/internal/ledger"
	"hrm-server/internal/messaging/kafka"
	"hrm-server/internal/middleware"
	"hrm-server/internal/notification"
	"hrm-server/internal/policy"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	cfg *config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	channel notification.Channel,
	logger *zap.Logger,
) (*notification.Dispatcher, error) {
	// --- Repositories ---
	applicationRepo := application.NewRepository(gormDB, db)
	employeeRepo := employee.NewRepository(gormDB)
	leaveTypeRepo := leavetype.NewRepository(gormDB)
	ledgerRepo := ledger.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)
	policyRepo := policy.NewRepository(gormDB)
	templateRepo := apptemplate.NewRepository(gormDB)

	// --- Collaborators ---
	directory := employee.NewDirectory(employeeRepo, rdb, logger)
	rules := leavetype.NewRules(leaveTypeRepo, logger)
	resolver := policy.NewResolver(policyRepo, directory, cfg.Approver, logger)
	renderer := apptemplate.NewRenderer(templateRepo, logger)
	poster := ledger.NewPoster(ledgerRepo, logger)

	dispatcher := notification.NewDispatcher(directory, channel, notification.Options{
		QueueSize: cfg.Notification.QueueSize,
		Workers:   cfg.Notification.Workers,
		Timeout:   cfg.Notification.Timeout,
	}, logger)

	// --- Services ---
	ledgerService := ledger.NewService(db, ledgerRepo, poster, rules, rdb, logger)
	applicationService := application.NewService(application.Dependencies{
		DB:        db,
		Repo:      applicationRepo,
		Poster:    poster,
		Balances:  ledgerService,
		Outbox:    outboxRepo,
		Resolver:  resolver,
		Rules:     rules,
		Directory: directory,
		Renderer:  renderer,
		Notifier:  dispatcher,
		Query:     cfg.Query,
	}, logger)

	// --- Handlers ---
	applicationHandler := application.NewHandler(applicationService, logger)
	ledgerHandler := ledger.NewHandler(ledgerService, logger)

	// --- Routes Registration ---
	guards := middleware.Guards{
		Auth:        middleware.AuthMiddleware(cfg.JWT.Secret),
		Idempotency: middleware.Idempotency(rdb, logger),
		RateLimit:   middleware.RateLimitByUser(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
	}

	api := router.Group("/api/v1")
	{
		application.RegisterRoutes(api, applicationHandler, guards)
		ledger.RegisterRoutes(api, ledgerHandler, guards)
	}

	return dispatcher, nil
}
