package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"hrm-server/internal/config"
	"hrm-server/internal/events"
	"hrm-server/internal/notification"
	"hrm-server/internal/shared/apperror"
	"hrm-server/internal/shared/connection"
	"hrm-server/internal/shared/metrics"
	"hrm-server/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App owns the long-lived resources of the api binary.
type App struct {
	Dispatcher *notification.Dispatcher
	closers    []func()
}

// NewLogger builds the process logger for the configured environment.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func BuildApp(router *gin.Engine, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{}

	gormDB, err := connection.ConnectGORMWithRetry(cfg.DB, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = sqlDB.Close() })

	rdb, err := connection.ConnectRedisWithRetry(cfg.Redis.Addr, cfg.DB.MaxRetries, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	channel, err := a.notificationChannel(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Dispatcher, err = registerModules(router, cfg, sqlDB, gormDB, rdb, channel, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/healthz", healthz(sqlDB, rdb))

	return a, nil
}

func (a *App) notificationChannel(cfg *config.Config, logger *zap.Logger) (notification.Channel, error) {
	switch cfg.Notification.Channel {
	case "", "log":
		return notification.NewLogChannel(logger), nil
	case "kafka":
		if cfg.Kafka.Broker == "" {
			return nil, fmt.Errorf("KAFKA_BROKER is required for the kafka notification channel")
		}
		writer, err := connection.ConnectKafkaWithRetry(cfg.Kafka.Broker, cfg.DB.MaxRetries, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = writer.Close() })
		topic := cfg.Kafka.NotificationTopic
		if topic == "" {
			topic = events.NotificationEmailTopic
		}
		return notification.NewKafkaChannel(writer, topic), nil
	}
	return nil, fmt.Errorf("unknown notification channel %q", cfg.Notification.Channel)
}

// Close stops the dispatcher, draining queued notifications, then releases
// connections in reverse order.
func (a *App) Close() {
	if a.Dispatcher != nil {
		a.Dispatcher.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func healthz(db *sql.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"postgres": "ok", "redis": "ok"}
		status := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if status != http.StatusOK {
			response.Error(c, status, apperror.CodeServiceUnavailable, "dependency check failed", checks)
			return
		}
		response.Success(c, status, checks, nil)
	}
}
