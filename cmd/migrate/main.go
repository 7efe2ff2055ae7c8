package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	"hrm-server/internal/config"
	"hrm-server/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Usage: migrate [up|down|status]. Defaults to up.
func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config failed", zap.Error(err))
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	db, err := sql.Open("pgx", cfg.DB.DSN())
	if err != nil {
		logger.Fatal("open database failed", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		logger.Fatal("goose new provider failed", zap.Error(err))
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			logger.Fatal("migrate up failed", zap.Error(err))
		}
		for _, r := range results {
			logger.Info("migration applied", zap.String("source", r.Source.Path), zap.Duration("duration", r.Duration))
		}
	case "down":
		r, err := provider.Down(ctx)
		if err != nil {
			logger.Fatal("migrate down failed", zap.Error(err))
		}
		logger.Info("migration rolled back", zap.String("source", r.Source.Path))
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			logger.Fatal("migrate status failed", zap.Error(err))
		}
		for _, s := range statuses {
			logger.Info("migration",
				zap.Int64("version", s.Source.Version),
				zap.String("state", string(s.State)),
				zap.Time("applied_at", s.AppliedAt),
			)
		}
	default:
		logger.Fatal("unknown migrate command", zap.String("command", command))
	}
}
