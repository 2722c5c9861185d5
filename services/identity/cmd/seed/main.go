// Command seed creates the initial ADMIN account from SEED_ADMIN_NAME,
// SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD. Running it again is a no-op.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/siapee/siapee/pkg/database"
	"github.com/siapee/siapee/pkg/logger"
	"github.com/siapee/siapee/services/identity/internal/config"
	"github.com/siapee/siapee/services/identity/internal/repository/postgres"
	"github.com/siapee/siapee/services/identity/internal/service"
	"github.com/siapee/siapee/services/identity/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("identity-seed", cfg.LogLevel)

	if err := cfg.ValidateSeed(); err != nil {
		log.Error("invalid seed configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pgCfg := cfg.PostgresConfig()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return err
	}

	created, err := service.EnsureAdmin(ctx, postgres.NewUserRepository(pool), service.AdminSeed{
		Name:     cfg.Seed.Name,
		Email:    cfg.Seed.Email,
		Password: cfg.Seed.Password,
	}, cfg.BcryptCost, log)
	if err != nil {
		return err
	}

	log.Info("seed complete", slog.Bool("admin_created", created))
	return nil
}
