package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logging"
	"storefront/internal/migrate"
	categoryrepo "storefront/internal/repository/category"
	productrepo "storefront/internal/repository/product"
	userrepo "storefront/internal/repository/user"
	"storefront/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	admin := seed.Admin{
		Name:     envOr("SEED_ADMIN_NAME", "Admin"),
		Email:    envOr("SEED_ADMIN_EMAIL", "admin@storefront.local"),
		Password: envOr("SEED_ADMIN_PASSWORD", "Admin123"),
	}
	sum, err := seed.Apply(ctx, seed.Stores{
		Users:      userrepo.NewPostgres(pool, logger),
		Categories: categoryrepo.NewPostgres(pool),
		Products:   productrepo.NewPostgres(pool, logger),
	}, admin, logger)
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}

	logger.Info("seed applied",
		zap.Bool("admin_created", sum.AdminCreated),
		zap.Int("categories", sum.Categories),
		zap.Int("products", sum.Products),
	)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
