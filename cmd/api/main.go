package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/migrate"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	cartrepo "storefront/internal/repository/cart"
	categoryrepo "storefront/internal/repository/category"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
	cartsvc "storefront/internal/service/cart"
	categorysvc "storefront/internal/service/category"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	usersvc "storefront/internal/service/user"
	"storefront/internal/storage"
)

const revocationPurgeInterval = time.Hour

// caches lets order placement drop cart and product read caches.
type caches struct {
	carts    *cartsvc.Service
	products *productsvc.Service
}

func (c caches) InvalidateCart(ctx context.Context, userID string) { c.carts.Invalidate(ctx, userID) }

func (c caches) InvalidateProducts(ctx context.Context) { c.products.Invalidate(ctx) }

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.JWTSecret == "dev-secret" && cfg.Env != "development" {
		logger.Warn("JWT_SECRET is the development default; set a real secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	if err := migrate.Apply(ctx, dbpool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	var store cache.Store = cache.NewMemory()
	if cfg.RedisURL != "" {
		redisStore, client, err := cache.NewRedis(ctx, cfg.RedisURL, "storefront:")
		if err != nil {
			logger.Fatal("connect to redis", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		store = redisStore
		logger.Info("using redis cache")
	}

	var images storage.ImageStore = storage.Unconfigured{}
	if cfg.MinIO.Endpoint != "" {
		images, err = storage.NewMinIO(ctx, cfg.MinIO, logger)
		if err != nil {
			logger.Fatal("init image storage", zap.Error(err))
		}
	} else {
		logger.Warn("MINIO_ENDPOINT not set; image uploads are disabled")
	}

	var payments payment.Gateway = payment.Unconfigured{}
	if cfg.StripeSecretKey != "" {
		payments = payment.NewStripe(cfg.StripeSecretKey)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set; payments are disabled")
	}

	m := metrics.New()
	rules := pricing.NewRules(cfg.TaxRate, cfg.FreeShippingThreshold, cfg.ShippingCharge)

	userRepo := userrepo.NewPostgres(dbpool, logger)
	tokenRepo := tokenrepo.NewPostgres(dbpool)
	categoryRepo := categoryrepo.NewPostgres(dbpool)
	productRepo := productrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)

	userService := usersvc.New(userRepo, tokenRepo, usersvc.Options{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.JWTTTL,
		Images:    images,
		Logger:    logger,
	})
	productService := productsvc.New(productRepo, productsvc.Options{
		Images:   images,
		Cache:    store,
		CacheTTL: cfg.ProductCacheTTL,
		Metrics:  m,
		Logger:   logger,
	})
	categoryService := categorysvc.New(categoryRepo)
	categoryService.OnChange(productService.Invalidate)
	cartService := cartsvc.New(cartRepo, productRepo, cartsvc.Options{
		Cache:    store,
		CacheTTL: cfg.CartCacheTTL,
		Pricing:  &rules,
		Metrics:  m,
		Logger:   logger,
	})
	orderService := ordersvc.New(orderRepo, ordersvc.Options{
		Payments: payments,
		Currency: cfg.StripeCurrency,
		Pricing:  &rules,
		Caches:   caches{carts: cartService, products: productService},
		Metrics:  m,
		Logger:   logger,
	})

	go purgeRevocations(ctx, tokenRepo, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Users:              userService,
		Products:           productService,
		Categories:         categoryService,
		Carts:              cartService,
		Orders:             orderService,
		DB:                 dbpool,
		Metrics:            m,
		AllowedOrigins:     cfg.AllowedOrigins,
		CookieSecure:       cfg.CookieSecure,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		MaxUploadBytes:     cfg.MaxUploadBytes,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

// purgeRevocations drops revoked token ids whose tokens have expired anyway.
func purgeRevocations(ctx context.Context, repo tokenrepo.Repository, logger *zap.Logger) {
	ticker := time.NewTicker(revocationPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.PurgeExpired(ctx, now)
			if err != nil {
				logger.Warn("purge token revocations", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("purged token revocations", zap.Int64("count", n))
			}
		}
	}
}
