package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/product-catalog-api/internal/config"
	"github.com/iliyamo/product-catalog-api/internal/database"
	"github.com/iliyamo/product-catalog-api/internal/handler"
	"github.com/iliyamo/product-catalog-api/internal/middleware"
	"github.com/iliyamo/product-catalog-api/internal/queue"
	"github.com/iliyamo/product-catalog-api/internal/repository"
	"github.com/iliyamo/product-catalog-api/internal/router"
	"github.com/iliyamo/product-catalog-api/internal/service"
	"github.com/iliyamo/product-catalog-api/internal/token"
	"github.com/iliyamo/product-catalog-api/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	logger = logger.With(zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
	}

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable; cache and rate limit disabled, revocations read from mysql", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	tokens := repository.NewTokenRepo(db)
	go purgeRevoked(ctx, tokens, logger)
	var revocations token.RevocationStore = tokens
	if rdb != nil {
		revocations = token.NewLayeredRevocations(tokens, token.NewRedisRevocations(rdb, "revoked"))
	}
	issuer := token.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer, revocations)

	var events service.EventPublisher = queue.Discard{}
	if cfg.BrokerURL != "" {
		publisher := queue.NewPublisher(cfg.BrokerURL, logger)
		defer publisher.Close()
		events = publisher
		consumer := queue.NewConsumer(cfg.BrokerURL, cfg.EventLogDir, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("catalog consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Info("no broker configured; catalog events are discarded")
	}

	categoryRepo := repository.NewCategoryRepo(db)
	auth := service.NewAuthService(repository.NewUserRepo(db), utils.NewBcryptHasher(cfg.BcryptCost), issuer, events, logger)
	categories := service.NewCategoryService(categoryRepo, events, middleware.NewCachePurger(rdb, cfg.Cache.Prefix), logger)
	products := service.NewProductService(repository.NewProductRepo(db), categoryRepo, events, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover(logger), middleware.RequestLogger(logger))

	router.RegisterRoutes(e)
	limit := middleware.NewTokenBucket(cfg.RateLimit, rdb, logger)
	api := e.Group("/api")
	router.RegisterAuth(api, handler.NewAuthHandler(auth), auth, limit)
	router.RegisterCatalog(api, router.Catalog{
		Categories: handler.NewCategoryHandler(categories),
		Products:   handler.NewProductHandler(products),
		Auth:       auth,
		WriteRoles: cfg.WriteRoles,
		RateLimit:  limit,
		Cache:      middleware.NewRedisCache(cfg.Cache, rdb, logger),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", zap.Error(err))
	}
}

// purgeRevoked deletes expired revocations from MySQL hourly.
func purgeRevoked(ctx context.Context, tokens *repository.TokenRepo, log *zap.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := tokens.PurgeExpired(ctx)
			if err != nil && !errors.Is(err, sql.ErrConnDone) {
				log.Warn("purge revoked tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("purged revoked tokens", zap.Int64("count", n))
			}
		}
	}
}
