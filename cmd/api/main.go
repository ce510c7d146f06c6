package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/ahwlsqja/coinflip-claim-engine/docs"
	"github.com/ahwlsqja/coinflip-claim-engine/internal/claim"
	"github.com/ahwlsqja/coinflip-claim-engine/internal/common/handler"
	"github.com/ahwlsqja/coinflip-claim-engine/internal/common/middleware"
	"github.com/ahwlsqja/coinflip-claim-engine/internal/config"
	"github.com/ahwlsqja/coinflip-claim-engine/pkg/chain"
	pkgdb "github.com/ahwlsqja/coinflip-claim-engine/pkg/db"
	"github.com/ahwlsqja/coinflip-claim-engine/pkg/eip712"
	"github.com/ahwlsqja/coinflip-claim-engine/pkg/nonce"
	pkgredis "github.com/ahwlsqja/coinflip-claim-engine/pkg/redis"
)

// @title CoinFlip Claim Engine API
// @version 1.0
// @description EIP-712 faucet claim authorization and submission for the CoinFlip mini-app on Base
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

func main() {
	// 1) Logger
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 2) Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Info("starting server",
		zap.String("environment", cfg.Server.Environment),
		zap.String("addr", cfg.Server.Addr()),
	)

	// 3) Optional stores
	db, err := initDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	rdb, err := initRedis(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to initialize redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// 4) Chain clients
	registry, err := initChains(cfg.Chain, logger)
	if err != nil {
		logger.Fatal("failed to initialize chain clients", zap.Error(err))
	}
	defer registry.Close()

	// 5) Router
	router := setupRouter(cfg, logger, db, rdb, registry)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("server started",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int64s("chains", registry.ChainIDs()),
		zap.String("swagger", fmt.Sprintf("http://localhost:%d/swagger/index.html", cfg.Server.Port)),
	)

	// 6) Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func initLogger() (*zap.Logger, error) {
	if os.Getenv("ENVIRONMENT") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// initDB returns nil when the audit database is disabled
func initDB(cfg config.DatabaseConfig, logger *zap.Logger) (*sql.DB, error) {
	if !cfg.Enabled {
		logger.Warn("database disabled, claim attempts will not be audited")
		return nil, nil
	}

	db, err := pkgdb.New(cfg.DB())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pkgdb.Ping(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if cfg.AutoMigrate {
		if err := claim.NewRepository(pkgdb.NewTxRunner(db)).Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// initRedis returns nil when the claim guard is disabled
func initRedis(cfg config.RedisConfig, logger *zap.Logger) (goredis.UniversalClient, error) {
	if !cfg.Enabled {
		logger.Warn("redis disabled, concurrent claims are only guarded by the contract")
		return nil, nil
	}

	rdb := pkgredis.New(cfg.Redis())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pkgredis.Ping(ctx, rdb); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func initChains(cfg config.ChainConfig, logger *zap.Logger) (*chain.Registry, error) {
	networks, err := cfg.Networks()
	if err != nil {
		return nil, err
	}
	signer, err := chain.ParsePrivateKey(cfg.SignerPrivateKey)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.FaucetOptions()
	if err != nil {
		return nil, err
	}
	if opts.SigValidator == (common.Address{}) {
		logger.Warn("no ERC-6492 validator configured, undeployed smart wallets cannot claim")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.TxTimeout)
	defer cancel()

	registry, err := chain.Dial(ctx, networks, signer, opts, logger)
	if err != nil {
		return nil, err
	}
	if _, ok := registry.Network(cfg.DefaultChainID); !ok {
		logger.Warn("default chain is not configured", zap.Int64("chain_id", cfg.DefaultChainID))
	}
	return registry, nil
}

func setupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *sql.DB,
	rdb goredis.UniversalClient,
	registry *chain.Registry,
) *gin.Engine {
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.NoRoute(middleware.NoRoute())

	// Swagger
	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", cfg.Server.Port)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoints
	handler.NewHealthHandler(db, rdb, registry).RegisterRoutes(router)

	// ============================================================================
	// Dependencies Setup
	// ============================================================================

	// In-flight claim guard
	var guard nonce.Store
	if rdb != nil {
		guard = nonce.NewRedisStoreWithTTL(rdb, cfg.Claim.GuardTTL, logger)
	}

	// Claim audit
	var attempts claim.AttemptStore
	if db != nil {
		attempts = claim.NewRepository(pkgdb.NewTxRunner(db))
	}

	builder := eip712.NewBuilder(cfg.Claim.MinFlipsRequired)
	verifier := eip712.NewEthVerifier(logger)

	// ============================================================================
	// Service & Handler Setup
	// ============================================================================

	claimService := claim.NewService(registry, builder, verifier, guard, attempts, claim.Policy{
		DefaultChainID: cfg.Chain.DefaultChainID,
		SubmitTimeout:  cfg.Chain.TxTimeout,
		ConfirmTimeout: cfg.Claim.ConfirmTimeout,
		StaleAfter:     cfg.Claim.StaleAfter,
	}, logger)
	claimHandler := claim.NewHandler(claimService)

	// ============================================================================
	// Route Registration
	// ============================================================================

	v1 := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		v1.Use(middleware.RateLimit(limiter))
	}
	claimHandler.RegisterRoutes(v1)

	return router
}
