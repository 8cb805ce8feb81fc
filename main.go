package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/config"
	"github.com/atina-inc/atina-engine/pkg/database"
	"github.com/atina-inc/atina-engine/pkg/handlers"
	"github.com/atina-inc/atina-engine/pkg/ledger"
	"github.com/atina-inc/atina-engine/pkg/llm"
	"github.com/atina-inc/atina-engine/pkg/logging"
	"github.com/atina-inc/atina-engine/pkg/middleware"
	"github.com/atina-inc/atina-engine/pkg/repositories"
	"github.com/atina-inc/atina-engine/pkg/retry"
	"github.com/atina-inc/atina-engine/pkg/services"
	"github.com/atina-inc/atina-engine/pkg/session"
	"github.com/atina-inc/atina-engine/pkg/whatsapp"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("database", cfg.Database.Host),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.Bool("redis_sessions", cfg.Redis.Host != ""))

	ctx := context.Background()

	// Database: migrations run through database/sql, the app itself uses
	// the pgx pool. Startup retries cover slow container orchestration.
	migrateDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := retry.Do(ctx, nil, func() error {
		return database.RunMigrations(migrateDB, cfg.Database.MigrationsPath, logger)
	}); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrateDB.Close()

	db, err := retry.DoWithResult(ctx, nil, func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Session store: Redis when configured, in-memory otherwise.
	sessions := session.NewMemoryStore()
	if redisClient, err := database.NewRedisClient(&cfg.Redis); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	} else if redisClient != nil {
		sessions = session.NewRedisStore(redisClient, time.Duration(cfg.Redis.TTLMinutes)*time.Minute)
		logger.Info("Using Redis session store")
	}

	provider, err := llm.NewProvider(&cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to create AI provider", zap.Error(err))
	}

	credentials, err := cfg.Ledger.CredentialsJSON()
	if err != nil {
		logger.Fatal("Failed to load ledger credentials", zap.Error(err))
	}
	sink, err := ledger.NewSheetsSink(ctx, credentials, retry.DefaultConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create ledger sink", zap.Error(err))
	}

	wa := whatsapp.NewClient(&cfg.WhatsApp, logger)

	tenantRepo := repositories.NewTenantRepository(db)
	taxonomyRepo := repositories.NewTaxonomyRepository()
	patternRepo := repositories.NewPatternRepository()
	receiptRepo := repositories.NewReceiptRepository()

	resolver := services.NewTenantResolver(tenantRepo, taxonomyRepo, cfg.Tenant, logger)
	patterns := services.NewPatternService(patternRepo, cfg.Patterns, logger)
	monitor := services.NewMonitor(receiptRepo, cfg.Monitor, logger)
	management := services.NewManagementService(taxonomyRepo, provider.Dialogue, logger)
	engine := services.NewConversationEngine(
		sessions, provider.Extractor, provider.Dialogue, patterns, management,
		monitor, receiptRepo, taxonomyRepo, sink, wa, logger,
	)

	scopes := database.NewTenantScopeProvider(db)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewWebhookHandler(&cfg.Webhook, resolver, scopes, engine, wa, logger).RegisterRoutes(mux)
	handlers.NewAdminHandler(sessions, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting atina-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
