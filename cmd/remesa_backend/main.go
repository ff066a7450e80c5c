package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	limitermem "github.com/ulule/limiter/v3/drivers/store/memory"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mexihaiti/remesa-backend/internal/core/ports/repositories"
	portssvc "github.com/mexihaiti/remesa-backend/internal/core/ports/services"
	"github.com/mexihaiti/remesa-backend/internal/core/services"
	"github.com/mexihaiti/remesa-backend/internal/dto"
	"github.com/mexihaiti/remesa-backend/internal/handlers"
	"github.com/mexihaiti/remesa-backend/internal/metrics"
	"github.com/mexihaiti/remesa-backend/internal/middleware"
	"github.com/mexihaiti/remesa-backend/internal/notifications"
	"github.com/mexihaiti/remesa-backend/internal/platform/config"
	"github.com/mexihaiti/remesa-backend/internal/repositories/boltdb"
	"github.com/mexihaiti/remesa-backend/internal/repositories/database/pgsql"
	"github.com/mexihaiti/remesa-backend/internal/repositories/memory"
	"github.com/mexihaiti/remesa-backend/internal/worker"
	"github.com/mexihaiti/remesa-backend/pkg/database"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := dto.RegisterValidations(); err != nil {
		logger.Error("Failed to register request validations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repo, cleanup, err := openLedgerStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	metrics.Init()

	dispatch := worker.NewPool(cfg.NotifyWorkers)
	defer dispatch.Stop()

	var notifier portssvc.Notifier
	if cfg.NotifyWebhookURL != "" {
		notifier = notifications.NewWhatsAppNotifier(cfg.NotifyWebhookURL)
	}

	accountService := services.NewAccountService(repo, cfg.AdminEmails)
	ledgerService := services.NewLedgerService(repo, cfg.ExchangeRate, cfg.CommissionRate, notifier, dispatch, cfg.AdminWhatsApp)
	container := &portssvc.ServiceContainer{
		Account: accountService,
		Ledger:  ledgerService,
	}

	authRate, err := limiter.NewRateFromFormatted(cfg.AuthRateLimit)
	if err != nil {
		logger.Error("Invalid auth rate limit", slog.String("error", err.Error()))
		os.Exit(1)
	}
	authLimiter := limiter.New(limitermem.NewStore(), authRate)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
		middleware.MetricsMiddleware(),
		cors.Default(),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, container, authLimiter, logger)

	logger.Info("Server starting",
		slog.String("port", cfg.Port),
		slog.String("storage", cfg.StorageBackend))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// openLedgerStore builds the configured storage backend. The returned
// cleanup releases whatever the backend holds open.
func openLedgerStore(cfg *config.Config, logger *slog.Logger) (repositories.LedgerRepositoryFacade, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		logger.Warn("Using in-memory ledger store; data is lost on restart")
		return memory.New(cfg.EmailLookupFold), func() {}, nil

	case config.StorageBolt:
		repo, err := boltdb.New(cfg.BoltPath, cfg.EmailLookupFold)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Opened bolt ledger store", slog.String("path", cfg.BoltPath))
		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Error("Error closing bolt store", slog.String("error", err.Error()))
			}
		}, nil

	case config.StoragePostgres:
		if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
			return nil, nil, err
		}
		pool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Database connection pool established")
		return pgsql.New(pool, cfg.EmailLookupFold), func() { database.ClosePgxPool(pool) }, nil

	default:
		logger.Error("Unknown storage backend", slog.String("backend", cfg.StorageBackend))
		os.Exit(1)
		return nil, nil, nil
	}
}

// runMigrations applies pending schema migrations over a temporary
// database/sql connection using the pgx stdlib driver.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply")
	} else {
		logger.Info("Database migrations applied successfully")
	}
	return nil
}
