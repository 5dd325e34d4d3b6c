// Package app wires the ledger service to its configured infrastructure:
// SQLite or PostgreSQL storage, the in-memory token network or an HTTP
// token gateway, and optional Redis and RabbitMQ integrations.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"github.com/felixgeelhaar/subledger/internal/ledger/application"
	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
	"github.com/felixgeelhaar/subledger/internal/ledger/infrastructure/cache"
	ledgerPersistence "github.com/felixgeelhaar/subledger/internal/ledger/infrastructure/persistence"
	"github.com/felixgeelhaar/subledger/internal/ledger/infrastructure/token"
	"github.com/felixgeelhaar/subledger/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/subledger/internal/shared/infrastructure/migrations"
	sharedPersistence "github.com/felixgeelhaar/subledger/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/subledger/pkg/config"
	"github.com/felixgeelhaar/subledger/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Storage. Exactly one of DB and SQLiteDB is set, depending on
	// whether DATABASE_URL is configured.
	DB       *pgxpool.Pool
	SQLiteDB *sql.DB
	Repo     domain.Repository

	// UnitOfWork lets embedding applications span their own writes and
	// the ledger's payment append in one transaction.
	UnitOfWork sharedPersistence.UnitOfWork

	// Token network access.
	Token domain.TokenGateway

	// Optional integrations.
	EventPublisher eventbus.Publisher
	StatusCache    *cache.RedisStatusCache

	// Ledger service.
	LedgerService *application.Service
}

// NewContainer builds the dependency graph from configuration. On first
// run the ledger is created with SUBLEDGER_OWNER as its owner and
// persisted; subsequent runs rehydrate it from storage.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	if err := c.initStorage(ctx); err != nil {
		return nil, err
	}

	ledger, err := c.loadOrCreateLedger(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.initToken()

	if err := c.initPublisher(); err != nil {
		c.Close()
		return nil, err
	}

	if err := c.initStatusCache(); err != nil {
		c.Close()
		return nil, err
	}

	opts := []application.Option{
		application.WithPublisher(c.EventPublisher),
		application.WithLogger(logger),
		application.WithMetrics(observability.NewInMemoryMetrics()),
	}
	if c.StatusCache != nil {
		opts = append(opts, application.WithStatusCache(c.StatusCache))
	}

	c.LedgerService = application.NewService(
		ledger,
		c.Repo,
		c.Token,
		domain.NewStaticAuthorizer(ledger.Owner()),
		domain.Account(cfg.CustodyAccount),
		opts...,
	)

	return c, nil
}

func (c *Container) initStorage(ctx context.Context) error {
	if c.Config.UsePostgres() {
		pool, err := pgxpool.New(ctx, c.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("failed to ping database: %w", err)
		}
		c.DB = pool

		repo := ledgerPersistence.NewPostgresLedgerRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
		c.Repo = repo
		c.UnitOfWork = sharedPersistence.NewPostgresUnitOfWork(pool)
		c.Logger.Info("connected to PostgreSQL")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.Config.DBPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	// WAL for concurrent readers, busy_timeout so writers wait instead
	// of failing immediately.
	dsn := "file:" + c.Config.DBPath +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	c.SQLiteDB = db
	c.Repo = ledgerPersistence.NewSQLiteLedgerRepository(db)
	c.UnitOfWork = sharedPersistence.NewSQLiteUnitOfWork(db)
	c.Logger.Info("using SQLite database", "path", c.Config.DBPath)
	return nil
}

func (c *Container) loadOrCreateLedger(ctx context.Context) (*domain.Ledger, error) {
	ledger, err := c.Repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	if ledger != nil {
		return ledger, nil
	}

	ledger, err = domain.NewLedger(domain.Account(c.Config.Owner))
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger (set SUBLEDGER_OWNER): %w", err)
	}
	if err := c.Repo.Initialize(ctx, ledger); err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}
	c.Logger.Info("ledger initialized", "owner", c.Config.Owner)
	return ledger, nil
}

func (c *Container) initToken() {
	if c.Config.TokenGatewayURL != "" {
		gatewayCfg := token.DefaultGatewayConfig(c.Config.TokenGatewayURL)
		gatewayCfg.RequestTimeout = c.Config.TokenGatewayTimeout
		c.Token = token.NewHTTPGateway(gatewayCfg, c.Logger)
		c.Logger.Info("using token gateway", "url", c.Config.TokenGatewayURL)
		return
	}
	c.Token = token.NewMemoryToken(domain.Account(c.Config.CustodyAccount))
	c.Logger.Info("using in-memory token network")
}

func (c *Container) initPublisher() error {
	if c.Config.RabbitMQURL == "" {
		c.EventPublisher = eventbus.NewInProcessEventBus(c.Logger)
		return nil
	}

	publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		if c.Config.IsDevelopment() {
			c.Logger.Warn("RabbitMQ not available, using in-process event bus", "error", err)
			c.EventPublisher = eventbus.NewInProcessEventBus(c.Logger)
			return nil
		}
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	c.EventPublisher = publisher
	return nil
}

func (c *Container) initStatusCache() error {
	if c.Config.RedisAddr == "" {
		return nil
	}

	statusCache, err := cache.NewRedisStatusCache(c.Config.RedisAddr, c.Config.RedisPassword)
	if err != nil {
		if c.Config.IsDevelopment() {
			c.Logger.Warn("Redis not available, subscription checks read the ledger directly", "error", err)
			return nil
		}
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	c.StatusCache = statusCache
	c.Logger.Info("connected to Redis")
	return nil
}

// Close releases all held connections.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.StatusCache != nil {
		if err := c.StatusCache.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		}
	}

	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("PostgreSQL connection closed")
	}

	if c.SQLiteDB != nil {
		if err := c.SQLiteDB.Close(); err != nil {
			c.Logger.Warn("error closing SQLite connection", "error", err)
		}
	}
}
