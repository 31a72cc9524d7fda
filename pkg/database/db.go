package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Ruscigno/QuantLab/pkg/config"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations
var migrations embed.FS

func init() {
	// sqlx does not know modernc's driver name; it takes ? placeholders.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// DB wraps the database connection and provides additional functionality
type DB struct {
	*sqlx.DB
	logger *zap.Logger
	driver string
}

// NewDB opens and pings the pool described by cfg.
func NewDB(cfg config.Config, logger *zap.Logger) (*DB, error) {
	driver := cfg.DatabaseDriver
	if driver == "" {
		driver = DriverPostgres
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	logger.Info("Connecting to database", zap.String("driver", driver))

	timeout := cfg.DatabaseConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sqlDB, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w, and failed to close connection: %w", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		// One writer at a time; in-memory databases also live on a single connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	}

	logger.Info("Successfully connected to database", zap.String("driver", driver))

	return &DB{
		DB:     sqlx.NewDb(sqlDB, driver),
		logger: logger,
		driver: driver,
	}, nil
}

// Driver returns the name of the underlying SQL driver.
func (db *DB) Driver() string {
	return db.driver
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}

// Health checks the database connection health
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("database query test failed: %w", err)
	}

	return nil
}

// newMigrate builds a migrator over the embedded migrations for the current
// driver. The returned close func releases migrator resources without closing
// the pool.
func (db *DB) newMigrate(ctx context.Context) (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrations, "migrations/"+db.driver)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	var (
		driver    migratedb.Driver
		closeFunc func()
	)
	switch db.driver {
	case DriverPostgres:
		conn, err := db.DB.DB.Conn(ctx)
		if err != nil {
			src.Close()
			return nil, nil, fmt.Errorf("failed to acquire migration connection: %w", err)
		}
		driver, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			conn.Close()
			src.Close()
			return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
		}
	case DriverSQLite:
		driver, err = sqlite.WithInstance(db.DB.DB, &sqlite.Config{})
		if err != nil {
			src.Close()
			return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
		}
	}

	m, err := migrate.NewWithInstance("iofs", src, db.driver, driver)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	if db.driver == DriverPostgres {
		// Closes the dedicated connection and the source.
		closeFunc = func() {
			if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
				db.logger.Warn("Failed to close migrator", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
			}
		}
	} else {
		// The sqlite driver closes the pool it was given, so only the source is released.
		closeFunc = func() {
			if err := src.Close(); err != nil {
				db.logger.Warn("Failed to close migration source", zap.Error(err))
			}
		}
	}
	return m, closeFunc, nil
}

// RunMigrations runs database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info("Running database migrations", zap.String("driver", db.driver))

	m, closeFunc, err := db.newMigrate(ctx)
	if err != nil {
		return err
	}
	defer closeFunc()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	db.logVersion(m, "Migration completed")
	return nil
}

// RollbackMigrations rolls back database migrations
func (db *DB) RollbackMigrations(ctx context.Context, steps int) error {
	db.logger.Info("Rolling back database migrations", zap.Int("steps", steps))

	m, closeFunc, err := db.newMigrate(ctx)
	if err != nil {
		return err
	}
	defer closeFunc()

	if err := m.Steps(-steps); err != nil {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}

	db.logVersion(m, "Migration rollback completed")
	return nil
}

func (db *DB) logVersion(m *migrate.Migrate, msg string) {
	version, dirty, err := m.Version()
	if err != nil {
		db.logger.Warn("Could not get migration version", zap.Error(err))
		return
	}
	db.logger.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
}

// GetStats returns database connection statistics
func (db *DB) GetStats() sql.DBStats {
	return db.DB.Stats()
}
