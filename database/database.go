package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spmodel/logging"

	_ "modernc.org/sqlite"
)

// Config holds database configuration
type Config struct {
	Path              string        `env:"STORAGE_DB_PATH" default:"./spmodel.db"`
	MaxOpenConns      int           `env:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns      int           `env:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime   time.Duration `env:"DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime   time.Duration `env:"DB_CONN_MAX_IDLE_TIME" default:"15m"`
	BusyTimeoutMs     int           `env:"DB_BUSY_TIMEOUT_MS" default:"5000"`
	EnableForeignKeys bool          `env:"DB_ENABLE_FOREIGN_KEYS" default:"true"`
	EnableWAL         bool          `env:"DB_ENABLE_WAL" default:"true"`
}

// Database holds the snapshot store connections. Reads use a pool; writes go
// through a single connection.
type Database struct {
	readDB  *sql.DB
	writeDB *sql.DB
	config  Config
	logger  *logging.Logger
}

// PoolStats is the state of one connection pool.
type PoolStats struct {
	OpenConnections int    `json:"openConnections"`
	InUse           int    `json:"inUse"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"waitCount"`
	WaitDuration    string `json:"waitDuration"`
	MaxOpenConns    int    `json:"maxOpenConns"`
}

// HealthReport describes both pools after a successful ping.
type HealthReport struct {
	Path  string    `json:"path"`
	Read  PoolStats `json:"read"`
	Write PoolStats `json:"write"`
}

// New opens the snapshot database, creating the file when needed, and applies
// pending migrations.
func New(config Config, logger *logging.Logger) (*Database, error) {
	existed := checkDatabaseExists(config.Path)
	dsn := buildDSN(config)

	logger.Database("Opening snapshot database", "path", config.Path, "exists", existed)

	readDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(config.MaxOpenConns)
	readDB.SetMaxIdleConns(config.MaxIdleConns)
	readDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	readDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	writeDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		readDB.Close()
		return nil, fmt.Errorf("failed to open write database: %w", err)
	}
	// A single writer serializes snapshot upserts.
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	writeDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	d := &Database{readDB: readDB, writeDB: writeDB, config: config, logger: logger}

	ctx := context.Background()
	if err := d.verify(ctx); err != nil {
		d.closeAll()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := d.migrate(ctx); err != nil {
		d.closeAll()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	logger.Database("Snapshot database ready", "path", config.Path, "existed", existed, "wal_mode", config.EnableWAL)
	return d, nil
}

// buildDSN constructs the modernc sqlite DSN. Pragmas are applied to every
// connection the driver opens.
func buildDSN(config Config) string {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", config.Path, config.BusyTimeoutMs)
	if config.EnableWAL {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	if config.EnableForeignKeys {
		dsn += "&_pragma=foreign_keys(1)"
	}
	return dsn + "&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)"
}

// verify pings both pools and checks that the journal mode took effect.
func (d *Database) verify(ctx context.Context) error {
	if err := d.ping(ctx); err != nil {
		return err
	}
	if !d.config.EnableWAL {
		return nil
	}

	var mode string
	if err := d.writeDB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("read journal mode: %w", err)
	}
	if mode != "wal" {
		d.logger.Warn("WAL mode not enabled", "journal_mode", mode)
	}
	return nil
}

func (d *Database) ping(ctx context.Context) error {
	if err := d.readDB.PingContext(ctx); err != nil {
		return fmt.Errorf("read database ping failed: %w", err)
	}
	if err := d.writeDB.PingContext(ctx); err != nil {
		return fmt.Errorf("write database ping failed: %w", err)
	}
	return nil
}

// ReadDB returns the read database connection
func (d *Database) ReadDB() *sql.DB {
	return d.readDB
}

// WriteDB returns the write database connection
func (d *Database) WriteDB() *sql.DB {
	return d.writeDB
}

// Close checkpoints the WAL and closes both pools.
func (d *Database) Close() error {
	d.logger.Database("Closing snapshot database")

	if d.config.EnableWAL {
		if _, err := d.writeDB.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
			d.logger.Warn("failed to checkpoint WAL", "error", err)
		}
	}
	return d.closeAll()
}

func (d *Database) closeAll() error {
	var errs []error
	if err := d.readDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("read connection: %w", err))
	}
	if err := d.writeDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("write connection: %w", err))
	}
	return errors.Join(errs...)
}

// Health pings both pools and reports their statistics.
func (d *Database) Health(ctx context.Context) (*HealthReport, error) {
	if err := d.ping(ctx); err != nil {
		return nil, err
	}
	return &HealthReport{
		Path:  d.config.Path,
		Read:  poolStats(d.readDB.Stats(), d.config.MaxOpenConns),
		Write: poolStats(d.writeDB.Stats(), 1),
	}, nil
}

func poolStats(s sql.DBStats, maxOpen int) PoolStats {
	return PoolStats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		WaitCount:       s.WaitCount,
		WaitDuration:    s.WaitDuration.String(),
		MaxOpenConns:    maxOpen,
	}
}

// WithTx executes fn within a transaction on the write connection.
func (d *Database) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			d.logger.Error("Failed to rollback transaction", "error", rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
