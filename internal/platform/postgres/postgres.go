package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Apurer/go-entity-processors/internal/platform/retry"
)

// PoolConfig bounds the connection pool behind the entity store.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPoolConfig suits a single processor instance.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute}
}

// Connect opens a PostgreSQL connection via GORM and verifies connectivity.
func Connect(ctx context.Context, dsn string, pool PoolConfig) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// ConnectWithRetry keeps dialing until the database answers or the retry budget is spent.
// The returned cleanup closes the pool.
func ConnectWithRetry(ctx context.Context, logger *slog.Logger, dsn string, pool PoolConfig, cfg retry.Config) (*gorm.DB, func(), error) {
	var (
		db      *gorm.DB
		attempt int
	)
	err := retry.New(cfg).ExecuteWithContext(ctx, func(ctx context.Context) error {
		attempt++
		var err error
		db, err = Connect(ctx, dsn, pool)
		if err != nil && logger != nil {
			logger.Warn("postgres connection attempt failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
		}
		return err
	})
	if err != nil {
		return nil, func() {}, fmt.Errorf("connect to postgres after %d attempts: %w", attempt, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, func() {}, err
	}
	if logger != nil {
		logger.Info("postgres connection established", slog.Int("attempts", attempt))
	}
	return db, func() { _ = sqlDB.Close() }, nil
}
