package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoma-opportunity/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type txKey struct{}

// Client owns the connection pool and scopes repository calls to the
// transaction carried by the context, if any.
type Client struct {
	db *gorm.DB
}

// Open connects to Postgres and verifies the connection.
func Open(cfg *config.Config, log *logrus.Entry) (*Client, error) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  parseLogLevel(cfg.PostgresLogLevel),
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get postgres pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.PostgresMaxConns)
	sqlDB.SetMaxIdleConns(cfg.PostgresIdleConns)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Client{db: db}, nil
}

// NewClient wraps an existing gorm handle.
func NewClient(db *gorm.DB) *Client {
	return &Client{db: db}
}

// Migrate creates or alters every table owned by this service.
func (c *Client) Migrate() error {
	return c.db.AutoMigrate(
		&organizationRow{},
		&organizationAdminRow{},
		&userRow{},
		&opportunityRow{},
		&opportunityCategoryRow{},
		&opportunityCountryRow{},
		&opportunityLanguageRow{},
		&opportunitySkillRow{},
		&opportunityVerificationTypeRow{},
		&myOpportunityRow{},
	)
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithinTransaction runs fn in a transaction. Nested calls join the
// enclosing transaction.
func (c *Client) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (c *Client) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return c.db.WithContext(ctx)
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	}
	return gormlogger.Warn
}
