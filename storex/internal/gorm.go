// Package internal contains the GORM, registry and search transport
// implementations behind storex.
package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go.eggybyte.com/egg/core/log"
)

// SlowQueryThreshold marks queries logged at debug level even without rows.
const SlowQueryThreshold = 100 * time.Millisecond

// GORMOptions configures OpenGORM.
type GORMOptions struct {
	DSN             string
	Driver          string // mysql, postgres or sqlite
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	Logger          log.Logger
}

// OpenGORM opens a database and applies the pool settings.
func OpenGORM(opts GORMOptions) (*gorm.DB, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("DSN is required")
	}
	dialector, err := Dialector(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	var gormLogger logger.Interface = logger.Default.LogMode(logger.Silent)
	if opts.Logger != nil {
		gormLogger = &gormLogAdapter{logger: opts.Logger}
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return db, nil
}

// Dialector returns the GORM dialector for driver.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %q", driver)
	}
}

// gormLogAdapter routes GORM logging into core/log.
type gormLogAdapter struct {
	logger log.Logger
}

func (l *gormLogAdapter) LogMode(logger.LogLevel) logger.Interface {
	return l
}

func (l *gormLogAdapter) Info(_ context.Context, msg string, data ...any) {
	l.logger.Info(fmt.Sprintf(msg, data...))
}

func (l *gormLogAdapter) Warn(_ context.Context, msg string, data ...any) {
	l.logger.Warn(fmt.Sprintf(msg, data...))
}

func (l *gormLogAdapter) Error(_ context.Context, msg string, data ...any) {
	l.logger.Error(nil, fmt.Sprintf(msg, data...))
}

func (l *gormLogAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && IsConnectionError(err):
		l.logger.Error(err, "database query failed", log.Str("error_type", "connection_error"))
	case err != nil:
		l.logger.Debug("database query completed with error", log.Str("error", err.Error()))
	case elapsed > SlowQueryThreshold:
		sql, rows := fc()
		l.logger.Debug("database query",
			log.Str("sql", sql),
			log.Int("rows", int(rows)),
			log.Dur("duration", elapsed))
	}
}

var businessErrors = []string{
	"duplicate key",
	"unique constraint",
	"foreign key constraint",
	"check constraint",
	"not null constraint",
}

var connectionErrors = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"network is unreachable",
	"no such host",
	"connection pool exhausted",
	"broken pipe",
	"EOF",
}

// IsConnectionError reports whether err looks like a transport failure rather
// than a query outcome. Unknown errors count as connection errors.
func IsConnectionError(err error) bool {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	msg := err.Error()
	for _, s := range connectionErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	for _, s := range businessErrors {
		if strings.Contains(msg, s) {
			return false
		}
	}
	return true
}
