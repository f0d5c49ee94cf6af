package store

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"callrounded-manager/internal/config"
	"callrounded-manager/pkg/utils"

	"github.com/glebarez/sqlite"
	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenConfig describes how to reach the database.
type OpenConfig struct {
	URL          string
	MaxOpenConns int
	// Verbose logs every SQL statement; meant for local development.
	Verbose bool
}

// Open connects to the database named by cfg.URL, applies pool limits and pings it.
func Open(ctx context.Context, cfg OpenConfig) (*gorm.DB, error) {
	scheme, err := config.DatabaseScheme(cfg.URL)
	if err != nil {
		return nil, err
	}

	pool := utils.PoolConfig{MaxOpenConns: cfg.MaxOpenConns}
	var dialector gorm.Dialector
	switch scheme {
	case "mysql":
		dsn, err := MySQLDSN(cfg.URL)
		if err != nil {
			return nil, err
		}
		dialector = mysql.Open(dsn)
	case "postgres":
		pgCfg, err := pgxpool.ParseConfig(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("store: parse postgres url: %w", err)
		}
		if cfg.MaxOpenConns > 0 {
			pgCfg.MaxConns = int32(cfg.MaxOpenConns)
		}
		pgPool, err := pgxpool.NewWithConfig(ctx, pgCfg)
		if err != nil {
			return nil, fmt.Errorf("store: postgres pool: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pgPool)})
	case "sqlite":
		path := SQLitePath(cfg.URL)
		if path == ":memory:" {
			// every pooled connection would otherwise see its own empty database
			pool.MaxOpenConns = 1
			pool.NoExpiry = true
		}
		dialector = sqlite.Open(path)
	}

	level := gormlogger.Warn
	if cfg.Verbose {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", scheme, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := utils.ApplyPool(ctx, sqlDB, pool); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(AllModels()...)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MySQLDSN converts a mysql:// URL into a go-sql-driver DSN.
// Times are parsed into time.Time in UTC and the charset defaults to utf8mb4.
func MySQLDSN(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("store: parse mysql url: %w", err)
	}
	mc := mysqldrv.NewConfig()
	if u.User != nil {
		mc.User = u.User.Username()
		mc.Passwd, _ = u.User.Password()
	}
	mc.Net = "tcp"
	mc.Addr = u.Host
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		mc.Addr = net.JoinHostPort(u.Host, "3306")
	}
	mc.DBName = strings.TrimPrefix(u.Path, "/")
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}

	for key, vals := range u.Query() {
		if len(vals) == 0 {
			continue
		}
		switch key {
		case "ssl", "sslaccept", "tls":
			// hosted MySQL URLs carry TLS intent under several names
			mc.TLSConfig = "true"
		default:
			mc.Params[key] = vals[0]
		}
	}
	return mc.FormatDSN(), nil
}

// SQLitePath extracts the file path from a sqlite: URL.
func SQLitePath(raw string) string {
	switch {
	case strings.HasPrefix(raw, "sqlite://"):
		return strings.TrimPrefix(raw, "sqlite://")
	case strings.HasPrefix(raw, "sqlite:"):
		return strings.TrimPrefix(raw, "sqlite:")
	default:
		return raw
	}
}
