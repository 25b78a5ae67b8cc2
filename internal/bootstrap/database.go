package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/target/tempguard-api/config"
	"github.com/target/tempguard-api/internal/migrate"
)

const (
	applicationName = "tempguard-api"
	connectTimeout  = 5 * time.Second
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// postgresConnConfig builds the pgx connection config. Sessions run in UTC so
// timestamps round-trip unchanged whatever the server default is.
func postgresConnConfig(cfg config.DBConfig) (*pgx.ConnConfig, error) {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	q.Set("connect_timeout", strconv.Itoa(int(connectTimeout.Seconds())))
	u.RawQuery = q.Encode()

	cc, err := pgx.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	cc.RuntimeParams["application_name"] = applicationName
	cc.RuntimeParams["timezone"] = "UTC"
	return cc, nil
}

// ConnectDB opens a pgx-backed database/sql pool and verifies it with a ping.
func ConnectDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	cc, err := postgresConnConfig(cfg.DBConfig)
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDB(*cc)
	db.SetMaxOpenConns(max(cfg.DBConfig.MaxOpenConns, 1))
	db.SetMaxIdleConns(max(cfg.DBConfig.MaxIdleConns, 0))
	if cfg.DBConfig.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.DBConfig.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
			"max_open_conns", cfg.DBConfig.MaxOpenConns,
		)
	}
	return db, nil
}

// redisOptions accepts a redis:// URL or a bare host:port. An explicit
// password or DB in the config fills in what the URL leaves out.
func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("redis URI is required")
	}

	opt := &redis.Options{Addr: uri}
	if strings.HasPrefix(uri, "redis://") || strings.HasPrefix(uri, "rediss://") {
		parsed, err := redis.ParseURL(uri)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opt = parsed
	}
	if opt.Password == "" {
		opt.Password = cfg.Password
	}
	if opt.DB == 0 {
		opt.DB = cfg.DB
	}
	opt.ClientName = applicationName
	return opt, nil
}

// ConnectRedis connects to the Redis instance holding sessions, generations and identity events.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (*redis.Client, error) {
	opt, err := redisOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "redis connected", "addr", opt.Addr, "db", opt.DB)
	}
	return client, nil
}

// RunMigrations applies pending schema migrations and logs the versions it applied.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	applied, err := migrate.Run(ctx, db)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed", "applied", applied)
	}
	return nil
}

// PingDB adapts a database handle to a readiness probe.
func PingDB(db *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}

// PingRedis adapts a Redis client to a readiness probe.
func PingRedis(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}
