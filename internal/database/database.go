package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"

	"siteadmin/internal/config"
	"siteadmin/internal/database/migration"
)

const (
	applicationName = "siteadmin"
	pingTimeout     = 5 * time.Second
)

// openDB is swapped in tests to hand back a sqlmock connection.
var openDB = sql.Open

// NewPostgres connects the content store: it opens a traced pgx pool, waits
// for the server to answer and makes sure the nodes and admins tables exist.
// The returned handle is ready for the node and admin repositories.
func NewPostgres(ctx context.Context, c config.DatabaseConfig, log *zap.Logger) (*sql.DB, error) {
	dsn, err := postgresURL(c)
	if err != nil {
		return nil, err
	}

	driverName, err := otelsql.Register("pgx",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, fmt.Errorf("register traced driver: %w", err)
	}

	db, err := openDB(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open content store: %w", err)
	}
	tunePool(db, c)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reach content store: %w", err)
	}

	if err := migration.EnsureMigrated(ctx, db, log, c.Host); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare content schema: %w", err)
	}

	log.Info("content_store_ready",
		zap.String("component", "database"),
		zap.String("db_host", c.Host),
		zap.String("db_name", c.Name),
		zap.Int("max_open_conns", c.MaxOpenConns),
	)
	return db, nil
}

// postgresURL renders the connection settings as a postgres:// URL tagged
// with the application name, so sessions show up as siteadmin in
// pg_stat_activity.
func postgresURL(c config.DatabaseConfig) (string, error) {
	var missing []string
	for _, f := range []struct{ env, value string }{
		{"DB_HOST", c.Host}, {"DB_PORT", c.Port}, {"DB_USER", c.User}, {"DB_NAME", c.Name},
	} {
		if f.value == "" {
			missing = append(missing, f.env)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("postgres driver needs %s", strings.Join(missing, ", "))
	}

	u := &url.URL{Scheme: "postgres", Host: c.Host + ":" + c.Port, Path: "/" + c.Name, User: url.User(c.User)}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	q := url.Values{"application_name": {applicationName}}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func tunePool(db *sql.DB, c config.DatabaseConfig) {
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
	}
}
