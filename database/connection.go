package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kenilGamer/restodrive-dbsetup/schema"
	"github.com/kenilGamer/restodrive-dbsetup/utils"
)

const (
	// MaintenanceDatabase is where CREATE DATABASE runs.
	MaintenanceDatabase = "postgres"

	EnvDatabaseURL   = "DATABASE_URL"
	EnvAdminPassword = "DBSETUP_ADMIN_PASSWORD"
)

// ConnString builds the admin connection string for dbName. DATABASE_URL,
// when set, supplies host, credentials and options; the database part is
// always replaced with dbName. Both URL and keyword/value forms are accepted.
func ConnString(db schema.Database, dbName string) (string, error) {
	if raw := strings.TrimSpace(utils.Getenv(EnvDatabaseURL, "")); raw != "" {
		if !strings.HasPrefix(raw, "postgres://") && !strings.HasPrefix(raw, "postgresql://") {
			if !strings.Contains(raw, "=") {
				return "", fmt.Errorf("%s must be a postgres:// URL or keyword/value settings", EnvDatabaseURL)
			}
			// Later keywords win, so this overrides any dbname already present.
			return raw + " dbname=" + quoteDSNValue(dbName), nil
		}
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", EnvDatabaseURL, err)
		}
		u.Path = "/" + dbName
		u.RawPath = ""
		return u.String(), nil
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   "/" + dbName,
	}
	if password := utils.Getenv(EnvAdminPassword, ""); password != "" {
		u.User = url.UserPassword(db.AdminUser, password)
	} else {
		u.User = url.User(db.AdminUser)
	}
	return u.String(), nil
}

func quoteDSNValue(v string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

// Open returns a pool connected to dbName as the configured admin user.
// The pool is pinged before it is returned.
func Open(ctx context.Context, db schema.Database, dbName string) (*pgxpool.Pool, error) {
	connStr, err := ConnString(db, dbName)
	if err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection settings: %w", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database %s: %w", dbName, err)
	}

	return pool, nil
}
