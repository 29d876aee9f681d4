package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var ErrUnsupportedScheme = errors.New("unsupported database url scheme")

type target struct {
	dialect    Dialect
	driver     string
	dsn        string
	singleConn bool
}

// resolve maps a connection URL to a database/sql driver and DSN. The scheme
// may carry a "+driver" suffix in the SQLAlchemy style (mysql+pymysql://);
// the suffix only matters for postgres, where "+pq" selects lib/pq instead of
// pgx.
func resolve(raw string) (target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return target{}, fmt.Errorf("database url is required")
	}
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return target{}, fmt.Errorf("database url %q has no scheme", redact(raw))
	}
	base, variant, _ := strings.Cut(strings.ToLower(scheme), "+")

	switch base {
	case "mysql", "mariadb":
		dsn, err := mysqlDSN(rest)
		if err != nil {
			return target{}, err
		}
		return target{dialect: DialectMySQL, driver: "mysql", dsn: dsn}, nil
	case "postgres", "postgresql":
		driver := "pgx"
		if variant == "pq" || variant == "libpq" {
			driver = "postgres"
		}
		return target{dialect: DialectPostgreSQL, driver: driver, dsn: "postgres://" + rest}, nil
	case "sqlite", "sqlite3":
		path := filePath(rest)
		if path == "" {
			path = ":memory:"
		}
		return target{dialect: DialectSQLite, driver: "sqlite3", dsn: path, singleConn: true}, nil
	case "duckdb":
		path := filePath(rest)
		if path == ":memory:" {
			path = ""
		}
		return target{dialect: DialectDuckDB, driver: "duckdb", dsn: path}, nil
	default:
		return target{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

func mysqlDSN(rest string) (string, error) {
	parsed, err := url.Parse("mysql://" + rest)
	if err != nil {
		return "", fmt.Errorf("parse mysql url: %w", err)
	}
	cfg := mysql.NewConfig()
	if parsed.User != nil {
		cfg.User = parsed.User.Username()
		cfg.Passwd, _ = parsed.User.Password()
	}
	host := parsed.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	port := parsed.Port()
	if port == "" {
		port = "3306"
	}
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = strings.TrimPrefix(parsed.Path, "/")
	cfg.ParseTime = true
	for key, values := range parsed.Query() {
		if len(values) == 0 || strings.EqualFold(key, "parseTime") {
			continue
		}
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params[key] = values[len(values)-1]
	}
	return cfg.FormatDSN(), nil
}

// filePath follows the SQLAlchemy convention: sqlite:///rel.db is relative,
// sqlite:////abs.db is absolute and an empty path means in-memory.
func filePath(rest string) string {
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimPrefix(rest, "/")
}

func redact(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.User == nil {
		return raw
	}
	return parsed.Redacted()
}
