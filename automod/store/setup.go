package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Picks a gorm dialector for a database URL. Returns whether it is sqlite, which only tolerates a single writer.
func dialectorFor(dburl string) (gorm.Dialector, bool, error) {
	switch {
	case strings.HasPrefix(dburl, "sqlite://"):
		path := strings.TrimPrefix(dburl, "sqlite://")
		if !strings.Contains(path, ":memory:") {
			// first run: the data directory may not exist yet
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, false, err
			}
		}
		return sqlite.Open(path), true, nil
	case strings.HasPrefix(dburl, "postgres://"), strings.HasPrefix(dburl, "postgresql://"):
		return postgres.Open(dburl), false, nil
	case strings.HasPrefix(dburl, "postgres="):
		return postgres.Open(strings.TrimPrefix(dburl, "postgres=")), false, nil
	}
	return nil, false, fmt.Errorf("unsupported database URL scheme: %q", strings.SplitN(dburl, ":", 2)[0])
}

// Opens a database from a URL-ish string: "sqlite://path/to/file.db", "sqlite://:memory:", or a postgres URL / "postgres=<dsn>".
// Queries are logged through slog and traced with OpenTelemetry.
func SetupDatabase(dburl string, maxConnections int) (*gorm.DB, error) {
	dial, isSqlite, err := dialectorFor(dburl)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dial, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 slogGorm.New(),
	})
	if err != nil {
		return nil, err
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, err
	}
	conns := max(maxConnections, 1)
	if isSqlite {
		conns = 1
		for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA synchronous=normal;", "PRAGMA busy_timeout=5000;"} {
			if err := db.Exec(pragma).Error; err != nil {
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
	}
	sqldb.SetMaxOpenConns(conns)
	sqldb.SetMaxIdleConns(max(conns/2, 1))
	sqldb.SetConnMaxIdleTime(time.Hour)

	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, err
	}
	return db, nil
}
