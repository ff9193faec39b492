package db

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"filmstack/internal/config"
)

// DB bundles the gorm handle with the underlying pool so callers can reach
// pool-level operations (ping, stats, close) without re-deriving it.
type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open connects to Postgres, applies the pool limits from cfg and verifies
// the connection before handing the pool back. Capital stacks and simulation
// runs are persisted through this single pool.
func Open(cfg config.DBConfig) (*DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pool, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	conn := &DB{Gorm: gdb, SQL: pool}

	// Fail at startup rather than on the first request.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Ping(ctx, conn); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return conn, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

// Ping checks the pool within the caller's deadline. The readiness probe
// leans on this so a wedged database flips /readyz instead of hanging it.
func Ping(ctx context.Context, db *DB) error {
	if db == nil || db.SQL == nil {
		return sql.ErrConnDone
	}
	return db.SQL.PingContext(ctx)
}

// Stats exposes pool counters for the readiness payload.
func Stats(db *DB) sql.DBStats {
	if db == nil || db.SQL == nil {
		return sql.DBStats{}
	}
	return db.SQL.Stats()
}

// SetTimezone pins the session timezone so waterfall period timestamps and
// run bookkeeping compare consistently regardless of the server default.
func SetTimezone(db *DB, tz string) error {
	if tz == "" {
		return nil
	}
	_, err := db.SQL.Exec("SET TIME ZONE '" + tz + "'")
	return err
}

// NowUTC is the clock for rows we timestamp ourselves (run completion,
// retention cutoffs). Everything stored is UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}
