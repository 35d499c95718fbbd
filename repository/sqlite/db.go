package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nijaru/swing-analysis/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    video_url TEXT NOT NULL,
    perspective TEXT,
    player_height_cm REAL,
    club_length_cm REAL,
    analyzer TEXT NOT NULL,
    response TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_video_url ON analyses(video_url);
`

type DBConfig struct {
	MaxRetries         int
	RetryDelay         time.Duration
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

func DefaultDBConfig() DBConfig {
	return DBConfig{
		MaxRetries:         3,
		RetryDelay:         100 * time.Millisecond,
		MaxConnections:     10,
		MaxIdleConnections: 5,
		ConnMaxLifetime:    time.Hour,
	}
}

// DB is an open analysis database with its prepared statements.
type DB struct {
	*sql.DB
	config     DBConfig
	statements *PreparedStatements
}

// Open creates the database file and schema if needed and prepares the
// statements used by Repository.
func Open(ctx context.Context, dbPath string, config DBConfig) (*DB, error) {
	const op = "sqlite.Open"

	sqlDB, err := InitDB(dbPath)
	if err != nil {
		return nil, err
	}
	ConfigureDB(sqlDB, config)

	stmts := &PreparedStatements{}
	if err := stmts.Prepare(ctx, sqlDB); err != nil {
		stmts.Close()
		sqlDB.Close()
		return nil, errors.Internal(op, err, "failed to prepare statements")
	}

	return &DB{DB: sqlDB, config: config, statements: stmts}, nil
}

func (db *DB) Close() error {
	stmtErr := db.statements.Close()
	if err := db.DB.Close(); err != nil {
		return err
	}
	return stmtErr
}

func ConfigureDB(db *sql.DB, config DBConfig) {
	db.SetMaxOpenConns(config.MaxConnections)
	db.SetMaxIdleConns(config.MaxIdleConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
}

func InitDB(dbPath string) (*sql.DB, error) {
	const op = "sqlite.InitDB"

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Internal(op, err, "failed to create database directory")
	}

	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, errors.Internal(op, err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Internal(op, err, "failed to connect to database")
	}

	if err := execSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// dsn carries the pragmas as connection parameters, which the driver applies
// to each new connection in the pool.
func dsn(dbPath string) string {
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	return dbPath + "?" + params.Encode()
}

func execSchema(db *sql.DB) error {
	const op = "sqlite.execSchema"

	statements := strings.Split(schema, ";")

	tx, err := db.Begin()
	if err != nil {
		return errors.Internal(op, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := tx.Exec(stmt); err != nil {
			return errors.Internal(
				op,
				err,
				fmt.Sprintf("failed to execute schema statement: %s", stmt),
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Internal(op, err, "failed to commit schema transaction")
	}

	return nil
}
