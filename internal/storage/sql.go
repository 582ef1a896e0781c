// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/toeirei/usermgr/internal/logging"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

type kvEntry struct {
	bun.BaseModel `bun:"table:usermgr_kv"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// SQLStore keeps values in a single table through bun.
type SQLStore struct {
	db *bun.DB
}

// NewSQLStore opens dsn with the driver matching dbType ("sqlite",
// "postgres" or "mysql") and creates the table when missing.
func NewSQLStore(ctx context.Context, dbType, dsn string) (*SQLStore, error) {
	driverName := dbType
	// The pgx stdlib registers driver name "pgx"; map "postgres" to that driver.
	if dbType == "postgres" {
		driverName = "pgx"
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	// Each connection to an in-memory SQLite database sees its own database.
	if dbType == "sqlite" && (dsn == ":memory:" || strings.Contains(dsn, "mode=memory")) {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	db, err := createBunDB(sqlDB, dbType)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if _, err := db.NewCreateTable().Model((*kvEntry)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: create table: %w", err)
	}
	logging.Debugf("storage: opened %s store in %s", dbType, time.Since(start))
	return &SQLStore{db: db}, nil
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and dbType.
func createBunDB(sqlDB *sql.DB, dbType string) (*bun.DB, error) {
	switch dbType {
	case "sqlite":
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New()), nil
	default:
		return nil, fmt.Errorf("storage: unsupported database type %q", dbType)
	}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	e := kvEntry{Key: key}
	err := s.db.NewSelect().Model(&e).WherePK().Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: get %q: %w", key, err)
	}
	return e.Value, nil
}

// Set replaces the row inside a transaction; delete+insert keeps the
// statement portable across the three dialects.
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	e := kvEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model(&kvEntry{Key: key}).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("storage: set %q: %w", key, err)
		}
		if _, err := tx.NewInsert().Model(&e).Exec(ctx); err != nil {
			return fmt.Errorf("storage: set %q: %w", key, err)
		}
		return nil
	})
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.NewDelete().Model(&kvEntry{Key: key}).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
