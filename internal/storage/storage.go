// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package storage provides the durable key-value capability the session layer
// persists its bearer token in. Backends: in-memory, a YAML file in the user
// config directory, a SQL table via bun (sqlite, postgres, mysql) and redis.
package storage // import "github.com/toeirei/usermgr/internal/storage"

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a small string key-value store. Delete of a missing key is not an
// error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the backend selected by typ. An empty dsn picks the backend's
// default location where one exists.
func Open(ctx context.Context, typ, dsn string) (Store, error) {
	switch typ {
	case "memory":
		return NewMemoryStore(), nil
	case "", "file":
		if dsn == "" {
			p, err := DefaultFilePath()
			if err != nil {
				return nil, err
			}
			dsn = p
		}
		return NewFileStore(dsn)
	case "sqlite", "postgres", "mysql":
		if dsn == "" {
			if typ != "sqlite" {
				return nil, fmt.Errorf("storage: %s requires a dsn", typ)
			}
			dir, err := configDir()
			if err != nil {
				return nil, err
			}
			dsn = filepath.Join(dir, "session.db")
		}
		return NewSQLStore(ctx, typ, dsn)
	case "redis":
		if dsn == "" {
			dsn = "redis://localhost:6379/0"
		}
		return NewRedisStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("storage: unsupported type %q", typ)
	}
}

// DefaultFilePath is where the file backend keeps its data when no dsn is set.
func DefaultFilePath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.yaml"), nil
}

func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, "usermgr"), nil
}
