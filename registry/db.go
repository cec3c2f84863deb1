// Copyright (c) 2025 The Locksidian developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package registry is the storage façade: it owns the only SQL
// connection pool in the process and translates between the domain
// structures (block.Block, peer.Peer, identity.Identity) and the
// relational schema fixed by spec §6. Nothing outside this package
// talks to gorm directly.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/locksidian/locksidian-go/node"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Registry implements node.Registry, the interface the coordinator
// depends on.
var _ node.Registry = (*Registry)(nil)

// Registry wraps the node's single database connection pool and
// exposes CRUD plus the specialized queries the block/peer/identity
// packages need.
type Registry struct {
	db *gorm.DB
}

// DefaultDataDir returns the platform-specific directory Locksidian
// stores its database in: %APPDATA%/locksidian on Windows,
// $HOME/.locksidian otherwise.
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable is not set")
		}
		return filepath.Join(appData, "locksidian"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".locksidian"), nil
}

// DefaultDatabasePath returns the full path to the node's database
// file under DefaultDataDir.
func DefaultDatabasePath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "locksidian.db"), nil
}

// Open connects to (creating if necessary) the SQLite database at
// path and runs the schema migration.
func Open(path string) (*Registry, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	if err := db.AutoMigrate(&blockRow{}, &peerRow{}, &identityRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate registry schema: %w", err)
	}

	log.Infof("Registry opened at %s", path)
	return &Registry{db: db}, nil
}

// Close releases the underlying database connection.
func (r *Registry) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
