// File: internal/persistence/migrations.go
// Project: Starwake battle core
// Description: Schema migration and teardown for battle recording tables
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-07

package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// RunMigrations executes the battle-recording schema file against db.
func (db *DB) RunMigrations(ctx context.Context, migrationsPath string) error {
	schemaFile := filepath.Join(migrationsPath, "schema.sql")
	content, err := os.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// ClearDatabase drops every battle-recording table. Intended for test
// fixtures and local soak-test resets, not production use.
func (db *DB) ClearDatabase(ctx context.Context) error {
	tables := []string{
		"battle_weapon_fires",
		"battle_destructions",
		"battle_ticks",
		"battle_summaries",
		"battles",
	}

	for _, table := range tables {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

// GetSchemaVersion returns the current schema version. Placeholder until a
// proper migration-versioning table is warranted.
func (db *DB) GetSchemaVersion(ctx context.Context) (int, error) {
	return 1, nil
}
