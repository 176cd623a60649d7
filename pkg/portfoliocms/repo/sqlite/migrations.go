package sqlite

import (
	"context"
	"fmt"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "content_fields",
		sql: `
CREATE TABLE IF NOT EXISTS content_fields (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	section       TEXT NOT NULL,
	field_name    TEXT NOT NULL,
	field_value   TEXT NOT NULL DEFAULT '',
	field_type    TEXT NOT NULL DEFAULT 'text',
	display_order INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	UNIQUE (section, field_name)
);`,
	},
	{
		version: 2,
		name:    "content_versions",
		sql: `
CREATE TABLE IF NOT EXISTS content_versions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	version_name     TEXT,
	content_snapshot TEXT NOT NULL,
	is_active        INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS content_versions_created_at_idx ON content_versions (created_at DESC, id DESC);
CREATE UNIQUE INDEX IF NOT EXISTS content_versions_single_active_idx ON content_versions (is_active) WHERE is_active = 1;`,
	},
	{
		version: 3,
		name:    "media",
		sql: `
CREATE TABLE IF NOT EXISTS media (
	id            TEXT PRIMARY KEY,
	file_name     TEXT NOT NULL,
	original_name TEXT NOT NULL DEFAULT '',
	mime_type     TEXT NOT NULL,
	size          INTEGER NOT NULL,
	storage_key   TEXT NOT NULL,
	thumbnail_key TEXT NOT NULL DEFAULT '',
	url           TEXT NOT NULL,
	thumbnail_url TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);`,
	},
}

// Migrate applies pending migrations, each in its own transaction.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.root.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (
	version     INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	applied_at  TEXT NOT NULL
);`); err != nil {
		return fmt.Errorf("ensure schema_version table: %w", err)
	}

	for _, m := range migrations {
		applied, err := r.migrationApplied(ctx, m.version)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if applied {
			continue
		}
		if err := r.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func (r *Repository) migrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	if err := r.root.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM schema_version WHERE version = ?",
		version,
	).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) applyMigration(ctx context.Context, m migration) error {
	tx, err := r.root.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, datetime('now'))",
		m.version, m.name,
	); err != nil {
		return err
	}
	return tx.Commit()
}
