package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
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
	id            BIGSERIAL PRIMARY KEY,
	section       TEXT NOT NULL,
	field_name    TEXT NOT NULL,
	field_value   TEXT NOT NULL DEFAULT '',
	field_type    TEXT NOT NULL DEFAULT 'text',
	display_order INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT content_fields_section_field_name_key UNIQUE (section, field_name)
);`,
	},
	{
		version: 2,
		name:    "content_versions",
		sql: `
CREATE TABLE IF NOT EXISTS content_versions (
	id               BIGSERIAL PRIMARY KEY,
	version_name     TEXT,
	content_snapshot JSONB NOT NULL,
	is_active        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS content_versions_created_at_idx ON content_versions (created_at DESC, id DESC);
CREATE UNIQUE INDEX IF NOT EXISTS content_versions_single_active_idx ON content_versions (is_active) WHERE is_active;`,
	},
	{
		version: 3,
		name:    "media",
		sql: `
CREATE TABLE IF NOT EXISTS media (
	id            UUID PRIMARY KEY,
	file_name     TEXT NOT NULL,
	original_name TEXT NOT NULL DEFAULT '',
	mime_type     TEXT NOT NULL,
	size          BIGINT NOT NULL,
	storage_key   TEXT NOT NULL,
	thumbnail_key TEXT NOT NULL DEFAULT '',
	url           TEXT NOT NULL,
	thumbnail_url TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
}

// Migrate applies pending migrations, each in its own transaction.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (
	version     INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`); err != nil {
		return fmt.Errorf("ensure schema_version table: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_version WHERE version = $1)`, m.version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if applied {
			continue
		}
		err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_version (version, name) VALUES ($1, $2)`, m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}
