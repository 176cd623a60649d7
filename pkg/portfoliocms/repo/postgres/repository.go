package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

// DBTX is an interface that allows us to use either a connection pool or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements portfoliocms.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// sectionRank orders rows by page position rather than alphabetically.
const sectionRank = `CASE section
	WHEN 'hero' THEN 1 WHEN 'brands' THEN 2 WHEN 'services' THEN 3
	WHEN 'offer' THEN 4 WHEN 'testimonials' THEN 5 WHEN 'footer' THEN 6
	ELSE 7 END`

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w (%s)", operation, portfoliocms.ErrConflict, pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Content field operations

const fieldColumns = `id, section, field_name, field_value, field_type, display_order, created_at, updated_at`

func scanField(row pgx.Row) (*portfoliocms.ContentField, error) {
	var f portfoliocms.ContentField
	err := row.Scan(&f.ID, &f.Section, &f.FieldName, &f.FieldValue, &f.FieldType,
		&f.DisplayOrder, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repository) queryFields(ctx context.Context, op, query string, args ...interface{}) ([]*portfoliocms.ContentField, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(op, err)
	}
	defer rows.Close()

	var result []*portfoliocms.ContentField
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, r.handlePostgresError(op, err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError(op, err)
	}
	return result, nil
}

func (r *Repository) ListFields(ctx context.Context, section portfoliocms.Section) ([]*portfoliocms.ContentField, error) {
	query := `SELECT ` + fieldColumns + ` FROM content_fields
		WHERE section = $1 ORDER BY display_order, field_name`
	return r.queryFields(ctx, "list fields", query, section)
}

func (r *Repository) ListAllFields(ctx context.Context) ([]*portfoliocms.ContentField, error) {
	query := `SELECT ` + fieldColumns + ` FROM content_fields
		ORDER BY ` + sectionRank + `, display_order, field_name`
	return r.queryFields(ctx, "list all fields", query)
}

func (r *Repository) GetField(ctx context.Context, section portfoliocms.Section, fieldName string) (*portfoliocms.ContentField, error) {
	query := `SELECT ` + fieldColumns + ` FROM content_fields WHERE section = $1 AND field_name = $2`
	f, err := scanField(r.db.QueryRow(ctx, query, section, fieldName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, portfoliocms.ErrFieldNotFound
		}
		return nil, r.handlePostgresError("get field", err)
	}
	return f, nil
}

func (r *Repository) CreateField(ctx context.Context, field *portfoliocms.ContentField) error {
	query := `
		INSERT INTO content_fields (section, field_name, field_value, field_type, display_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		field.Section, field.FieldName, field.FieldValue, field.FieldType,
		field.DisplayOrder, field.CreatedAt, field.UpdatedAt).Scan(&field.ID)
	if err != nil {
		return r.handlePostgresError("create field", err)
	}
	return nil
}

func (r *Repository) UpsertField(ctx context.Context, field *portfoliocms.ContentField) error {
	query := `
		INSERT INTO content_fields (section, field_name, field_value, field_type, display_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (section, field_name) DO UPDATE SET
			field_value = EXCLUDED.field_value,
			field_type = EXCLUDED.field_type,
			display_order = EXCLUDED.display_order,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		field.Section, field.FieldName, field.FieldValue, field.FieldType,
		field.DisplayOrder, field.CreatedAt, field.UpdatedAt).Scan(&field.ID, &field.CreatedAt)
	if err != nil {
		return r.handlePostgresError("upsert field", err)
	}
	return nil
}

func (r *Repository) DeleteField(ctx context.Context, section portfoliocms.Section, fieldName string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM content_fields WHERE section = $1 AND field_name = $2`, section, fieldName)
	if err != nil {
		return r.handlePostgresError("delete field", err)
	}
	if tag.RowsAffected() == 0 {
		return portfoliocms.ErrFieldNotFound
	}
	return nil
}

func (r *Repository) DeleteAllFields(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM content_fields`); err != nil {
		return r.handlePostgresError("delete all fields", err)
	}
	return nil
}

// Version operations

const versionColumns = `id, version_name, content_snapshot, is_active, created_at`

func scanVersion(row pgx.Row) (*portfoliocms.Version, error) {
	var (
		v        portfoliocms.Version
		name     *string
		snapshot []byte
	)
	if err := row.Scan(&v.ID, &name, &snapshot, &v.IsActive, &v.CreatedAt); err != nil {
		return nil, err
	}
	if name != nil {
		v.Name = *name
	}
	if err := json.Unmarshal(snapshot, &v.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot of version %d: %w", v.ID, err)
	}
	return &v, nil
}

func (r *Repository) queryVersions(ctx context.Context, op, query string, args ...interface{}) ([]*portfoliocms.Version, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(op, err)
	}
	defer rows.Close()

	var result []*portfoliocms.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, r.handlePostgresError(op, err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError(op, err)
	}
	return result, nil
}

func (r *Repository) getOneVersion(ctx context.Context, op, query string, args ...interface{}) (*portfoliocms.Version, error) {
	v, err := scanVersion(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, portfoliocms.ErrVersionNotFound
		}
		return nil, r.handlePostgresError(op, err)
	}
	return v, nil
}

func (r *Repository) CreateVersion(ctx context.Context, version *portfoliocms.Version) error {
	snapshot, err := json.Marshal(version.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	var name *string
	if version.Name != "" {
		name = &version.Name
	}

	query := `
		INSERT INTO content_versions (version_name, content_snapshot, is_active, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err = r.db.QueryRow(ctx, query, name, snapshot, version.IsActive, version.CreatedAt).Scan(&version.ID)
	if err != nil {
		return r.handlePostgresError("create version", err)
	}
	return nil
}

func (r *Repository) GetVersion(ctx context.Context, id int64) (*portfoliocms.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM content_versions WHERE id = $1`
	return r.getOneVersion(ctx, "get version", query, id)
}

func (r *Repository) ListVersions(ctx context.Context, limit int) ([]*portfoliocms.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM content_versions ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		return r.queryVersions(ctx, "list versions", query+` LIMIT $1`, limit)
	}
	return r.queryVersions(ctx, "list versions", query)
}

func (r *Repository) GetActiveVersion(ctx context.Context) (*portfoliocms.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM content_versions
		WHERE is_active ORDER BY created_at DESC, id DESC LIMIT 1`
	return r.getOneVersion(ctx, "get active version", query)
}

func (r *Repository) FindLatestVersionByPrefix(ctx context.Context, prefix string) (*portfoliocms.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM content_versions
		WHERE starts_with(version_name, $1) ORDER BY created_at DESC, id DESC LIMIT 1`
	return r.getOneVersion(ctx, "find version by prefix", query, prefix)
}

func (r *Repository) DeactivateVersions(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `UPDATE content_versions SET is_active = FALSE WHERE is_active`); err != nil {
		return r.handlePostgresError("deactivate versions", err)
	}
	return nil
}

func (r *Repository) ActivateVersion(ctx context.Context, id int64) error {
	if err := r.DeactivateVersions(ctx); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE content_versions SET is_active = TRUE WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("activate version", err)
	}
	if tag.RowsAffected() == 0 {
		return portfoliocms.ErrVersionNotFound
	}
	return nil
}

func (r *Repository) DeleteVersion(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM content_versions WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete version", err)
	}
	if tag.RowsAffected() == 0 {
		return portfoliocms.ErrVersionNotFound
	}
	return nil
}

func (r *Repository) PruneVersions(ctx context.Context, keep int) (int, error) {
	query := `
		DELETE FROM content_versions WHERE id NOT IN (
			SELECT id FROM content_versions ORDER BY created_at DESC, id DESC LIMIT $1
		)`
	tag, err := r.db.Exec(ctx, query, keep)
	if err != nil {
		return 0, r.handlePostgresError("prune versions", err)
	}
	return int(tag.RowsAffected()), nil
}

// Media operations

const mediaColumns = `id, file_name, original_name, mime_type, size, storage_key,
	thumbnail_key, url, thumbnail_url, created_at`

func scanMedia(row pgx.Row) (*portfoliocms.Media, error) {
	var m portfoliocms.Media
	err := row.Scan(&m.ID, &m.FileName, &m.OriginalName, &m.MimeType, &m.Size, &m.StorageKey,
		&m.ThumbnailKey, &m.URL, &m.ThumbnailURL, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) CreateMedia(ctx context.Context, media *portfoliocms.Media) error {
	query := `
		INSERT INTO media (` + mediaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Exec(ctx, query,
		media.ID, media.FileName, media.OriginalName, media.MimeType, media.Size, media.StorageKey,
		media.ThumbnailKey, media.URL, media.ThumbnailURL, media.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create media", err)
	}
	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id uuid.UUID) (*portfoliocms.Media, error) {
	m, err := scanMedia(r.db.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, portfoliocms.ErrMediaNotFound
		}
		return nil, r.handlePostgresError("get media", err)
	}
	return m, nil
}

func (r *Repository) ListMedia(ctx context.Context) ([]*portfoliocms.Media, error) {
	rows, err := r.db.Query(ctx, `SELECT `+mediaColumns+` FROM media ORDER BY created_at DESC`)
	if err != nil {
		return nil, r.handlePostgresError("list media", err)
	}
	defer rows.Close()

	var result []*portfoliocms.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, r.handlePostgresError("list media", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *Repository) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete media", err)
	}
	if tag.RowsAffected() == 0 {
		return portfoliocms.ErrMediaNotFound
	}
	return nil
}

// Transact runs fn in a database transaction. Inside an existing
// transaction pgx opens a savepoint instead.
func (r *Repository) Transact(ctx context.Context, fn func(ctx context.Context, tx portfoliocms.Repository) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{db: tx})
	})
}

var _ portfoliocms.Repository = (*Repository)(nil)
