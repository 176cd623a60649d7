package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"busy_timeout(5000)",
	"cache_size(-64000)",
}

// DBTX is satisfied by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository implements portfoliocms.Repository on SQLite
type Repository struct {
	db   DBTX
	root *sql.DB
	inTx bool
}

// Open opens (creating if needed) the database file at path with the
// pragmas applied to every pooled connection.
func Open(path string) (*sql.DB, error) {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")

	database, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	database.SetMaxOpenConns(10)
	database.SetMaxIdleConns(5)
	database.SetConnMaxLifetime(0)
	database.SetConnMaxIdleTime(30 * time.Minute)

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return database, nil
}

// New creates a repository over an open database
func New(db *sql.DB) *Repository {
	return &Repository{db: db, root: db}
}

func (r *Repository) handleSQLiteError(operation string, err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", operation, portfoliocms.ErrConflict)
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("table does not exist - database migration required")
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

type scanner interface {
	Scan(dest ...any) error
}

// Content field operations

const fieldColumns = `id, section, field_name, field_value, field_type, display_order, created_at, updated_at`

const sectionRank = `CASE section
	WHEN 'hero' THEN 1 WHEN 'brands' THEN 2 WHEN 'services' THEN 3
	WHEN 'offer' THEN 4 WHEN 'testimonials' THEN 5 WHEN 'footer' THEN 6
	ELSE 7 END`

func scanField(row scanner) (*portfoliocms.ContentField, error) {
	var (
		f                    portfoliocms.ContentField
		section, fieldType   string
		createdAt, updatedAt string
	)
	err := row.Scan(&f.ID, &section, &f.FieldName, &f.FieldValue, &fieldType,
		&f.DisplayOrder, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	f.Section = portfoliocms.Section(section)
	f.FieldType = portfoliocms.FieldType(fieldType)
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if f.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repository) queryFields(ctx context.Context, op, query string, args ...any) ([]*portfoliocms.ContentField, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.handleSQLiteError(op, err)
	}
	defer rows.Close()

	var result []*portfoliocms.ContentField
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, r.handleSQLiteError(op, err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handleSQLiteError(op, err)
	}
	return result, nil
}

func (r *Repository) ListFields(ctx context.Context, section portfoliocms.Section) ([]*portfoliocms.ContentField, error) {
	query := `SELECT ` + fieldColumns + ` FROM content_fields
		WHERE section = ? ORDER BY display_order, field_name`
	return r.queryFields(ctx, "list fields", query, string(section))
}

func (r *Repository) ListAllFields(ctx context.Context) ([]*portfoliocms.ContentField, error) {
	query := `SELECT ` + fieldColumns + ` FROM content_fields
		ORDER BY ` + sectionRank + `, display_order, field_name`
	return r.queryFields(ctx, "list all fields", query)
}

func (r *Repository) GetField(ctx context.Context, section portfoliocms.Section, fieldName string) (*portfoliocms.ContentField, error) {
	query := `SELECT ` + fieldColumns + ` FROM content_fields WHERE section = ? AND field_name = ?`
	f, err := scanField(r.db.QueryRowContext(ctx, query, string(section), fieldName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, portfoliocms.ErrFieldNotFound
		}
		return nil, r.handleSQLiteError("get field", err)
	}
	return f, nil
}

func (r *Repository) CreateField(ctx context.Context, field *portfoliocms.ContentField) error {
	query := `
		INSERT INTO content_fields (section, field_name, field_value, field_type, display_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		string(field.Section), field.FieldName, field.FieldValue, string(field.FieldType),
		field.DisplayOrder, formatTime(field.CreatedAt), formatTime(field.UpdatedAt))
	if err != nil {
		return r.handleSQLiteError("create field", err)
	}
	field.ID, err = res.LastInsertId()
	return err
}

func (r *Repository) UpsertField(ctx context.Context, field *portfoliocms.ContentField) error {
	query := `
		INSERT INTO content_fields (section, field_name, field_value, field_type, display_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (section, field_name) DO UPDATE SET
			field_value = excluded.field_value,
			field_type = excluded.field_type,
			display_order = excluded.display_order,
			updated_at = excluded.updated_at
		RETURNING id, created_at`

	var createdAt string
	err := r.db.QueryRowContext(ctx, query,
		string(field.Section), field.FieldName, field.FieldValue, string(field.FieldType),
		field.DisplayOrder, formatTime(field.CreatedAt), formatTime(field.UpdatedAt)).Scan(&field.ID, &createdAt)
	if err != nil {
		return r.handleSQLiteError("upsert field", err)
	}
	field.CreatedAt, err = parseTime(createdAt)
	return err
}

func (r *Repository) DeleteField(ctx context.Context, section portfoliocms.Section, fieldName string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM content_fields WHERE section = ? AND field_name = ?`, string(section), fieldName)
	if err != nil {
		return r.handleSQLiteError("delete field", err)
	}
	return requireAffected(res, portfoliocms.ErrFieldNotFound)
}

func (r *Repository) DeleteAllFields(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM content_fields`); err != nil {
		return r.handleSQLiteError("delete all fields", err)
	}
	return nil
}

// Version operations

const versionColumns = `id, version_name, content_snapshot, is_active, created_at`

func scanVersion(row scanner) (*portfoliocms.Version, error) {
	var (
		v         portfoliocms.Version
		name      sql.NullString
		snapshot  string
		createdAt string
	)
	if err := row.Scan(&v.ID, &name, &snapshot, &v.IsActive, &createdAt); err != nil {
		return nil, err
	}
	v.Name = name.String
	if err := json.Unmarshal([]byte(snapshot), &v.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot of version %d: %w", v.ID, err)
	}
	var err error
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repository) queryVersions(ctx context.Context, op, query string, args ...any) ([]*portfoliocms.Version, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.handleSQLiteError(op, err)
	}
	defer rows.Close()

	var result []*portfoliocms.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, r.handleSQLiteError(op, err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handleSQLiteError(op, err)
	}
	return result, nil
}

func (r *Repository) getOneVersion(ctx context.Context, op, query string, args ...any) (*portfoliocms.Version, error) {
	v, err := scanVersion(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, portfoliocms.ErrVersionNotFound
		}
		return nil, r.handleSQLiteError(op, err)
	}
	return v, nil
}

func (r *Repository) CreateVersion(ctx context.Context, version *portfoliocms.Version) error {
	snapshot, err := json.Marshal(version.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	name := sql.NullString{String: version.Name, Valid: version.Name != ""}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO content_versions (version_name, content_snapshot, is_active, created_at) VALUES (?, ?, ?, ?)`,
		name, string(snapshot), version.IsActive, formatTime(version.CreatedAt))
	if err != nil {
		return r.handleSQLiteError("create version", err)
	}
	version.ID, err = res.LastInsertId()
	return err
}

func (r *Repository) GetVersion(ctx context.Context, id int64) (*portfoliocms.Version, error) {
	return r.getOneVersion(ctx, "get version", `SELECT `+versionColumns+` FROM content_versions WHERE id = ?`, id)
}

func (r *Repository) ListVersions(ctx context.Context, limit int) ([]*portfoliocms.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM content_versions ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		return r.queryVersions(ctx, "list versions", query+` LIMIT ?`, limit)
	}
	return r.queryVersions(ctx, "list versions", query)
}

func (r *Repository) GetActiveVersion(ctx context.Context) (*portfoliocms.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM content_versions
		WHERE is_active = 1 ORDER BY created_at DESC, id DESC LIMIT 1`
	return r.getOneVersion(ctx, "get active version", query)
}

func (r *Repository) FindLatestVersionByPrefix(ctx context.Context, prefix string) (*portfoliocms.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM content_versions
		WHERE substr(version_name, 1, length(?1)) = ?1 ORDER BY created_at DESC, id DESC LIMIT 1`
	return r.getOneVersion(ctx, "find version by prefix", query, prefix)
}

func (r *Repository) DeactivateVersions(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE content_versions SET is_active = 0 WHERE is_active = 1`); err != nil {
		return r.handleSQLiteError("deactivate versions", err)
	}
	return nil
}

func (r *Repository) ActivateVersion(ctx context.Context, id int64) error {
	if err := r.DeactivateVersions(ctx); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE content_versions SET is_active = 1 WHERE id = ?`, id)
	if err != nil {
		return r.handleSQLiteError("activate version", err)
	}
	return requireAffected(res, portfoliocms.ErrVersionNotFound)
}

func (r *Repository) DeleteVersion(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM content_versions WHERE id = ?`, id)
	if err != nil {
		return r.handleSQLiteError("delete version", err)
	}
	return requireAffected(res, portfoliocms.ErrVersionNotFound)
}

func (r *Repository) PruneVersions(ctx context.Context, keep int) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM content_versions WHERE id NOT IN (
			SELECT id FROM content_versions ORDER BY created_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, r.handleSQLiteError("prune versions", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Media operations

const mediaColumns = `id, file_name, original_name, mime_type, size, storage_key,
	thumbnail_key, url, thumbnail_url, created_at`

func scanMedia(row scanner) (*portfoliocms.Media, error) {
	var (
		m             portfoliocms.Media
		id, createdAt string
	)
	err := row.Scan(&id, &m.FileName, &m.OriginalName, &m.MimeType, &m.Size, &m.StorageKey,
		&m.ThumbnailKey, &m.URL, &m.ThumbnailURL, &createdAt)
	if err != nil {
		return nil, err
	}
	if m.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) CreateMedia(ctx context.Context, media *portfoliocms.Media) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO media (`+mediaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		media.ID.String(), media.FileName, media.OriginalName, media.MimeType, media.Size, media.StorageKey,
		media.ThumbnailKey, media.URL, media.ThumbnailURL, formatTime(media.CreatedAt))
	if err != nil {
		return r.handleSQLiteError("create media", err)
	}
	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id uuid.UUID) (*portfoliocms.Media, error) {
	m, err := scanMedia(r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, portfoliocms.ErrMediaNotFound
		}
		return nil, r.handleSQLiteError("get media", err)
	}
	return m, nil
}

func (r *Repository) ListMedia(ctx context.Context) ([]*portfoliocms.Media, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+mediaColumns+` FROM media ORDER BY created_at DESC`)
	if err != nil {
		return nil, r.handleSQLiteError("list media", err)
	}
	defer rows.Close()

	var result []*portfoliocms.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, r.handleSQLiteError("list media", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *Repository) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id.String())
	if err != nil {
		return r.handleSQLiteError("delete media", err)
	}
	return requireAffected(res, portfoliocms.ErrMediaNotFound)
}

// Transact runs fn in an immediate transaction. Nested calls join the
// outer transaction.
func (r *Repository) Transact(ctx context.Context, fn func(ctx context.Context, tx portfoliocms.Repository) error) error {
	if r.inTx {
		return fn(ctx, r)
	}

	tx, err := r.root.BeginTx(ctx, nil)
	if err != nil {
		return r.handleSQLiteError("begin", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &Repository{db: tx, root: r.root, inTx: true}); err != nil {
		return err
	}
	return tx.Commit()
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var _ portfoliocms.Repository = (*Repository)(nil)
