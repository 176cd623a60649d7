package portfoliocms

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for content, version and media persistence.
//
// Implementations return ErrFieldNotFound, ErrVersionNotFound and
// ErrMediaNotFound for missing rows and ErrConflict for unique key violations.
type Repository interface {
	// Content field operations
	ListFields(ctx context.Context, section Section) ([]*ContentField, error)
	ListAllFields(ctx context.Context) ([]*ContentField, error)
	GetField(ctx context.Context, section Section, fieldName string) (*ContentField, error)
	CreateField(ctx context.Context, field *ContentField) error
	UpsertField(ctx context.Context, field *ContentField) error
	DeleteField(ctx context.Context, section Section, fieldName string) error
	DeleteAllFields(ctx context.Context) error

	// Version operations
	CreateVersion(ctx context.Context, version *Version) error
	GetVersion(ctx context.Context, id int64) (*Version, error)
	// ListVersions returns versions newest first. limit <= 0 returns all.
	ListVersions(ctx context.Context, limit int) ([]*Version, error)
	GetActiveVersion(ctx context.Context) (*Version, error)
	// FindLatestVersionByPrefix returns the newest version whose name starts with prefix.
	FindLatestVersionByPrefix(ctx context.Context, prefix string) (*Version, error)
	DeactivateVersions(ctx context.Context) error
	// ActivateVersion marks id active and every other version inactive.
	ActivateVersion(ctx context.Context, id int64) error
	DeleteVersion(ctx context.Context, id int64) error
	// PruneVersions keeps the newest keep versions and returns how many were deleted.
	PruneVersions(ctx context.Context, keep int) (int, error)

	// Media operations
	CreateMedia(ctx context.Context, media *Media) error
	GetMedia(ctx context.Context, id uuid.UUID) (*Media, error)
	ListMedia(ctx context.Context) ([]*Media, error)
	DeleteMedia(ctx context.Context, id uuid.UUID) error

	// Transact runs fn inside a single all-or-nothing unit. The repository
	// passed to fn must be used for every call that belongs to the unit.
	Transact(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error
}

// Migrator is implemented by repositories that own a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// GetPreviewURL returns a URL the browser can load directly.
	// Backends without public URLs return an error and are streamed instead.
	GetPreviewURL(ctx context.Context, objectKey string) (string, error)

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Cache stores read models for a bounded time.
type Cache interface {
	// Get decodes the cached value into dest and reports whether it was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// DeletePrefix drops every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// EventSink defines the interface for event handling
type EventSink interface {
	// SectionUpdated is fired after a section's fields were written
	SectionUpdated(ctx context.Context, section Section, fields []*ContentField) error

	// VersionCreated is fired when a snapshot is stored
	VersionCreated(ctx context.Context, version *Version) error

	// VersionRestored is fired when content was replaced from a snapshot
	VersionRestored(ctx context.Context, version *Version) error

	// MediaUploaded is fired when an asset is stored
	MediaUploaded(ctx context.Context, media *Media) error

	// MediaDeleted is fired when an asset is removed
	MediaDeleted(ctx context.Context, mediaID uuid.UUID) error
}
