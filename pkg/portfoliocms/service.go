package portfoliocms

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service defines the homepage content and versioning operations.
type Service interface {
	// Content operations
	GetSectionContent(ctx context.Context, section Section) ([]*ContentField, error)
	GetStructuredContent(ctx context.Context) (*StructuredContent, error)
	GetSection(ctx context.Context, section Section) (any, error)
	UpsertContent(ctx context.Context, req UpsertContentRequest) (*ContentField, error)
	CreateContent(ctx context.Context, req UpsertContentRequest) (*ContentField, error)
	DeleteContent(ctx context.Context, section Section, fieldName string) error
	UpdateSectionContent(ctx context.Context, section Section, fields []*ContentField, createBackup bool) error
	UpdateSection(ctx context.Context, section Section, value any) error

	// Version operations
	CreateVersion(ctx context.Context, name string, snapshot *StructuredContent) (*Version, error)
	RestoreVersion(ctx context.Context, id int64) error
	CleanupOldVersions(ctx context.Context, keep int) (int, error)
	RecoverFromError(ctx context.Context) error
	CreateEmergencyBackup(ctx context.Context) (*Version, error)
	ListVersions(ctx context.Context, limit int) ([]*Version, error)
	GetVersion(ctx context.Context, id int64) (*Version, error)
	GetActiveVersion(ctx context.Context) (*Version, error)
	DeleteVersion(ctx context.Context, id int64) error
	DiffVersion(ctx context.Context, id int64) (*VersionDiff, error)

	// List operations
	AddLogo(ctx context.Context, logo Logo) (*Logo, error)
	RemoveLogo(ctx context.Context, id int) error
	ReorderLogos(ctx context.Context, ids []int) ([]Logo, error)
	AddServiceCard(ctx context.Context, card ServiceCard) (*ServiceCard, error)
	RemoveServiceCard(ctx context.Context, id int) error
	ReorderServiceCards(ctx context.Context, ids []int) ([]ServiceCard, error)
	AddOfferPoint(ctx context.Context, point OfferPoint) (*OfferPoint, error)
	RemoveOfferPoint(ctx context.Context, id int) error
	ReorderOfferPoints(ctx context.Context, ids []int) ([]OfferPoint, error)
	AddTestimonial(ctx context.Context, t Testimonial) (*Testimonial, error)
	RemoveTestimonial(ctx context.Context, id int) error
	ReorderTestimonials(ctx context.Context, ids []int) ([]Testimonial, error)
}

// MediaService manages uploaded homepage assets.
type MediaService interface {
	UploadMedia(ctx context.Context, req UploadMediaRequest) (*Media, error)
	ListMedia(ctx context.Context) ([]*Media, error)
	GetMedia(ctx context.Context, id uuid.UUID) (*Media, error)
	DeleteMedia(ctx context.Context, id uuid.UUID) error
	// OpenMedia returns the stored blob for a storage key.
	OpenMedia(ctx context.Context, key string) (io.ReadCloser, *ObjectMeta, error)
	// MediaURL returns a direct URL for key when the blob store can serve one.
	MediaURL(ctx context.Context, key string) (string, error)
}

// UpsertContentRequest contains parameters for writing a single field
type UpsertContentRequest struct {
	Section      Section   `json:"section" validate:"required"`
	FieldName    string    `json:"fieldName" validate:"required,max=100"`
	FieldValue   string    `json:"fieldValue"`
	FieldType    FieldType `json:"fieldType" validate:"omitempty,oneof=text rich_text url json"`
	DisplayOrder int       `json:"displayOrder" validate:"gte=0"`
}

// UploadMediaRequest contains parameters for storing an asset
type UploadMediaRequest struct {
	FileName string
	Size     int64
	Reader   io.Reader
}

// VersionDiff is a line diff between a snapshot and the live content.
type VersionDiff struct {
	VersionID int64  `json:"versionId"`
	Changed   bool   `json:"changed"`
	Unified   string `json:"diff"`
}
