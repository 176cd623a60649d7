package portfoliocms

import (
	"time"

	"github.com/google/uuid"
)

// Section is one named area of the homepage.
type Section string

// Homepage sections, in page order.
const (
	SectionHero         Section = "hero"
	SectionBrands       Section = "brands"
	SectionServices     Section = "services"
	SectionOffer        Section = "offer"
	SectionTestimonials Section = "testimonials"
	SectionFooter       Section = "footer"
)

// Sections lists every homepage section in page order.
var Sections = []Section{
	SectionHero,
	SectionBrands,
	SectionServices,
	SectionOffer,
	SectionTestimonials,
	SectionFooter,
}

// IsValid reports whether s names a known section.
func (s Section) IsValid() bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSection converts a raw section name, failing with ErrSectionNotFound.
func ParseSection(name string) (Section, error) {
	s := Section(name)
	if !s.IsValid() {
		return "", &Error{Kind: KindNotFound, Op: "parse_section", Message: "Section not found", Err: ErrSectionNotFound}
	}
	return s, nil
}

// FieldType describes how a field value should be interpreted.
type FieldType string

// Field type constants (typed).
const (
	FieldTypeText     FieldType = "text"
	FieldTypeRichText FieldType = "rich_text"
	FieldTypeURL      FieldType = "url"
	FieldTypeJSON     FieldType = "json"
)

// IsValid reports whether t is a known field type.
func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeText, FieldTypeRichText, FieldTypeURL, FieldTypeJSON:
		return true
	}
	return false
}

// ContentField is one (section, fieldName) row, the unit of storage.
type ContentField struct {
	ID           int64     `json:"id"`
	Section      Section   `json:"section"`
	FieldName    string    `json:"fieldName"`
	FieldValue   string    `json:"fieldValue"`
	FieldType    FieldType `json:"fieldType"`
	DisplayOrder int       `json:"displayOrder"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Version is an immutable snapshot of the whole structured content tree.
//
// At most one version is active at a time. The active version is the
// backup-of-record; its snapshot is not guaranteed to match the live fields.
type Version struct {
	ID        int64             `json:"id"`
	Name      string            `json:"versionName,omitempty"`
	Snapshot  StructuredContent `json:"contentSnapshot"`
	IsActive  bool              `json:"isActive"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Media is an uploaded homepage asset kept in a blob store.
type Media struct {
	ID           uuid.UUID `json:"id"`
	FileName     string    `json:"fileName"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	StorageKey   string    `json:"storageKey"`
	ThumbnailKey string    `json:"thumbnailKey,omitempty"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
