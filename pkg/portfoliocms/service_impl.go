package portfoliocms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	// AutoBackupPrefix names versions taken automatically before a section write.
	// RecoverFromError only considers versions with this prefix.
	AutoBackupPrefix = "Auto-backup"

	DefaultVersionRetention = 10
	DefaultVersionListLimit = 10
	DefaultCacheTTL         = 30 * time.Minute
	DefaultMaxUploadBytes   = 10 << 20
	DefaultThumbnailSize    = 320
	DefaultThumbnailPixels  = 40_000_000
)

const cachePrefix = "content:"

// service implements the Service and MediaService interfaces
type service struct {
	repository Repository
	blobStore  BlobStore
	cache      Cache
	eventSink  EventSink
	logger     *slog.Logger
	metrics    *serviceMetrics

	retention      int
	cacheTTL       time.Duration
	maxUploadBytes int64
	thumbnailSize  uint
	maxPixels      int
	publicBaseURL  string
	now            func() time.Time

	// revision is bumped by every write and is part of every cache key.
	revision atomic.Int64
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the storage backend used for media
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithCache sets the read model cache
func WithCache(cache Cache) Option {
	return func(s *service) {
		s.cache = cache
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithVersionRetention sets how many versions survive pruning
func WithVersionRetention(keep int) Option {
	return func(s *service) {
		if keep > 0 {
			s.retention = keep
		}
	}
}

// WithCacheTTL sets the lifetime of cached read models
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithMaxUploadBytes sets the media size ceiling
func WithMaxUploadBytes(n int64) Option {
	return func(s *service) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithThumbnailSize sets the longest edge of generated thumbnails
func WithThumbnailSize(px uint) Option {
	return func(s *service) {
		if px > 0 {
			s.thumbnailSize = px
		}
	}
}

// WithThumbnailPixelLimit caps the decoded size, in pixels, of images that
// get a thumbnail. Larger images are stored without one.
func WithThumbnailPixelLimit(pixels int) Option {
	return func(s *service) {
		if pixels > 0 {
			s.maxPixels = pixels
		}
	}
}

// WithPublicBaseURL sets the prefix of media URLs, e.g. "https://cms.example.com".
func WithPublicBaseURL(base string) Option {
	return func(s *service) {
		s.publicBaseURL = base
	}
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

func newService(options ...Option) (*service, error) {
	s := &service{
		cache:          NoopCache{},
		eventSink:      NewNoopEventSink(),
		logger:         slog.Default(),
		metrics:        defaultMetrics,
		retention:      DefaultVersionRetention,
		cacheTTL:       DefaultCacheTTL,
		maxUploadBytes: DefaultMaxUploadBytes,
		thumbnailSize:  DefaultThumbnailSize,
		maxPixels:      DefaultThumbnailPixels,
		now:            time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	return s, nil
}

// New creates a new content service instance with the given options
func New(options ...Option) (Service, error) {
	s, err := newService(options...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMediaService creates a media service. A blob store is required.
func NewMediaService(options ...Option) (MediaService, error) {
	s, err := newService(options...)
	if err != nil {
		return nil, err
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	return s, nil
}

// Content operations

func (s *service) GetSectionContent(ctx context.Context, section Section) ([]*ContentField, error) {
	if !section.IsValid() {
		return nil, notFound("get_section_content", "Section not found", ErrSectionNotFound)
	}

	key := s.cacheKey("rows", section)
	var fields []*ContentField
	if s.cacheGet(ctx, key, &fields) {
		return fields, nil
	}

	fields, err := s.repository.ListFields(ctx, section)
	if err != nil {
		return nil, wrap("get_section_content", err)
	}
	s.cacheSet(ctx, key, fields)
	return fields, nil
}

func (s *service) GetStructuredContent(ctx context.Context) (*StructuredContent, error) {
	key := s.cacheKey("structured", "")
	var tree StructuredContent
	if s.cacheGet(ctx, key, &tree) {
		return normalizeTree(&tree), nil
	}

	fields, err := s.repository.ListAllFields(ctx)
	if err != nil {
		return nil, wrap("get_structured_content", err)
	}
	built := BuildStructuredContent(fields)
	s.cacheSet(ctx, key, built)
	return built, nil
}

func (s *service) GetSection(ctx context.Context, section Section) (any, error) {
	if !section.IsValid() {
		return nil, notFound("get_section", "Section not found", ErrSectionNotFound)
	}

	key := s.cacheKey("section", section)
	dest, err := NewSectionValue(section)
	if err != nil {
		return nil, err
	}
	if s.cacheGet(ctx, key, dest) {
		var tree StructuredContent
		if err := tree.SetSection(section, dest); err == nil {
			normalizeTree(&tree)
			return tree.Section(section)
		}
	}

	fields, err := s.repository.ListFields(ctx, section)
	if err != nil {
		return nil, wrap("get_section", err)
	}
	value, err := BuildSection(section, fields)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, value)
	return value, nil
}

func (s *service) UpsertContent(ctx context.Context, req UpsertContentRequest) (*ContentField, error) {
	field, err := s.fieldFromRequest("upsert_content", req)
	if err != nil {
		return nil, err
	}

	if err := s.repository.UpsertField(ctx, field); err != nil {
		return nil, wrap("upsert_content", err)
	}
	s.invalidateSection(ctx, field.Section)

	if err := s.eventSink.SectionUpdated(ctx, field.Section, []*ContentField{field}); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "section_updated", "err", err)
	}
	return field, nil
}

func (s *service) CreateContent(ctx context.Context, req UpsertContentRequest) (*ContentField, error) {
	field, err := s.fieldFromRequest("create_content", req)
	if err != nil {
		return nil, err
	}

	if err := s.repository.CreateField(ctx, field); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, &Error{
				Kind:    KindConflict,
				Op:      "create_content",
				Message: fmt.Sprintf("Content field %s.%s already exists", field.Section, field.FieldName),
				Err:     err,
			}
		}
		return nil, wrap("create_content", err)
	}
	s.invalidateSection(ctx, field.Section)

	if err := s.eventSink.SectionUpdated(ctx, field.Section, []*ContentField{field}); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "section_updated", "err", err)
	}
	return field, nil
}

func (s *service) DeleteContent(ctx context.Context, section Section, fieldName string) error {
	if !section.IsValid() {
		return notFound("delete_content", "Section not found", ErrSectionNotFound)
	}
	if err := s.repository.DeleteField(ctx, section, fieldName); err != nil {
		if errors.Is(err, ErrFieldNotFound) {
			return notFound("delete_content", "Content field not found", err)
		}
		return wrap("delete_content", err)
	}
	s.invalidateSection(ctx, section)
	return nil
}

// UpdateSectionContent writes fields for a section. With createBackup the
// current content is snapshotted first. When any step fails the latest
// auto-backup is restored and the original error is returned.
func (s *service) UpdateSectionContent(ctx context.Context, section Section, fields []*ContentField, createBackup bool) error {
	if !section.IsValid() {
		return notFound("update_section_content", "Section not found", ErrSectionNotFound)
	}
	for i, f := range fields {
		if f == nil || f.FieldName == "" {
			return validationError("update_section_content", "Field name is required",
				FieldViolation{Field: fmt.Sprintf("fields[%d].fieldName", i), Violation: "required", Message: "fieldName is a required field"})
		}
		if f.FieldType != "" && !f.FieldType.IsValid() {
			return validationError("update_section_content", "Unknown field type "+string(f.FieldType),
				FieldViolation{Field: fmt.Sprintf("fields[%d].fieldType", i), Violation: "oneof", Message: "fieldType must be one of [text rich_text url json]"})
		}
	}

	started := time.Now()
	err := s.updateSectionContent(ctx, section, fields, createBackup)
	s.metrics.updateDuration.WithLabelValues(string(section)).Observe(time.Since(started).Seconds())
	if err != nil {
		s.metrics.sectionUpdates.WithLabelValues(string(section), "error").Inc()
		s.logger.ErrorContext(ctx, "section update failed, attempting recovery", "section", section, "err", err)

		// recovery must run even when the request context is already done
		if recErr := s.RecoverFromError(context.WithoutCancel(ctx)); recErr != nil {
			s.logger.ErrorContext(ctx, "recovery failed", "section", section, "err", recErr)
		}
		return err
	}
	s.metrics.sectionUpdates.WithLabelValues(string(section), "ok").Inc()
	return nil
}

func (s *service) updateSectionContent(ctx context.Context, section Section, fields []*ContentField, createBackup bool) error {
	now := s.now().UTC()
	if createBackup {
		name := fmt.Sprintf("%s before %s update %s", AutoBackupPrefix, section, now.Format(time.RFC3339))
		if _, err := s.CreateVersion(ctx, name, nil); err != nil {
			return err
		}
	}

	written := make([]*ContentField, 0, len(fields))
	err := s.repository.Transact(ctx, func(ctx context.Context, tx Repository) error {
		for _, f := range fields {
			field := *f
			field.Section = section
			if field.FieldType == "" {
				field.FieldType = FieldTypeFor(section, field.FieldName)
			}
			if field.DisplayOrder == 0 {
				field.DisplayOrder = DisplayOrderFor(section, field.FieldName)
			}
			field.CreatedAt = now
			field.UpdatedAt = now
			if err := tx.UpsertField(ctx, &field); err != nil {
				return fmt.Errorf("upsert %s.%s: %w", section, field.FieldName, err)
			}
			written = append(written, &field)
		}
		return nil
	})
	if err != nil {
		return wrap("update_section_content", err)
	}

	s.invalidateAll(ctx)

	if _, err := s.CleanupOldVersions(ctx, s.retention); err != nil {
		return err
	}

	if err := s.eventSink.SectionUpdated(ctx, section, written); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "section_updated", "err", err)
	}
	return nil
}

// UpdateSection validates a typed section value and stores it with a backup.
func (s *service) UpdateSection(ctx context.Context, section Section, value any) error {
	if !section.IsValid() {
		return notFound("update_section", "Section not found", ErrSectionNotFound)
	}
	if err := Validate(value); err != nil {
		return err
	}
	fields, err := SectionFields(section, value)
	if err != nil {
		return err
	}
	return s.UpdateSectionContent(ctx, section, fields, true)
}

func (s *service) fieldFromRequest(op string, req UpsertContentRequest) (*ContentField, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if !req.Section.IsValid() {
		return nil, notFound(op, "Section not found", ErrSectionNotFound)
	}

	now := s.now().UTC()
	field := &ContentField{
		Section:      req.Section,
		FieldName:    req.FieldName,
		FieldValue:   req.FieldValue,
		FieldType:    req.FieldType,
		DisplayOrder: req.DisplayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if field.FieldType == "" {
		field.FieldType = FieldTypeFor(field.Section, field.FieldName)
	}
	if field.DisplayOrder == 0 {
		field.DisplayOrder = DisplayOrderFor(field.Section, field.FieldName)
	}
	return field, nil
}

// loadStructured reads the tree straight from the repository.
func (s *service) loadStructured(ctx context.Context, repo Repository) (*StructuredContent, error) {
	fields, err := repo.ListAllFields(ctx)
	if err != nil {
		return nil, err
	}
	return BuildStructuredContent(fields), nil
}

// Cache helpers

func (s *service) cacheKey(kind string, section Section) string {
	rev := s.revision.Load()
	if section == "" {
		return fmt.Sprintf("%s%s:r%d", cachePrefix, kind, rev)
	}
	return fmt.Sprintf("%s%s:%s:r%d", cachePrefix, kind, section, rev)
}

func (s *service) cacheGet(ctx context.Context, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.WarnContext(ctx, "cache read failed", "key", key, "err", err)
		hit = false
	}
	if hit {
		s.metrics.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		s.metrics.cacheLookups.WithLabelValues("miss").Inc()
	}
	return hit
}

func (s *service) cacheSet(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", key, "err", err)
	}
}

// invalidateSection drops the three read models that include section.
func (s *service) invalidateSection(ctx context.Context, section Section) {
	s.revision.Add(1)
	for _, prefix := range []string{
		cachePrefix + "rows:" + string(section) + ":",
		cachePrefix + "section:" + string(section) + ":",
		cachePrefix + "structured:",
	} {
		if err := s.cache.DeletePrefix(ctx, prefix); err != nil {
			s.logger.WarnContext(ctx, "cache invalidation failed", "prefix", prefix, "err", err)
		}
	}
}

func (s *service) invalidateAll(ctx context.Context) {
	s.revision.Add(1)
	if err := s.cache.DeletePrefix(ctx, cachePrefix); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", "prefix", cachePrefix, "err", err)
	}
}

// normalizeTree restores the [] defaults that codecs may decode as nil.
func normalizeTree(t *StructuredContent) *StructuredContent {
	t.Brands.Logos = nonNil(t.Brands.Logos)
	t.Services.Services = nonNil(t.Services.Services)
	t.Offer.Points = nonNil(t.Offer.Points)
	t.Testimonials.Testimonials = nonNil(t.Testimonials.Testimonials)
	t.Footer.Links.normalize()
	return t
}
