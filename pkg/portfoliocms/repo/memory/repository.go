package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

type fieldKey struct {
	section   portfoliocms.Section
	fieldName string
}

type txKey struct{}

// Repository implements portfoliocms.Repository using in-memory storage
type Repository struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	fields        map[fieldKey]*portfoliocms.ContentField
	nextFieldID   int64
	versions      map[int64]*portfoliocms.Version
	nextVersionID int64
	media         map[uuid.UUID]*portfoliocms.Media
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		fields:   make(map[fieldKey]*portfoliocms.ContentField),
		versions: make(map[int64]*portfoliocms.Version),
		media:    make(map[uuid.UUID]*portfoliocms.Media),
	}
}

// Content field operations

func (r *Repository) ListFields(ctx context.Context, section portfoliocms.Section) ([]*portfoliocms.ContentField, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*portfoliocms.ContentField
	for k, f := range r.fields {
		if k.section == section {
			fieldCopy := *f
			result = append(result, &fieldCopy)
		}
	}
	sortFields(result)
	return result, nil
}

func (r *Repository) ListAllFields(ctx context.Context) ([]*portfoliocms.ContentField, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*portfoliocms.ContentField, 0, len(r.fields))
	for _, f := range r.fields {
		fieldCopy := *f
		result = append(result, &fieldCopy)
	}
	sortFields(result)
	return result, nil
}

func (r *Repository) GetField(ctx context.Context, section portfoliocms.Section, fieldName string) (*portfoliocms.ContentField, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, exists := r.fields[fieldKey{section, fieldName}]
	if !exists {
		return nil, portfoliocms.ErrFieldNotFound
	}
	fieldCopy := *f
	return &fieldCopy, nil
}

func (r *Repository) CreateField(ctx context.Context, field *portfoliocms.ContentField) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fieldKey{field.Section, field.FieldName}
	if _, exists := r.fields[key]; exists {
		return portfoliocms.ErrConflict
	}
	r.nextFieldID++
	field.ID = r.nextFieldID

	fieldCopy := *field
	r.fields[key] = &fieldCopy
	return nil
}

func (r *Repository) UpsertField(ctx context.Context, field *portfoliocms.ContentField) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fieldKey{field.Section, field.FieldName}
	if existing, exists := r.fields[key]; exists {
		field.ID = existing.ID
		field.CreatedAt = existing.CreatedAt
	} else {
		r.nextFieldID++
		field.ID = r.nextFieldID
	}

	fieldCopy := *field
	r.fields[key] = &fieldCopy
	return nil
}

func (r *Repository) DeleteField(ctx context.Context, section portfoliocms.Section, fieldName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fieldKey{section, fieldName}
	if _, exists := r.fields[key]; !exists {
		return portfoliocms.ErrFieldNotFound
	}
	delete(r.fields, key)
	return nil
}

func (r *Repository) DeleteAllFields(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fields = make(map[fieldKey]*portfoliocms.ContentField)
	return nil
}

// Version operations

func (r *Repository) CreateVersion(ctx context.Context, version *portfoliocms.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextVersionID++
	version.ID = r.nextVersionID
	versionCopy := *version
	r.versions[version.ID] = &versionCopy
	return nil
}

func (r *Repository) GetVersion(ctx context.Context, id int64) (*portfoliocms.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, exists := r.versions[id]
	if !exists {
		return nil, portfoliocms.ErrVersionNotFound
	}
	versionCopy := *v
	return &versionCopy, nil
}

func (r *Repository) ListVersions(ctx context.Context, limit int) ([]*portfoliocms.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := r.sortedVersions()
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *Repository) GetActiveVersion(ctx context.Context) (*portfoliocms.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.sortedVersions() {
		if v.IsActive {
			return v, nil
		}
	}
	return nil, portfoliocms.ErrVersionNotFound
}

func (r *Repository) FindLatestVersionByPrefix(ctx context.Context, prefix string) (*portfoliocms.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.sortedVersions() {
		if strings.HasPrefix(v.Name, prefix) {
			return v, nil
		}
	}
	return nil, portfoliocms.ErrVersionNotFound
}

func (r *Repository) DeactivateVersions(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range r.versions {
		v.IsActive = false
	}
	return nil
}

func (r *Repository) ActivateVersion(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.versions[id]; !exists {
		return portfoliocms.ErrVersionNotFound
	}
	for vid, v := range r.versions {
		v.IsActive = vid == id
	}
	return nil
}

func (r *Repository) DeleteVersion(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.versions[id]; !exists {
		return portfoliocms.ErrVersionNotFound
	}
	delete(r.versions, id)
	return nil
}

func (r *Repository) PruneVersions(ctx context.Context, keep int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := r.sortedVersions()
	if len(sorted) <= keep {
		return 0, nil
	}
	for _, v := range sorted[keep:] {
		delete(r.versions, v.ID)
	}
	return len(sorted) - keep, nil
}

// sortedVersions returns copies newest first. Caller holds mu.
func (r *Repository) sortedVersions() []*portfoliocms.Version {
	result := make([]*portfoliocms.Version, 0, len(r.versions))
	for _, v := range r.versions {
		versionCopy := *v
		result = append(result, &versionCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

// Media operations

func (r *Repository) CreateMedia(ctx context.Context, media *portfoliocms.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.media[media.ID]; exists {
		return portfoliocms.ErrConflict
	}
	mediaCopy := *media
	r.media[media.ID] = &mediaCopy
	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id uuid.UUID) (*portfoliocms.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.media[id]
	if !exists {
		return nil, portfoliocms.ErrMediaNotFound
	}
	mediaCopy := *m
	return &mediaCopy, nil
}

func (r *Repository) ListMedia(ctx context.Context) ([]*portfoliocms.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*portfoliocms.Media, 0, len(r.media))
	for _, m := range r.media {
		mediaCopy := *m
		result = append(result, &mediaCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.media[id]; !exists {
		return portfoliocms.ErrMediaNotFound
	}
	delete(r.media, id)
	return nil
}

// Transact serializes fn against other transactions and rolls every map
// back to its prior state when fn fails. Nested calls join the outer unit.
// Writes made outside fn while it runs are reverted by that rollback too, so
// the memory repository is not suitable for concurrent editors.
func (r *Repository) Transact(ctx context.Context, fn func(ctx context.Context, tx portfoliocms.Repository) error) error {
	if owner, ok := ctx.Value(txKey{}).(*Repository); ok && owner == r {
		return fn(ctx, r)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	saved := r.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, r), r); err != nil {
		r.rollback(saved)
		return err
	}
	return nil
}

type state struct {
	fields        map[fieldKey]*portfoliocms.ContentField
	nextFieldID   int64
	versions      map[int64]*portfoliocms.Version
	nextVersionID int64
	media         map[uuid.UUID]*portfoliocms.Media
}

func (r *Repository) snapshot() state {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := state{
		fields:        make(map[fieldKey]*portfoliocms.ContentField, len(r.fields)),
		nextFieldID:   r.nextFieldID,
		versions:      make(map[int64]*portfoliocms.Version, len(r.versions)),
		nextVersionID: r.nextVersionID,
		media:         make(map[uuid.UUID]*portfoliocms.Media, len(r.media)),
	}
	for k, f := range r.fields {
		fieldCopy := *f
		s.fields[k] = &fieldCopy
	}
	for k, v := range r.versions {
		versionCopy := *v
		s.versions[k] = &versionCopy
	}
	for k, m := range r.media {
		mediaCopy := *m
		s.media[k] = &mediaCopy
	}
	return s
}

func (r *Repository) rollback(s state) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fields = s.fields
	r.nextFieldID = s.nextFieldID
	r.versions = s.versions
	r.nextVersionID = s.nextVersionID
	r.media = s.media
}

func sortFields(fields []*portfoliocms.ContentField) {
	rank := make(map[portfoliocms.Section]int, len(portfoliocms.Sections))
	for i, s := range portfoliocms.Sections {
		rank[s] = i
	}
	sort.Slice(fields, func(i, j int) bool {
		a, b := fields[i], fields[j]
		if a.Section != b.Section {
			return rank[a.Section] < rank[b.Section]
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.FieldName < b.FieldName
	})
}

var _ portfoliocms.Repository = (*Repository)(nil)
