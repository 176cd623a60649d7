package portfoliocms_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
	cachememory "github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/cache/memory"
	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/repo/memory"
	memorystorage "github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/storage/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []portfoliocms.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []portfoliocms.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []portfoliocms.Option{
				portfoliocms.WithRepository(memory.New()),
			},
			expectError: false,
		},
		{
			name: "with repository and cache should succeed",
			options: []portfoliocms.Option{
				portfoliocms.WithRepository(memory.New()),
				portfoliocms.WithCache(cachememory.New(time.Minute, time.Minute)),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := portfoliocms.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestMediaServiceRequiresBlobStore(t *testing.T) {
	_, err := portfoliocms.NewMediaService(portfoliocms.WithRepository(memory.New()))
	assert.Error(t, err)

	svc, err := portfoliocms.NewMediaService(
		portfoliocms.WithRepository(memory.New()),
		portfoliocms.WithBlobStore(memorystorage.New()),
	)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func setupTestService(t *testing.T, opts ...portfoliocms.Option) portfoliocms.Service {
	t.Helper()
	options := append([]portfoliocms.Option{
		portfoliocms.WithRepository(memory.New()),
		portfoliocms.WithBlobStore(memorystorage.New()),
		portfoliocms.WithCache(portfoliocms.NoopCache{}),
	}, opts...)

	svc, err := portfoliocms.New(options...)
	require.NoError(t, err)
	require.NotNil(t, svc)
	return svc
}

func heroExample() portfoliocms.HeroContent {
	return portfoliocms.HeroContent{Title: "A", Description: "1234567890", VideoURL: ""}
}

func TestStructuredContentDefaultsWhenEmpty(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	tree, err := svc.GetStructuredContent(ctx)
	require.NoError(t, err)

	assert.Equal(t, portfoliocms.HeroContent{}, tree.Hero)
	assert.NotNil(t, tree.Brands.Logos)
	assert.Empty(t, tree.Brands.Logos)
	assert.NotNil(t, tree.Services.Services)
	assert.NotNil(t, tree.Offer.Points)
	assert.NotNil(t, tree.Testimonials.Testimonials)
	assert.NotNil(t, tree.Footer.Links.Site)
	assert.NotNil(t, tree.Footer.Links.Professional)
	assert.NotNil(t, tree.Footer.Links.Social)
}

func TestUpdateSectionRoundTrip(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	hero := heroExample()
	require.NoError(t, svc.UpdateSection(ctx, portfoliocms.SectionHero, &hero))

	got, err := svc.GetSection(ctx, portfoliocms.SectionHero)
	require.NoError(t, err)
	assert.Equal(t, hero, got)

	rows, err := svc.GetSectionContent(ctx, portfoliocms.SectionHero)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "title", rows[0].FieldName)
	assert.Equal(t, "description", rows[1].FieldName)
	assert.Equal(t, "videoUrl", rows[2].FieldName)
	assert.Equal(t, portfoliocms.FieldTypeRichText, rows[1].FieldType)

	tree, err := svc.GetStructuredContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, hero, tree.Hero)
}

func TestUpdateSectionCreatesAutoBackup(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	hero := heroExample()
	require.NoError(t, svc.UpdateSection(ctx, portfoliocms.SectionHero, &hero))

	versions, err := svc.ListVersions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Contains(t, versions[0].Name, "Auto-backup before hero update")
	assert.True(t, versions[0].IsActive)
	// the backup holds the content from before the write
	assert.Equal(t, portfoliocms.HeroContent{}, versions[0].Snapshot.Hero)
}

func TestUpdateSectionValidation(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	points := make([]portfoliocms.OfferPoint, 7)
	for i := range points {
		points[i] = portfoliocms.OfferPoint{ID: i + 1, Text: "point", Order: i + 1}
	}
	err := svc.UpdateSection(ctx, portfoliocms.SectionOffer, &portfoliocms.OfferContent{Title: "Offer", Points: points})
	require.Error(t, err)
	assert.Equal(t, portfoliocms.KindValidation, portfoliocms.KindOf(err))
	assert.Equal(t, "Maximum 6 offer points allowed", portfoliocms.MessageOf(err))
	require.NotEmpty(t, portfoliocms.FieldsOf(err))
	assert.Equal(t, "points", portfoliocms.FieldsOf(err)[0].Field)

	rows, err := svc.GetSectionContent(ctx, portfoliocms.SectionOffer)
	require.NoError(t, err)
	assert.Empty(t, rows)
	versions, err := svc.ListVersions(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestUpdateSectionUnknownSection(t *testing.T) {
	svc := setupTestService(t)

	err := svc.UpdateSection(context.Background(), portfoliocms.Section("pricing"), &portfoliocms.HeroContent{})
	assert.Equal(t, portfoliocms.KindNotFound, portfoliocms.KindOf(err))
	assert.ErrorIs(t, err, portfoliocms.ErrSectionNotFound)
}

func TestContentCRUD(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	req := portfoliocms.UpsertContentRequest{
		Section:    portfoliocms.SectionFooter,
		FieldName:  "email",
		FieldValue: "hello@example.com",
	}
	field, err := svc.CreateContent(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, portfoliocms.FieldTypeText, field.FieldType)
	assert.Equal(t, 2, field.DisplayOrder)

	_, err = svc.CreateContent(ctx, req)
	assert.Equal(t, portfoliocms.KindConflict, portfoliocms.KindOf(err))

	req.FieldValue = "studio@example.com"
	_, err = svc.UpsertContent(ctx, req)
	require.NoError(t, err)

	section, err := svc.GetSection(ctx, portfoliocms.SectionFooter)
	require.NoError(t, err)
	assert.Equal(t, "studio@example.com", section.(portfoliocms.FooterContent).Email)

	require.NoError(t, svc.DeleteContent(ctx, portfoliocms.SectionFooter, "email"))
	err = svc.DeleteContent(ctx, portfoliocms.SectionFooter, "email")
	assert.Equal(t, portfoliocms.KindNotFound, portfoliocms.KindOf(err))
}

func TestUpsertContentValidation(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertContent(ctx, portfoliocms.UpsertContentRequest{Section: portfoliocms.SectionHero})
	assert.Equal(t, portfoliocms.KindValidation, portfoliocms.KindOf(err))

	_, err = svc.UpsertContent(ctx, portfoliocms.UpsertContentRequest{
		Section:   portfoliocms.SectionHero,
		FieldName: "title",
		FieldType: "markdown",
	})
	assert.Equal(t, portfoliocms.KindValidation, portfoliocms.KindOf(err))

	_, err = svc.UpsertContent(ctx, portfoliocms.UpsertContentRequest{Section: "pricing", FieldName: "title"})
	assert.Equal(t, portfoliocms.KindNotFound, portfoliocms.KindOf(err))
}

func TestUpdateSectionContentRejectsBadRows(t *testing.T) {
	svc := setupTestService(t)

	err := svc.UpdateSectionContent(context.Background(), portfoliocms.SectionHero,
		[]*portfoliocms.ContentField{{FieldName: ""}}, true)
	assert.Equal(t, portfoliocms.KindValidation, portfoliocms.KindOf(err))
}

func TestCacheInvalidation(t *testing.T) {
	cache := cachememory.New(time.Minute, time.Minute)
	svc := setupTestService(t, portfoliocms.WithCache(cache))
	ctx := context.Background()

	_, err := svc.GetStructuredContent(ctx)
	require.NoError(t, err)
	_, err = svc.GetSection(ctx, portfoliocms.SectionHero)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	hero := heroExample()
	require.NoError(t, svc.UpdateSection(ctx, portfoliocms.SectionHero, &hero))
	assert.Equal(t, 0, cache.Len())

	got, err := svc.GetSection(ctx, portfoliocms.SectionHero)
	require.NoError(t, err)
	assert.Equal(t, hero, got)

	tree, err := svc.GetStructuredContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, hero, tree.Hero)

	// served from cache
	tree, err = svc.GetStructuredContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, hero, tree.Hero)
	assert.NotNil(t, tree.Brands.Logos)

	_, err = svc.UpsertContent(ctx, portfoliocms.UpsertContentRequest{
		Section:    portfoliocms.SectionHero,
		FieldName:  "title",
		FieldValue: "B",
	})
	require.NoError(t, err)
	got, err = svc.GetSection(ctx, portfoliocms.SectionHero)
	require.NoError(t, err)
	assert.Equal(t, "B", got.(portfoliocms.HeroContent).Title)
}

type recordingSink struct {
	portfoliocms.NoopEventSink
	sections []portfoliocms.Section
	restored []int64
}

func (r *recordingSink) SectionUpdated(ctx context.Context, section portfoliocms.Section, fields []*portfoliocms.ContentField) error {
	r.sections = append(r.sections, section)
	return nil
}

func (r *recordingSink) VersionRestored(ctx context.Context, version *portfoliocms.Version) error {
	r.restored = append(r.restored, version.ID)
	return errors.New("sink offline")
}

func TestEventSinkNotified(t *testing.T) {
	sink := &recordingSink{}
	svc := setupTestService(t, portfoliocms.WithEventSink(sink))
	ctx := context.Background()

	hero := heroExample()
	require.NoError(t, svc.UpdateSection(ctx, portfoliocms.SectionHero, &hero))
	assert.Equal(t, []portfoliocms.Section{portfoliocms.SectionHero}, sink.sections)

	versions, err := svc.ListVersions(ctx, 0)
	require.NoError(t, err)
	// sink failures are logged, not returned
	require.NoError(t, svc.RestoreVersion(ctx, versions[0].ID))
	assert.Equal(t, []int64{versions[0].ID}, sink.restored)
}
