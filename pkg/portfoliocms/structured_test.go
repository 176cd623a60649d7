package portfoliocms_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

func row(section portfoliocms.Section, name, value string) *portfoliocms.ContentField {
	return &portfoliocms.ContentField{Section: section, FieldName: name, FieldValue: value}
}

func TestBuildStructuredContentTolerantParsing(t *testing.T) {
	tree := portfoliocms.BuildStructuredContent([]*portfoliocms.ContentField{
		row(portfoliocms.SectionHero, "title", "Studio"),
		row(portfoliocms.SectionBrands, "logos", `[{"id":2,"name":"B","logoUrl":"/b.png","order":2},{"id":1,"name":"A","logoUrl":"/a.png","order":1}]`),
		row(portfoliocms.SectionServices, "services", `{not json`),
		row(portfoliocms.SectionOffer, "points", `null`),
		row(portfoliocms.SectionFooter, "links", `{"social":[{"text":"GitHub","url":"https://github.com/x"}]}`),
		row(portfoliocms.Section("legacy"), "title", "ignored"),
	})

	assert.Equal(t, "Studio", tree.Hero.Title)
	assert.Equal(t, "", tree.Hero.Description)

	require.Len(t, tree.Brands.Logos, 2)
	assert.Equal(t, "A", tree.Brands.Logos[0].Name)
	assert.Equal(t, "B", tree.Brands.Logos[1].Name)

	assert.NotNil(t, tree.Services.Services)
	assert.Empty(t, tree.Services.Services)
	assert.NotNil(t, tree.Offer.Points)
	assert.Empty(t, tree.Offer.Points)

	assert.Len(t, tree.Footer.Links.Social, 1)
	assert.NotNil(t, tree.Footer.Links.Site)
	assert.NotNil(t, tree.Footer.Links.Professional)
}

func TestStructuredContentFieldsRoundTrip(t *testing.T) {
	original := portfoliocms.StructuredContent{
		Hero:   portfoliocms.HeroContent{Title: "A", Description: "1234567890"},
		Brands: portfoliocms.BrandsContent{Title: "Clients", Logos: []portfoliocms.Logo{{ID: 1, Name: "A", LogoURL: "/a.png", Order: 1}}},
		Offer:  portfoliocms.OfferContent{Title: "Offer", Points: []portfoliocms.OfferPoint{{ID: 1, Text: "Fast", Order: 1}}},
		Footer: portfoliocms.FooterContent{
			Title:     "Let's talk",
			Email:     "hello@example.com",
			Copyright: "2026",
			Links:     portfoliocms.FooterLinks{Site: []portfoliocms.FooterLink{{Text: "Work", URL: "/work"}}},
		},
	}

	fields, err := original.Fields()
	require.NoError(t, err)
	// three hero rows, four footer rows and two for every list section
	assert.Len(t, fields, 3+2*4+4)

	rebuilt := portfoliocms.BuildStructuredContent(fields)
	assert.Equal(t, original.Hero, rebuilt.Hero)
	assert.Equal(t, original.Brands, rebuilt.Brands)
	assert.Equal(t, original.Offer, rebuilt.Offer)
	assert.Equal(t, original.Footer.Links.Site, rebuilt.Footer.Links.Site)
	assert.Empty(t, rebuilt.Testimonials.Testimonials)
}

func TestSectionFieldsTypesAndOrder(t *testing.T) {
	fields, err := portfoliocms.SectionFields(portfoliocms.SectionFooter, portfoliocms.FooterContent{Title: "T"})
	require.NoError(t, err)
	require.Len(t, fields, 4)
	for i, f := range fields {
		assert.Equal(t, i+1, f.DisplayOrder)
		assert.Equal(t, portfoliocms.SectionFooter, f.Section)
	}
	assert.Equal(t, portfoliocms.FieldTypeJSON, fields[3].FieldType)
	assert.Equal(t, `{"site":[],"professional":[],"social":[]}`, fields[3].FieldValue)

	_, err = portfoliocms.SectionFields(portfoliocms.SectionHero, portfoliocms.FooterContent{})
	assert.Equal(t, portfoliocms.KindValidation, portfoliocms.KindOf(err))
}

func TestParseSection(t *testing.T) {
	s, err := portfoliocms.ParseSection("testimonials")
	require.NoError(t, err)
	assert.Equal(t, portfoliocms.SectionTestimonials, s)

	_, err = portfoliocms.ParseSection("pricing")
	assert.ErrorIs(t, err, portfoliocms.ErrSectionNotFound)
	assert.Equal(t, portfoliocms.KindNotFound, portfoliocms.KindOf(err))
}

func TestFieldDefaults(t *testing.T) {
	assert.Equal(t, portfoliocms.FieldTypeURL, portfoliocms.FieldTypeFor(portfoliocms.SectionHero, "videoUrl"))
	assert.Equal(t, portfoliocms.FieldTypeText, portfoliocms.FieldTypeFor(portfoliocms.SectionHero, "subtitle"))
	assert.Equal(t, 2, portfoliocms.DisplayOrderFor(portfoliocms.SectionOffer, "points"))
	assert.Equal(t, 3, portfoliocms.DisplayOrderFor(portfoliocms.SectionOffer, "footnote"))
}
