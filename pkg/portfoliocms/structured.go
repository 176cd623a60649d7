package portfoliocms

import (
	"encoding/json"
	"sort"
	"strings"
)

// HeroContent is the top-of-page video hero.
type HeroContent struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,min=10,max=2000"`
	VideoURL    string `json:"videoUrl" validate:"omitempty,urlorpath"`
}

// Logo is one client brand in the brands strip.
type Logo struct {
	ID      int    `json:"id"`
	Name    string `json:"name" validate:"required,max=100"`
	LogoURL string `json:"logoUrl" validate:"required,urlorpath"`
	Order   int    `json:"order"`
}

type BrandsContent struct {
	Title string `json:"title" validate:"max=200"`
	Logos []Logo `json:"logos" validate:"max=30,dive"`
}

// ServiceCard is one numbered card in the services grid.
type ServiceCard struct {
	ID          int    `json:"id"`
	Number      string `json:"number" validate:"required,max=10"`
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=1000"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	Order       int    `json:"order"`
}

type ServicesContent struct {
	Title    string        `json:"title" validate:"max=200"`
	Services []ServiceCard `json:"services" validate:"max=12,dive"`
}

// OfferPoint is one bullet of the offer section.
type OfferPoint struct {
	ID    int    `json:"id"`
	Text  string `json:"text" validate:"required,max=300"`
	Order int    `json:"order"`
}

type OfferContent struct {
	Title  string       `json:"title" validate:"required,max=200"`
	Points []OfferPoint `json:"points" validate:"max=6,dive"`
}

// Testimonial is one client quote.
type Testimonial struct {
	ID           int    `json:"id"`
	Text         string `json:"text" validate:"required,max=2000"`
	ClientName   string `json:"clientName" validate:"required,max=100"`
	ClientTitle  string `json:"clientTitle" validate:"max=150"`
	ClientPhoto  string `json:"clientPhoto" validate:"omitempty,urlorpath"`
	ProjectLink  string `json:"projectLink" validate:"omitempty,urlorpath"`
	ProjectImage string `json:"projectImage" validate:"omitempty,urlorpath"`
	Order        int    `json:"order"`
}

type TestimonialsContent struct {
	Title        string        `json:"title" validate:"max=200"`
	Testimonials []Testimonial `json:"testimonials" validate:"max=20,dive"`
}

// FooterLink is a labelled link in one of the footer columns.
type FooterLink struct {
	Text string `json:"text" validate:"required,max=100"`
	URL  string `json:"url" validate:"required,urlorpath"`
}

type FooterLinks struct {
	Site         []FooterLink `json:"site" validate:"max=10,dive"`
	Professional []FooterLink `json:"professional" validate:"max=10,dive"`
	Social       []FooterLink `json:"social" validate:"max=10,dive"`
}

type FooterContent struct {
	Title     string      `json:"title" validate:"required,max=200"`
	Email     string      `json:"email" validate:"required,email"`
	Copyright string      `json:"copyright" validate:"required,max=200"`
	Links     FooterLinks `json:"links"`
}

// StructuredContent is the full homepage tree assembled from field rows.
// It is also the payload stored in every Version snapshot.
type StructuredContent struct {
	Hero         HeroContent         `json:"hero"`
	Brands       BrandsContent       `json:"brands"`
	Services     ServicesContent     `json:"services"`
	Offer        OfferContent        `json:"offer"`
	Testimonials TestimonialsContent `json:"testimonials"`
	Footer       FooterContent       `json:"footer"`
}

type fieldSpec struct {
	name string
	typ  FieldType
}

// sectionSchemas fixes the stored fields of every section. Position in the
// slice is the field's display order (starting at 1).
var sectionSchemas = map[Section][]fieldSpec{
	SectionHero: {
		{"title", FieldTypeText},
		{"description", FieldTypeRichText},
		{"videoUrl", FieldTypeURL},
	},
	SectionBrands: {
		{"title", FieldTypeText},
		{"logos", FieldTypeJSON},
	},
	SectionServices: {
		{"title", FieldTypeText},
		{"services", FieldTypeJSON},
	},
	SectionOffer: {
		{"title", FieldTypeText},
		{"points", FieldTypeJSON},
	},
	SectionTestimonials: {
		{"title", FieldTypeText},
		{"testimonials", FieldTypeJSON},
	},
	SectionFooter: {
		{"title", FieldTypeText},
		{"email", FieldTypeText},
		{"copyright", FieldTypeText},
		{"links", FieldTypeJSON},
	},
}

// FieldTypeFor returns the declared type of a known field, or text for
// fields outside the section schema.
func FieldTypeFor(section Section, fieldName string) FieldType {
	for _, spec := range sectionSchemas[section] {
		if spec.name == fieldName {
			return spec.typ
		}
	}
	return FieldTypeText
}

// DisplayOrderFor returns the schema position of a field. Unknown fields
// sort after the known ones.
func DisplayOrderFor(section Section, fieldName string) int {
	specs := sectionSchemas[section]
	for i, spec := range specs {
		if spec.name == fieldName {
			return i + 1
		}
	}
	return len(specs) + 1
}

// NewSectionValue returns a pointer to an empty value of the section's type,
// suitable as a JSON decode target.
func NewSectionValue(section Section) (any, error) {
	switch section {
	case SectionHero:
		return &HeroContent{}, nil
	case SectionBrands:
		return &BrandsContent{}, nil
	case SectionServices:
		return &ServicesContent{}, nil
	case SectionOffer:
		return &OfferContent{}, nil
	case SectionTestimonials:
		return &TestimonialsContent{}, nil
	case SectionFooter:
		return &FooterContent{}, nil
	}
	return nil, notFound("new_section_value", "Section not found", ErrSectionNotFound)
}

// Section returns a copy of one section of the tree.
func (c *StructuredContent) Section(section Section) (any, error) {
	switch section {
	case SectionHero:
		return c.Hero, nil
	case SectionBrands:
		return c.Brands, nil
	case SectionServices:
		return c.Services, nil
	case SectionOffer:
		return c.Offer, nil
	case SectionTestimonials:
		return c.Testimonials, nil
	case SectionFooter:
		return c.Footer, nil
	}
	return nil, notFound("section", "Section not found", ErrSectionNotFound)
}

// SetSection replaces one section of the tree. value may be the section
// struct or a pointer to it.
func (c *StructuredContent) SetSection(section Section, value any) error {
	ok := false
	switch v := value.(type) {
	case HeroContent:
		c.Hero, ok = v, section == SectionHero
	case *HeroContent:
		c.Hero, ok = *v, section == SectionHero
	case BrandsContent:
		c.Brands, ok = v, section == SectionBrands
	case *BrandsContent:
		c.Brands, ok = *v, section == SectionBrands
	case ServicesContent:
		c.Services, ok = v, section == SectionServices
	case *ServicesContent:
		c.Services, ok = *v, section == SectionServices
	case OfferContent:
		c.Offer, ok = v, section == SectionOffer
	case *OfferContent:
		c.Offer, ok = *v, section == SectionOffer
	case TestimonialsContent:
		c.Testimonials, ok = v, section == SectionTestimonials
	case *TestimonialsContent:
		c.Testimonials, ok = *v, section == SectionTestimonials
	case FooterContent:
		c.Footer, ok = v, section == SectionFooter
	case *FooterContent:
		c.Footer, ok = *v, section == SectionFooter
	}
	if !ok {
		return validationError("set_section", "section value does not match section "+string(section))
	}
	return nil
}

// BuildStructuredContent groups rows by section and runs each section's
// transformer. Missing or malformed values fall back to "" and [].
func BuildStructuredContent(fields []*ContentField) *StructuredContent {
	bySection := make(map[Section]map[string]string, len(Sections))
	for _, s := range Sections {
		bySection[s] = map[string]string{}
	}
	for _, f := range fields {
		if values, ok := bySection[f.Section]; ok {
			values[f.FieldName] = f.FieldValue
		}
	}

	return &StructuredContent{
		Hero:         transformHero(bySection[SectionHero]),
		Brands:       transformBrands(bySection[SectionBrands]),
		Services:     transformServices(bySection[SectionServices]),
		Offer:        transformOffer(bySection[SectionOffer]),
		Testimonials: transformTestimonials(bySection[SectionTestimonials]),
		Footer:       transformFooter(bySection[SectionFooter]),
	}
}

// BuildSection assembles a single section from its rows.
func BuildSection(section Section, fields []*ContentField) (any, error) {
	values := map[string]string{}
	for _, f := range fields {
		if f.Section == section {
			values[f.FieldName] = f.FieldValue
		}
	}
	switch section {
	case SectionHero:
		return transformHero(values), nil
	case SectionBrands:
		return transformBrands(values), nil
	case SectionServices:
		return transformServices(values), nil
	case SectionOffer:
		return transformOffer(values), nil
	case SectionTestimonials:
		return transformTestimonials(values), nil
	case SectionFooter:
		return transformFooter(values), nil
	}
	return nil, notFound("build_section", "Section not found", ErrSectionNotFound)
}

func transformHero(v map[string]string) HeroContent {
	return HeroContent{
		Title:       v["title"],
		Description: v["description"],
		VideoURL:    v["videoUrl"],
	}
}

func transformBrands(v map[string]string) BrandsContent {
	logos := decodeList[Logo](v["logos"])
	sortByOrder(logos, func(l Logo) int { return l.Order })
	return BrandsContent{Title: v["title"], Logos: logos}
}

func transformServices(v map[string]string) ServicesContent {
	cards := decodeList[ServiceCard](v["services"])
	sortByOrder(cards, func(c ServiceCard) int { return c.Order })
	return ServicesContent{Title: v["title"], Services: cards}
}

func transformOffer(v map[string]string) OfferContent {
	points := decodeList[OfferPoint](v["points"])
	sortByOrder(points, func(p OfferPoint) int { return p.Order })
	return OfferContent{Title: v["title"], Points: points}
}

func transformTestimonials(v map[string]string) TestimonialsContent {
	items := decodeList[Testimonial](v["testimonials"])
	sortByOrder(items, func(t Testimonial) int { return t.Order })
	return TestimonialsContent{Title: v["title"], Testimonials: items}
}

func transformFooter(v map[string]string) FooterContent {
	links := FooterLinks{}
	if raw := strings.TrimSpace(v["links"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &links); err != nil {
			links = FooterLinks{}
		}
	}
	links.normalize()
	return FooterContent{
		Title:     v["title"],
		Email:     v["email"],
		Copyright: v["copyright"],
		Links:     links,
	}
}

func (l *FooterLinks) normalize() {
	if l.Site == nil {
		l.Site = []FooterLink{}
	}
	if l.Professional == nil {
		l.Professional = []FooterLink{}
	}
	if l.Social == nil {
		l.Social = []FooterLink{}
	}
}

func decodeList[T any](raw string) []T {
	out := []T{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []T{}
	}
	return out
}

func sortByOrder[T any](items []T, order func(T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		return order(items[i]) < order(items[j])
	})
}

// SectionFields converts a section value into the rows that store it.
// value may be the section struct or a pointer to it.
func SectionFields(section Section, value any) ([]*ContentField, error) {
	var tree StructuredContent
	if err := tree.SetSection(section, value); err != nil {
		return nil, err
	}
	return tree.sectionFields(section)
}

// Fields converts the whole tree into rows, section by section.
func (c *StructuredContent) Fields() ([]*ContentField, error) {
	var out []*ContentField
	for _, s := range Sections {
		fields, err := c.sectionFields(s)
		if err != nil {
			return nil, err
		}
		out = append(out, fields...)
	}
	return out, nil
}

func (c *StructuredContent) sectionFields(section Section) ([]*ContentField, error) {
	values := map[string]string{}
	var err error
	switch section {
	case SectionHero:
		values["title"] = c.Hero.Title
		values["description"] = c.Hero.Description
		values["videoUrl"] = c.Hero.VideoURL
	case SectionBrands:
		values["title"] = c.Brands.Title
		values["logos"], err = encodeJSON(nonNil(c.Brands.Logos))
	case SectionServices:
		values["title"] = c.Services.Title
		values["services"], err = encodeJSON(nonNil(c.Services.Services))
	case SectionOffer:
		values["title"] = c.Offer.Title
		values["points"], err = encodeJSON(nonNil(c.Offer.Points))
	case SectionTestimonials:
		values["title"] = c.Testimonials.Title
		values["testimonials"], err = encodeJSON(nonNil(c.Testimonials.Testimonials))
	case SectionFooter:
		links := c.Footer.Links
		links.normalize()
		values["title"] = c.Footer.Title
		values["email"] = c.Footer.Email
		values["copyright"] = c.Footer.Copyright
		values["links"], err = encodeJSON(links)
	default:
		return nil, notFound("section_fields", "Section not found", ErrSectionNotFound)
	}
	if err != nil {
		return nil, &Error{Kind: KindInternal, Op: "section_fields", Err: err}
	}

	specs := sectionSchemas[section]
	fields := make([]*ContentField, 0, len(specs))
	for i, spec := range specs {
		fields = append(fields, &ContentField{
			Section:      section,
			FieldName:    spec.name,
			FieldValue:   values[spec.name],
			FieldType:    spec.typ,
			DisplayOrder: i + 1,
		})
	}
	return fields, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
