package portfoliocms

import (
	"context"
	"fmt"

	"github.com/samber/lo"
)

// listItem is implemented by the pointer types of ordered list entries.
type listItem interface {
	itemID() int
	setItemID(id int)
	itemOrder() int
	setItemOrder(order int)
}

func (l *Logo) itemID() int            { return l.ID }
func (l *Logo) setItemID(id int)       { l.ID = id }
func (l *Logo) itemOrder() int         { return l.Order }
func (l *Logo) setItemOrder(order int) { l.Order = order }

func (c *ServiceCard) itemID() int            { return c.ID }
func (c *ServiceCard) setItemID(id int)       { c.ID = id }
func (c *ServiceCard) itemOrder() int         { return c.Order }
func (c *ServiceCard) setItemOrder(order int) { c.Order = order }

func (p *OfferPoint) itemID() int            { return p.ID }
func (p *OfferPoint) setItemID(id int)       { p.ID = id }
func (p *OfferPoint) itemOrder() int         { return p.Order }
func (p *OfferPoint) setItemOrder(order int) { p.Order = order }

func (t *Testimonial) itemID() int            { return t.ID }
func (t *Testimonial) setItemID(id int)       { t.ID = id }
func (t *Testimonial) itemOrder() int         { return t.Order }
func (t *Testimonial) setItemOrder(order int) { t.Order = order }

type listPtr[T any] interface {
	*T
	listItem
}

// listBinding locates an ordered list inside its section.
type listBinding[T any] struct {
	section     Section
	field       string
	structField string
	max         int
	items       func(*StructuredContent) *[]T
}

var (
	logoList = listBinding[Logo]{
		section:     SectionBrands,
		field:       "logos",
		structField: "Logos",
		max:         30,
		items:       func(c *StructuredContent) *[]Logo { return &c.Brands.Logos },
	}
	serviceCardList = listBinding[ServiceCard]{
		section:     SectionServices,
		field:       "services",
		structField: "Services",
		max:         12,
		items:       func(c *StructuredContent) *[]ServiceCard { return &c.Services.Services },
	}
	offerPointList = listBinding[OfferPoint]{
		section:     SectionOffer,
		field:       "points",
		structField: "Points",
		max:         6,
		items:       func(c *StructuredContent) *[]OfferPoint { return &c.Offer.Points },
	}
	testimonialList = listBinding[Testimonial]{
		section:     SectionTestimonials,
		field:       "testimonials",
		structField: "Testimonials",
		max:         20,
		items:       func(c *StructuredContent) *[]Testimonial { return &c.Testimonials.Testimonials },
	}
)

func (b listBinding[T]) capError(op string) error {
	message := messageOverrides[b.structField+"|max"]
	if message == "" {
		message = fmt.Sprintf("Maximum %d %s allowed", b.max, b.field)
	}
	return validationError(op, message, FieldViolation{Field: b.field, Violation: "max", Message: message})
}

// appendItem assigns item the next free id and order and appends it.
func appendItem[T any, P listPtr[T]](items []T, item T) ([]T, T) {
	ids := lo.Map(items, func(it T, _ int) int { return P(&it).itemID() })
	orders := lo.Map(items, func(it T, _ int) int { return P(&it).itemOrder() })
	P(&item).setItemID(lo.Max(ids) + 1)
	P(&item).setItemOrder(lo.Max(orders) + 1)
	return append(items, item), item
}

// removeItem drops the item with id and renumbers the rest from 1.
func removeItem[T any, P listPtr[T]](items []T, id int) ([]T, bool) {
	_, found := lo.Find(items, func(it T) bool { return P(&it).itemID() == id })
	if !found {
		return items, false
	}
	kept := lo.Reject(items, func(it T, _ int) bool { return P(&it).itemID() == id })
	renumber[T, P](kept)
	return kept, true
}

// reorderItems arranges items in the order given by ids, which must be a
// permutation of the existing ids.
func reorderItems[T any, P listPtr[T]](items []T, ids []int) ([]T, error) {
	byID := lo.KeyBy(items, func(it T) int { return P(&it).itemID() })
	if len(ids) != len(items) || len(lo.Uniq(ids)) != len(ids) {
		return nil, validationError("reorder", "Order must list every item exactly once",
			FieldViolation{Field: "ids", Violation: "permutation", Message: "ids must list every item exactly once"})
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, validationError("reorder", fmt.Sprintf("Unknown item id %d", id),
				FieldViolation{Field: "ids", Violation: "permutation", Message: fmt.Sprintf("unknown item id %d", id)})
		}
		out = append(out, it)
	}
	renumber[T, P](out)
	return out, nil
}

func renumber[T any, P listPtr[T]](items []T) {
	for i := range items {
		P(&items[i]).setItemOrder(i + 1)
	}
}

// mutateList loads the section holding b, applies fn to its list and writes
// the section back through UpdateSectionContent.
func mutateList[T any](ctx context.Context, s *service, op string, b listBinding[T], fn func([]T) ([]T, error)) ([]T, error) {
	rows, err := s.repository.ListFields(ctx, b.section)
	if err != nil {
		return nil, wrap(op, err)
	}
	tree := BuildStructuredContent(rows)
	list := b.items(tree)

	updated, err := fn(*list)
	if err != nil {
		return nil, err
	}
	if len(updated) > b.max {
		return nil, b.capError(op)
	}
	*list = updated

	fields, err := tree.sectionFields(b.section)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateSectionContent(ctx, b.section, fields, true); err != nil {
		return nil, err
	}
	s.metrics.listMutations.WithLabelValues(string(b.section), op).Inc()
	return updated, nil
}

func addListItem[T any, P listPtr[T]](ctx context.Context, s *service, b listBinding[T], item T) (*T, error) {
	if err := Validate(item); err != nil {
		return nil, err
	}
	var added T
	_, err := mutateList(ctx, s, "add_item", b, func(items []T) ([]T, error) {
		var out []T
		out, added = appendItem[T, P](items, item)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

func removeListItem[T any, P listPtr[T]](ctx context.Context, s *service, b listBinding[T], id int) error {
	_, err := mutateList(ctx, s, "remove_item", b, func(items []T) ([]T, error) {
		out, ok := removeItem[T, P](items, id)
		if !ok {
			return nil, notFound("remove_item", fmt.Sprintf("Item %d not found in %s", id, b.section), ErrItemNotFound)
		}
		return out, nil
	})
	return err
}

func reorderListItems[T any, P listPtr[T]](ctx context.Context, s *service, b listBinding[T], ids []int) ([]T, error) {
	return mutateList(ctx, s, "reorder_items", b, func(items []T) ([]T, error) {
		return reorderItems[T, P](items, ids)
	})
}

// List operations

func (s *service) AddLogo(ctx context.Context, logo Logo) (*Logo, error) {
	return addListItem[Logo](ctx, s, logoList, logo)
}

func (s *service) RemoveLogo(ctx context.Context, id int) error {
	return removeListItem[Logo](ctx, s, logoList, id)
}

func (s *service) ReorderLogos(ctx context.Context, ids []int) ([]Logo, error) {
	return reorderListItems[Logo](ctx, s, logoList, ids)
}

func (s *service) AddServiceCard(ctx context.Context, card ServiceCard) (*ServiceCard, error) {
	return addListItem[ServiceCard](ctx, s, serviceCardList, card)
}

func (s *service) RemoveServiceCard(ctx context.Context, id int) error {
	return removeListItem[ServiceCard](ctx, s, serviceCardList, id)
}

func (s *service) ReorderServiceCards(ctx context.Context, ids []int) ([]ServiceCard, error) {
	return reorderListItems[ServiceCard](ctx, s, serviceCardList, ids)
}

func (s *service) AddOfferPoint(ctx context.Context, point OfferPoint) (*OfferPoint, error) {
	return addListItem[OfferPoint](ctx, s, offerPointList, point)
}

func (s *service) RemoveOfferPoint(ctx context.Context, id int) error {
	return removeListItem[OfferPoint](ctx, s, offerPointList, id)
}

func (s *service) ReorderOfferPoints(ctx context.Context, ids []int) ([]OfferPoint, error) {
	return reorderListItems[OfferPoint](ctx, s, offerPointList, ids)
}

func (s *service) AddTestimonial(ctx context.Context, t Testimonial) (*Testimonial, error) {
	return addListItem[Testimonial](ctx, s, testimonialList, t)
}

func (s *service) RemoveTestimonial(ctx context.Context, id int) error {
	return removeListItem[Testimonial](ctx, s, testimonialList, id)
}

func (s *service) ReorderTestimonials(ctx context.Context, ids []int) ([]Testimonial, error) {
	return reorderListItems[Testimonial](ctx, s, testimonialList, ids)
}
