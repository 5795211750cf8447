package service

import (
	"context"
	"strings"

	"finance-hub/internal/data"
)

// Home page and listing limits.
const (
	FeaturedOffersLimit   = 3
	FeaturedNewsLimit     = 2
	FeaturedArticlesLimit = 3
)

// OfferInput is the admin offer form.
type OfferInput struct {
	Title       string  `form:"title" validate:"required,max=255"`
	Description string  `form:"description" validate:"max=5000"`
	ImageURL    string  `form:"image_url" validate:"omitempty,url"`
	ExternalURL string  `form:"external_url" validate:"required,url"`
	CategoryID  string  `form:"category_id" validate:"required"`
	Rating      float64 `form:"rating" validate:"gte=0,lte=5"`
	IsFeatured  bool    `form:"is_featured"`
}

// OfferService manages credit offers.
type OfferService struct {
	offers     Collection[data.Offer]
	categories *CategoryService
}

// NewOfferService creates an OfferService.
func NewOfferService(offers Collection[data.Offer], categories *CategoryService) *OfferService {
	return &OfferService{offers: offers, categories: categories}
}

// List returns offers matching f, newest first.
func (s *OfferService) List(ctx context.Context, f Filter) ([]data.Offer, error) {
	ok, err := s.categories.inPartition(ctx, data.KindOffer, f.CategoryID)
	if err != nil || !ok {
		return []data.Offer{}, err
	}
	q := data.Query{OrderBy: "created_at", Desc: true, Limit: SearchWindow}
	if f.CategoryID != "" {
		q.Where = append(q.Where, data.Eq("category_id", f.CategoryID))
	}
	rows, err := s.offers.List(ctx, q)
	if err != nil {
		return nil, err
	}
	rows = filterText(rows, f.Query, func(o *data.Offer) []string { return []string{o.Title, o.Description} })
	return s.label(ctx, rows)
}

// Featured returns up to limit featured offers in insertion order.
func (s *OfferService) Featured(ctx context.Context, limit int) ([]data.Offer, error) {
	rows, err := s.offers.List(ctx, data.Query{
		Where:   []data.Cond{data.Eq("is_featured", true)},
		OrderBy: "created_at",
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	return s.label(ctx, rows)
}

// Get returns an offer by id.
func (s *OfferService) Get(ctx context.Context, id string) (*data.Offer, error) {
	return s.offers.Get(ctx, id)
}

// Create validates in and stores a new offer.
func (s *OfferService) Create(ctx context.Context, in OfferInput, ownerID string) (*data.Offer, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	offer := &data.Offer{
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		ExternalURL: in.ExternalURL,
		CategoryID:  in.CategoryID,
		Rating:      in.Rating,
		IsFeatured:  in.IsFeatured,
		OwnerID:     ownerID,
	}
	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

// Update replaces the editable fields of an offer.
func (s *OfferService) Update(ctx context.Context, id string, in OfferInput) (*data.Offer, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	return s.offers.Update(ctx, id, data.Fields{
		"title":        in.Title,
		"description":  in.Description,
		"image_url":    in.ImageURL,
		"external_url": in.ExternalURL,
		"category_id":  in.CategoryID,
		"rating":       in.Rating,
		"is_featured":  in.IsFeatured,
	})
}

// Delete removes an offer.
func (s *OfferService) Delete(ctx context.Context, id string) error {
	return s.offers.Delete(ctx, id)
}

func (s *OfferService) check(ctx context.Context, in *OfferInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.ExternalURL = strings.TrimSpace(in.ExternalURL)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := validateStruct(in); err != nil {
		return err
	}
	_, err := s.categories.Resolve(ctx, data.KindOffer, in.CategoryID)
	return err
}

func (s *OfferService) label(ctx context.Context, rows []data.Offer) ([]data.Offer, error) {
	labels, err := s.categories.Labels(ctx, data.KindOffer)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].CategoryName = Label(labels, rows[i].CategoryID)
	}
	return rows, nil
}
