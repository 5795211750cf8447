package service

import (
	"context"
	"strings"
	"time"

	"finance-hub/internal/data"
)

// RateInput is the admin currency rate form.
type RateInput struct {
	Code string  `form:"code" validate:"required,min=3,max=10"`
	Name string  `form:"name" validate:"required,max=100"`
	Rate float64 `form:"rate" validate:"gte=0"`
}

// RateService manages the exchange rate table. Codes are not unique.
type RateService struct {
	rates  Collection[data.CurrencyRate]
	notify ChangeNotifier
	now    func() time.Time
}

// NewRateService creates a RateService.
func NewRateService(rates Collection[data.CurrencyRate], notify ChangeNotifier) *RateService {
	return &RateService{
		rates:  rates,
		notify: notifierOrNoop(notify),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// List returns every rate ordered by code.
func (s *RateService) List(ctx context.Context) ([]data.CurrencyRate, error) {
	return s.rates.List(ctx, data.Query{OrderBy: "code"})
}

// Get returns a rate by id.
func (s *RateService) Get(ctx context.Context, id string) (*data.CurrencyRate, error) {
	return s.rates.Get(ctx, id)
}

// Create adds a rate stamped with the current time.
func (s *RateService) Create(ctx context.Context, in RateInput, ownerID string) (*data.CurrencyRate, error) {
	if err := checkRate(&in); err != nil {
		return nil, err
	}
	rate := &data.CurrencyRate{
		Code:      in.Code,
		Name:      in.Name,
		Rate:      in.Rate,
		UpdatedAt: s.now(),
		OwnerID:   ownerID,
	}
	if err := s.rates.Create(ctx, rate); err != nil {
		return nil, err
	}
	s.notify.ContentChanged(ctx)
	return rate, nil
}

// Update replaces a rate and refreshes its timestamp.
func (s *RateService) Update(ctx context.Context, id string, in RateInput) (*data.CurrencyRate, error) {
	if err := checkRate(&in); err != nil {
		return nil, err
	}
	rate, err := s.rates.Update(ctx, id, data.Fields{
		"code":       in.Code,
		"name":       in.Name,
		"rate":       in.Rate,
		"updated_at": s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.notify.ContentChanged(ctx)
	return rate, nil
}

// Delete removes a rate.
func (s *RateService) Delete(ctx context.Context, id string) error {
	if err := s.rates.Delete(ctx, id); err != nil {
		return err
	}
	s.notify.ContentChanged(ctx)
	return nil
}

func checkRate(in *RateInput) error {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	return validateStruct(in)
}
