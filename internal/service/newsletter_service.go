package service

import (
	"context"
	"errors"
	"strings"

	"finance-hub/internal/data"
)

// SubscribeInput is the footer subscription form.
type SubscribeInput struct {
	Email string `form:"email" validate:"required,email,max=255"`
}

// NewsletterService manages mailing list subscriptions.
type NewsletterService struct {
	subscriptions Collection[data.NewsletterSubscription]
}

// NewNewsletterService creates a NewsletterService.
func NewNewsletterService(subscriptions Collection[data.NewsletterSubscription]) *NewsletterService {
	return &NewsletterService{subscriptions: subscriptions}
}

// Subscribe adds an active subscription. A known address fails with
// ErrAlreadySubscribed, whether it is caught by the lookup or by the
// unique index when two requests race.
func (s *NewsletterService) Subscribe(ctx context.Context, in SubscribeInput, ownerID string) (*data.NewsletterSubscription, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	n, err := s.subscriptions.Count(ctx, data.Query{Where: []data.Cond{data.Eq("email", in.Email)}})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrAlreadySubscribed
	}
	sub := &data.NewsletterSubscription{Email: in.Email, IsActive: true, OwnerID: ownerID}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		if errors.Is(err, data.ErrConflict) {
			return nil, ErrAlreadySubscribed
		}
		return nil, err
	}
	return sub, nil
}

// List returns every subscription, newest first.
func (s *NewsletterService) List(ctx context.Context) ([]data.NewsletterSubscription, error) {
	return s.subscriptions.List(ctx, data.Query{OrderBy: "created_at", Desc: true})
}

// Count returns the number of active subscriptions.
func (s *NewsletterService) Count(ctx context.Context) (int, error) {
	return s.subscriptions.Count(ctx, data.Query{Where: []data.Cond{data.Eq("is_active", true)}})
}
