package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"finance-hub/internal/data"
)

// slugAttempts bounds how often a derived slug is re-suffixed after a clash.
const slugAttempts = 3

// insertSlugged stores a row under a slug. An explicit slug that is already
// taken fails with ErrSlugTaken; a derived one is retried with a fresh suffix.
func insertSlugged(title, explicit string, now time.Time, insert func(slug string) error) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		slug, err := normalizeSlug(explicit)
		if err != nil {
			return "", err
		}
		if err := insert(slug); err != nil {
			if errors.Is(err, data.ErrConflict) {
				return "", ErrSlugTaken
			}
			return "", err
		}
		return slug, nil
	}
	for attempt := 0; attempt < slugAttempts; attempt++ {
		slug := DeriveSlug(title, now.Add(time.Duration(attempt)*time.Millisecond))
		err := insert(slug)
		if err == nil {
			return slug, nil
		}
		if !errors.Is(err, data.ErrConflict) {
			return "", err
		}
	}
	return "", ErrSlugTaken
}

// updateSlugged applies fields, translating a slug clash.
func updateSlugged[T any](ctx context.Context, c Collection[T], id string, fields data.Fields) (*T, error) {
	row, err := c.Update(ctx, id, fields)
	if errors.Is(err, data.ErrConflict) {
		return nil, ErrSlugTaken
	}
	return row, err
}

func defaultStatus(status string) string {
	if status == "" {
		return data.StatusPublished
	}
	return status
}
