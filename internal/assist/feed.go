package assist

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedItem is one entry of an RSS or Atom feed.
type FeedItem struct {
	Title       string
	Link        string
	Description string
	Published   *time.Time
}

// FeedReader downloads and parses syndication feeds.
type FeedReader struct {
	client    *http.Client
	userAgent string
}

// NewFeedReader creates a reader that uses client for downloads.
func NewFeedReader(client *http.Client, userAgent string) *FeedReader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FeedReader{client: client, userAgent: userAgent}
}

// Read fetches feedURL and returns at most limit items; limit <= 0 means all.
func (f *FeedReader) Read(ctx context.Context, feedURL string, limit int) ([]FeedItem, error) {
	fp := gofeed.NewParser()
	fp.Client = f.client
	if f.userAgent != "" {
		fp.UserAgent = f.userAgent
	}
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("error parsing feed %s: %w", feedURL, err)
	}

	items := make([]FeedItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(items) >= limit {
			break
		}
		fi := FeedItem{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Description: strings.TrimSpace(item.Description),
		}
		// Handle PublishedParsed with nil check
		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			fi.Published = &t
		}
		items = append(items, fi)
	}
	return items, nil
}
