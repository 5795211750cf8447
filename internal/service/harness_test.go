//go:build integration

package service

import (
	"context"
	"testing"
	"time"

	"finance-hub/internal/cache"
	"finance-hub/internal/config"
	"finance-hub/internal/content"
	"finance-hub/internal/data"
	"finance-hub/internal/data/datatest"
	"finance-hub/internal/logger"
	"finance-hub/internal/session"

	"github.com/stretchr/testify/require"
)

// tick is a clock that advances one second per call.
type tick struct{ t time.Time }

func newTick() *tick {
	return &tick{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tick) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type harness struct {
	store      *data.Store
	categories *CategoryService
	offers     *OfferService
	articles   *ArticleService
	news       *NewsService
	forum      *ForumService
	rates      *RateService
	newsletter *NewsletterService
	sitemap    *SitemapService
	dashboard  *DashboardService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := datatest.NewStore(t)
	pages, err := cache.New(config.CacheConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { pages.Close() })

	log := logger.Nop()
	clock := newTick()
	sitemap := NewSitemapService(pages, "https://hub.example", log)
	categories := NewCategoryService(store.Categories, map[data.Kind]Dependents{
		data.KindOffer:   store.Offers,
		data.KindArticle: store.Articles,
		data.KindNews:    store.News,
		data.KindForum:   store.Topics,
	}, sitemap, log)
	articles := NewArticleService(store.Articles, categories, sitemap)
	articles.now = clock.Now
	news := NewNewsService(store.News, categories, sitemap)
	news.now = clock.Now
	forum := NewForumService(store.Topics, store.Posts, store.Users, categories, content.NewRenderer())
	forum.now = clock.Now
	sitemap.Attach(articles, news, categories)
	newsletter := NewNewsletterService(store.Subscriptions)

	return &harness{
		store:      store,
		categories: categories,
		offers:     NewOfferService(store.Offers, categories),
		articles:   articles,
		news:       news,
		forum:      forum,
		rates:      NewRateService(store.Rates, sitemap),
		newsletter: newsletter,
		sitemap:    sitemap,
		dashboard:  NewDashboardService(store, forum, newsletter, sitemap),
	}
}

func (h *harness) category(t *testing.T, name string, kind data.Kind) *data.Category {
	t.Helper()
	cat, err := h.categories.Create(context.Background(), CategoryInput{Name: name, Slug: Slugify(name + " " + string(kind)), Type: kind}, "admin-1")
	require.NoError(t, err)
	return cat
}

var (
	anonymous = &session.UserInfo{}
	member    = &session.UserInfo{ID: "user-1", Email: "ivan@example.com", Roles: []string{"user", session.Anonymous}}
	stranger  = &session.UserInfo{ID: "user-2", Email: "olga@example.com", Roles: []string{"user", session.Anonymous}}
	admin     = &session.UserInfo{ID: "admin-1", Email: "boss@example.com", Roles: []string{session.RoleAdmin, "user", session.Anonymous}}
)
