//go:build integration

package service

import (
	"context"
	"strings"
	"testing"

	"finance-hub/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemap_XMLAndInvalidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	guides := h.category(t, "Гайды", data.KindArticle)
	general := h.category(t, "Общий раздел", data.KindForum)

	a, err := h.articles.Create(ctx, ArticleInput{Title: "Первая", Slug: "pervaya", CategoryID: guides.ID, Content: "текст"}, admin.ID)
	require.NoError(t, err)
	_, err = h.articles.Create(ctx, ArticleInput{Title: "Черновик", Slug: "chernovik", CategoryID: guides.ID, Content: "текст", Status: data.StatusDraft}, admin.ID)
	require.NoError(t, err)

	out, err := h.sitemap.XML(ctx)
	require.NoError(t, err)
	doc := string(out)
	assert.True(t, strings.HasPrefix(doc, "<?xml"))
	assert.Contains(t, doc, "<loc>https://hub.example/</loc>")
	assert.Contains(t, doc, "<priority>1.0</priority>")
	assert.Contains(t, doc, "<loc>https://hub.example/articles/"+a.Slug+"</loc>")
	assert.Contains(t, doc, "<loc>https://hub.example/forum/category/"+general.ID+"</loc>")
	assert.NotContains(t, doc, "chernovik")

	_, err = h.news.Create(ctx, NewsInput{Title: "Свежая", Slug: "svezhaya", CategoryID: h.category(t, "Рынки", data.KindNews).ID, Content: "текст"}, admin.ID)
	require.NoError(t, err)

	out, err = h.sitemap.XML(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<loc>https://hub.example/news/svezhaya</loc>")
}

func TestSitemap_EncodesCyrillicSlugs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	guides := h.category(t, "Гайды", data.KindArticle)

	_, err := h.articles.Create(ctx, ArticleInput{Title: "Вклады", Slug: "вклады", CategoryID: guides.ID, Content: "текст"}, admin.ID)
	require.NoError(t, err)

	out, err := h.sitemap.XML(ctx)
	require.NoError(t, err)
	doc := string(out)
	assert.Contains(t, doc, "<loc>https://hub.example/articles/%D0%B2%D0%BA%D0%BB%D0%B0%D0%B4%D1%8B</loc>")
	assert.NotContains(t, doc, "/articles/вклады")
}

func TestSitemap_Entries(t *testing.T) {
	h := newHarness(t)
	entries, err := h.sitemap.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, len(staticPages))
	assert.Equal(t, SectionPages, entries[0].Section)
	assert.Contains(t, h.sitemap.RobotsTxt(), "Sitemap: https://hub.example/sitemap.xml")
}

func TestDashboard_SeedDemoIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.dashboard.SeedDemo(ctx))
	require.NoError(t, h.dashboard.SeedDemo(ctx))

	st, err := h.dashboard.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, st.Categories)
	assert.Equal(t, 2, st.Offers)
	assert.Equal(t, 2, st.Articles)
	assert.Zero(t, st.Topics)
	assert.Zero(t, st.Pending)

	featured, err := h.offers.Featured(ctx, FeaturedOffersLimit)
	require.NoError(t, err)
	assert.Len(t, featured, 2)

	a, err := h.articles.View(ctx, "how-to-save-for-mortgage")
	require.NoError(t, err)
	assert.Equal(t, "Личные финансы", a.CategoryName)
}
