package service

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"finance-hub/internal/data"
	"finance-hub/internal/logger"
)

const sitemapCacheKey = "sitemap.xml"

// SitemapEntry is one URL of the sitemap.
type SitemapEntry struct {
	Loc        string
	Title      string
	Section    string
	LastMod    time.Time
	ChangeFreq string
	Priority   float64
}

type staticPage struct {
	path, title, changefreq string
	priority                float64
}

var staticPages = []staticPage{
	{"/", "Главная", "daily", 1.0},
	{"/offers", "Офферы", "daily", 0.9},
	{"/articles", "Статьи", "daily", 0.9},
	{"/news", "Новости", "hourly", 0.9},
	{"/forum", "Форум", "hourly", 0.8},
	{"/rates", "Курсы валют", "daily", 0.7},
}

// Sitemap sections.
const (
	SectionPages    = "Страницы"
	SectionArticles = "Статьи"
	SectionNews     = "Новости"
	SectionForum    = "Форум"
)

// PageCache is the cache surface the sitemap needs.
type PageCache interface {
	Remember(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// SitemapService builds the XML and HTML sitemaps from published content.
type SitemapService struct {
	articles   *ArticleService
	news       *NewsService
	categories *CategoryService
	cache      PageCache
	baseURL    string
	log        logger.Logger
	now        func() time.Time
}

// NewSitemapService creates a SitemapService. The article, news and category
// services are attached with Attach because they notify the sitemap on writes.
func NewSitemapService(cache PageCache, baseURL string, log logger.Logger) *SitemapService {
	return &SitemapService{
		cache:   cache,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		now:     time.Now,
	}
}

// Attach wires the content sources.
func (s *SitemapService) Attach(articles *ArticleService, news *NewsService, categories *CategoryService) {
	s.articles = articles
	s.news = news
	s.categories = categories
}

// ContentChanged drops the cached XML so the next request rebuilds it.
func (s *SitemapService) ContentChanged(ctx context.Context) {
	if err := s.cache.Delete(ctx, sitemapCacheKey); err != nil {
		s.log.Error(err, "failed to invalidate sitemap cache")
	}
}

// Entries lists every sitemap URL: static pages, published articles and
// news, and forum sections.
func (s *SitemapService) Entries(ctx context.Context) ([]SitemapEntry, error) {
	now := s.now()
	entries := make([]SitemapEntry, 0, len(staticPages))
	for _, p := range staticPages {
		entries = append(entries, SitemapEntry{
			Loc: s.baseURL + p.path, Title: p.title, Section: SectionPages,
			LastMod: now, ChangeFreq: p.changefreq, Priority: p.priority,
		})
	}

	articles, err := s.articles.Published(ctx)
	if err != nil {
		return nil, fmt.Errorf("sitemap articles: %w", err)
	}
	for _, a := range articles {
		entries = append(entries, SitemapEntry{
			Loc: s.loc("/articles/", a.Slug), Title: a.Title, Section: SectionArticles,
			LastMod: a.CreatedAt, ChangeFreq: "weekly", Priority: 0.8,
		})
	}

	news, err := s.news.Published(ctx)
	if err != nil {
		return nil, fmt.Errorf("sitemap news: %w", err)
	}
	for _, n := range news {
		entries = append(entries, SitemapEntry{
			Loc: s.loc("/news/", n.Slug), Title: n.Title, Section: SectionNews,
			LastMod: n.CreatedAt, ChangeFreq: "weekly", Priority: 0.7,
		})
	}

	cats, err := s.categories.List(ctx, data.KindForum)
	if err != nil {
		return nil, fmt.Errorf("sitemap forum: %w", err)
	}
	for _, c := range cats {
		entries = append(entries, SitemapEntry{
			Loc: s.loc("/forum/category/", c.ID), Title: c.Name, Section: SectionForum,
			LastMod: c.CreatedAt, ChangeFreq: "daily", Priority: 0.6,
		})
	}
	return entries, nil
}

// loc builds an absolute URL with the last segment percent-encoded, since
// slugs may hold Cyrillic letters.
func (s *SitemapService) loc(prefix, segment string) string {
	return s.baseURL + prefix + url.PathEscape(segment)
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// XML returns the sitemap document, served from the cache when fresh.
func (s *SitemapService) XML(ctx context.Context) ([]byte, error) {
	return s.cache.Remember(ctx, sitemapCacheKey, s.render)
}

func (s *SitemapService) render(ctx context.Context) ([]byte, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, e := range entries {
		set.URLs = append(set.URLs, xmlURL{
			Loc:        e.Loc,
			LastMod:    e.LastMod.UTC().Format("2006-01-02"),
			ChangeFreq: e.ChangeFreq,
			Priority:   fmt.Sprintf("%.1f", e.Priority),
		})
	}
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode sitemap: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// RobotsTxt returns robots.txt pointing crawlers at the sitemap.
func (s *SitemapService) RobotsTxt() string {
	return "User-agent: *\nDisallow: /admin\nAllow: /\n\nSitemap: " + s.baseURL + "/sitemap.xml\n"
}
