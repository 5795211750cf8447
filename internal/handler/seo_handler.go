package handler

import (
	"fmt"
	"net/http"

	"finance-hub/internal/middleware"
	"finance-hub/internal/service"
)

// SeoHandler holds dependencies for SEO-related handlers.
type SeoHandler struct {
	responder
	sitemap *service.SitemapService
}

// NewSeoHandler creates a new SeoHandler.
func NewSeoHandler(r responder, sitemap *service.SitemapService) *SeoHandler {
	return &SeoHandler{responder: r, sitemap: sitemap}
}

// robotsHandler serves robots.txt.
func (h *SeoHandler) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, h.sitemap.RobotsTxt())
}

// sitemapHandler serves the cached sitemap.xml.
func (h *SeoHandler) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	body, err := h.sitemap.XML(r.Context())
	if err != nil {
		h.log.Error(err, "Failed to build sitemap")
		http.Error(w, "Failed to generate sitemap XML", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(body)
}

// sitemapSection groups entries under one heading of the HTML sitemap.
type sitemapSection struct {
	Name    string
	Entries []service.SitemapEntry
}

func groupSitemap(entries []service.SitemapEntry) []sitemapSection {
	var sections []sitemapSection
	index := make(map[string]int)
	for _, e := range entries {
		i, ok := index[e.Section]
		if !ok {
			i = len(sections)
			index[e.Section] = i
			sections = append(sections, sitemapSection{Name: e.Section})
		}
		sections[i].Entries = append(sections[i].Entries, e)
	}
	return sections
}

// sitemapPage renders the human-readable sitemap.
func (h *SeoHandler) sitemapPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	entries, err := h.sitemap.Entries(r.Context())
	if err != nil {
		return fail(err, "Failed to build sitemap")
	}
	return h.page(w, r, "sitemap.html", map[string]interface{}{
		"Title":    "Карта сайта",
		"Sections": groupSitemap(entries),
	})
}
