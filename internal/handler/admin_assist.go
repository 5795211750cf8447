package handler

import (
	"net/http"

	"finance-hub/internal/data"
	"finance-hub/internal/middleware"
	"finance-hub/internal/service"
)

// aiPage renders the article assistant. extra carries the result of the
// last action.
func (h *AdminHandler) aiPage(w http.ResponseWriter, r *http.Request, extra map[string]interface{}, err error) *middleware.AppError {
	cats, loadErr := h.categories.List(r.Context(), data.KindArticle)
	if loadErr != nil {
		return fail(loadErr, "Failed to load categories")
	}
	pageData := map[string]interface{}{
		"Title":      "ИИ-помощник",
		"Categories": cats,
		"Draft":      &service.Draft{},
		"CategoryID": r.FormValue("category_id"),
	}
	for k, v := range extra {
		pageData[k] = v
	}
	if err != nil {
		return h.formError(w, r, "admin_ai.html", err, pageData)
	}
	return h.page(w, r, "admin_ai.html", pageData)
}

func (h *AdminHandler) ai(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.aiPage(w, r, nil, nil)
}

func (h *AdminHandler) generate(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	topic := r.FormValue("topic")
	draft, err := h.assist.GenerateArticle(r.Context(), topic)
	if err != nil {
		return h.aiPage(w, r, map[string]interface{}{"Topic": topic}, err)
	}
	return h.aiPage(w, r, map[string]interface{}{"Topic": topic, "Draft": draft}, nil)
}

func (h *AdminHandler) rewrite(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	text := r.FormValue("text")
	out, err := h.assist.Rewrite(r.Context(), text)
	if err != nil {
		return h.aiPage(w, r, map[string]interface{}{"Text": text}, err)
	}
	return h.aiPage(w, r, map[string]interface{}{"Text": text, "Rewritten": out}, nil)
}

func draftFrom(r *http.Request) service.Draft {
	return service.Draft{Title: r.FormValue("title"), Content: r.FormValue("content")}
}

func (h *AdminHandler) publishArticle(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	d := draftFrom(r)
	if err := h.assist.PublishArticle(r.Context(), d, r.FormValue("category_id"), currentUser(r).ID); err != nil {
		return h.aiPage(w, r, map[string]interface{}{"Draft": &d}, err)
	}
	return h.done(w, r, nil, "Статья опубликована", "/admin/articles")
}

// News import

func (h *AdminHandler) importPage(w http.ResponseWriter, r *http.Request, extra map[string]interface{}, err error) *middleware.AppError {
	cats, loadErr := h.categories.List(r.Context(), data.KindNews)
	if loadErr != nil {
		return fail(loadErr, "Failed to load categories")
	}
	listingURL := r.FormValue("listing_url")
	if listingURL == "" {
		listingURL = h.scraper.ListingURL
	}
	pageData := map[string]interface{}{
		"Title":      "Импорт новостей",
		"Categories": cats,
		"ListingURL": listingURL,
		"Feeds":      h.scraper.Feeds,
		"Draft":      &service.Draft{},
		"SourceURL":  "",
		"CategoryID": r.FormValue("category_id"),
	}
	for k, v := range extra {
		pageData[k] = v
	}
	if err != nil {
		return h.formError(w, r, "admin_news_import.html", err, pageData)
	}
	return h.page(w, r, "admin_news_import.html", pageData)
}

func (h *AdminHandler) newsImport(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.importPage(w, r, nil, nil)
}

func (h *AdminHandler) scrapePage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	item, err := h.assist.ScrapePage(r.Context(), r.FormValue("url"))
	if err != nil {
		return h.importPage(w, r, nil, err)
	}
	return h.importPage(w, r, map[string]interface{}{
		"Items":     []service.ParsedItem{*item},
		"Preview":   item,
		"Draft":     &service.Draft{Title: item.Title, Content: item.Content},
		"SourceURL": item.URL,
	}, nil)
}

func (h *AdminHandler) scrapeListing(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	listingURL := r.FormValue("listing_url")
	if listingURL == "" {
		listingURL = h.scraper.ListingURL
	}
	items, err := h.assist.ScrapeListing(r.Context(), listingURL)
	if err != nil {
		return h.importPage(w, r, nil, err)
	}
	return h.importPage(w, r, map[string]interface{}{"Items": items}, nil)
}

func (h *AdminHandler) importFeed(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	items, err := h.assist.ImportFeed(r.Context(), r.FormValue("feed_url"))
	if err != nil {
		return h.importPage(w, r, nil, err)
	}
	return h.importPage(w, r, map[string]interface{}{"Items": items}, nil)
}

func (h *AdminHandler) rewriteItem(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	sourceURL := r.FormValue("url")
	draft, err := h.assist.RewriteItem(r.Context(), sourceURL, r.FormValue("title"))
	if err != nil {
		return h.importPage(w, r, nil, err)
	}
	return h.importPage(w, r, map[string]interface{}{"Draft": draft, "SourceURL": sourceURL}, nil)
}

func (h *AdminHandler) publishNews(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	d := draftFrom(r)
	sourceURL := r.FormValue("source_url")
	if err := h.assist.PublishNews(r.Context(), d, sourceURL, r.FormValue("category_id"), currentUser(r).ID); err != nil {
		return h.importPage(w, r, map[string]interface{}{"Draft": &d, "SourceURL": sourceURL}, err)
	}
	return h.done(w, r, nil, "Новость опубликована", "/admin/news")
}
