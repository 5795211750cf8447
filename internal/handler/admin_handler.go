package handler

import (
	"net/http"

	"finance-hub/internal/config"
	"finance-hub/internal/data"
	"finance-hub/internal/middleware"
	"finance-hub/internal/service"

	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the back office.
type AdminHandler struct {
	responder
	categories *service.CategoryService
	offers     *service.OfferService
	articles   *service.ArticleService
	news       *service.NewsService
	forum      *service.ForumService
	rates      *service.RateService
	newsletter *service.NewsletterService
	dashboard  *service.DashboardService
	assist     *service.AssistService
	sitemap    *service.SitemapService
	scraper    config.ScraperConfig
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(r responder, s Services, scraper config.ScraperConfig) *AdminHandler {
	return &AdminHandler{
		responder:  r,
		categories: s.Categories,
		offers:     s.Offers,
		articles:   s.Articles,
		news:       s.News,
		forum:      s.Forum,
		rates:      s.Rates,
		newsletter: s.Newsletter,
		dashboard:  s.Dashboard,
		assist:     s.Assist,
		sitemap:    s.Sitemap,
		scraper:    scraper,
	}
}

func (h *AdminHandler) dashboardPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	stats, err := h.dashboard.Stats(ctx)
	if err != nil {
		return fail(err, "Failed to load dashboard")
	}
	subscribers, err := h.newsletter.List(ctx)
	if err != nil {
		return fail(err, "Failed to load subscribers")
	}
	return h.page(w, r, "admin_dashboard.html", map[string]interface{}{
		"Title":       "Админ-панель",
		"Stats":       stats,
		"Subscribers": subscribers,
	})
}

func (h *AdminHandler) seed(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	err := h.dashboard.SeedDemo(r.Context())
	return h.done(w, r, err, "Демо-данные загружены", "/admin")
}

func (h *AdminHandler) sitemapPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	entries, err := h.sitemap.Entries(r.Context())
	if err != nil {
		return fail(err, "Failed to build sitemap")
	}
	return h.page(w, r, "admin_sitemap.html", map[string]interface{}{
		"Title":   "Карта сайта",
		"Entries": entries,
	})
}

func (h *AdminHandler) refreshSitemap(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	h.sitemap.ContentChanged(r.Context())
	return h.done(w, r, nil, "Карта сайта будет пересобрана при следующем запросе", "/admin/sitemap")
}

// Categories

func (h *AdminHandler) categoriesPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	all, err := h.categories.ListAll(ctx)
	if err != nil {
		return fail(err, "Failed to load categories")
	}
	kind := data.Kind(r.URL.Query().Get("type"))
	byKind := make(map[data.Kind][]data.Category)
	shown := make([]data.Category, 0, len(all))
	for _, c := range all {
		byKind[c.Type] = append(byKind[c.Type], c)
		if kind == "" || c.Type == kind {
			shown = append(shown, c)
		}
	}
	return h.page(w, r, "admin_categories.html", map[string]interface{}{
		"Title":      "Категории",
		"Categories": shown,
		"ByKind":     byKind,
		"Kind":       kind,
	})
}

func (h *AdminHandler) categoryForm(w http.ResponseWriter, r *http.Request, form *service.CategoryInput, action string, err error) *middleware.AppError {
	pageData := map[string]interface{}{
		"Title":  "Категория",
		"Form":   form,
		"Action": action,
	}
	if err != nil {
		return h.formError(w, r, "admin_category_form.html", err, pageData)
	}
	return h.page(w, r, "admin_category_form.html", pageData)
}

func (h *AdminHandler) newCategory(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	form := &service.CategoryInput{Type: data.Kind(r.URL.Query().Get("type"))}
	return h.categoryForm(w, r, form, "/admin/categories", nil)
}

func (h *AdminHandler) createCategory(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var in service.CategoryInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.categories.Create(r.Context(), in, currentUser(r).ID)
	}
	if err != nil {
		return h.categoryForm(w, r, &in, "/admin/categories", err)
	}
	return h.done(w, r, nil, "Категория создана", "/admin/categories")
}

func (h *AdminHandler) editCategory(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	c, err := h.categories.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return fail(err, "Failed to load category")
	}
	form := &service.CategoryInput{Name: c.Name, Slug: c.Slug, Type: c.Type, Description: c.Description}
	return h.categoryForm(w, r, form, "/admin/categories/"+c.ID, nil)
}

func (h *AdminHandler) updateCategory(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	var in service.CategoryInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.categories.Update(r.Context(), id, in)
	}
	if err != nil {
		return h.categoryForm(w, r, &in, "/admin/categories/"+id, err)
	}
	return h.done(w, r, nil, "Категория сохранена", "/admin/categories")
}

func (h *AdminHandler) deleteCategory(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	err := h.categories.Delete(r.Context(), chi.URLParam(r, "id"), r.FormValue("reassign_to"))
	return h.done(w, r, err, "Категория удалена", "/admin/categories")
}
