package handler

import (
	"net/http"

	"finance-hub/internal/data"
	"finance-hub/internal/middleware"
	"finance-hub/internal/service"

	"github.com/go-chi/chi/v5"
)

// editor renders a create or edit form whose category select is limited to
// one partition.
func (h *AdminHandler) editor(w http.ResponseWriter, r *http.Request, page string, kind data.Kind, form interface{}, action string, err error) *middleware.AppError {
	cats, loadErr := h.categories.List(r.Context(), kind)
	if loadErr != nil {
		return fail(loadErr, "Failed to load categories")
	}
	pageData := map[string]interface{}{
		"Title":      "Редактирование",
		"Form":       form,
		"Action":     action,
		"Categories": cats,
	}
	if err != nil {
		return h.formError(w, r, page, err, pageData)
	}
	return h.page(w, r, page, pageData)
}

// Offers

func (h *AdminHandler) offersPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	offers, err := h.offers.List(r.Context(), service.Filter{Query: r.URL.Query().Get("q")})
	if err != nil {
		return fail(err, "Failed to load offers")
	}
	return h.page(w, r, "admin_offers.html", map[string]interface{}{
		"Title":  "Предложения",
		"Offers": offers,
		"Query":  r.URL.Query().Get("q"),
	})
}

func (h *AdminHandler) newOffer(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.editor(w, r, "admin_offer_form.html", data.KindOffer, &service.OfferInput{}, "/admin/offers", nil)
}

func (h *AdminHandler) createOffer(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var in service.OfferInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.offers.Create(r.Context(), in, currentUser(r).ID)
	}
	if err != nil {
		return h.editor(w, r, "admin_offer_form.html", data.KindOffer, &in, "/admin/offers", err)
	}
	return h.done(w, r, nil, "Предложение создано", "/admin/offers")
}

func (h *AdminHandler) editOffer(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	o, err := h.offers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return fail(err, "Failed to load offer")
	}
	form := &service.OfferInput{
		Title:       o.Title,
		Description: o.Description,
		ImageURL:    o.ImageURL,
		ExternalURL: o.ExternalURL,
		CategoryID:  o.CategoryID,
		Rating:      o.Rating,
		IsFeatured:  o.IsFeatured,
	}
	return h.editor(w, r, "admin_offer_form.html", data.KindOffer, form, "/admin/offers/"+o.ID, nil)
}

func (h *AdminHandler) updateOffer(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	var in service.OfferInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.offers.Update(r.Context(), id, in)
	}
	if err != nil {
		return h.editor(w, r, "admin_offer_form.html", data.KindOffer, &in, "/admin/offers/"+id, err)
	}
	return h.done(w, r, nil, "Предложение сохранено", "/admin/offers")
}

func (h *AdminHandler) deleteOffer(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	err := h.offers.Delete(r.Context(), chi.URLParam(r, "id"))
	return h.done(w, r, err, "Предложение удалено", "/admin/offers")
}

// Articles

func (h *AdminHandler) articlesPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	articles, err := h.articles.AdminList(r.Context())
	if err != nil {
		return fail(err, "Failed to load articles")
	}
	return h.page(w, r, "admin_articles.html", map[string]interface{}{
		"Title":    "Статьи",
		"Articles": articles,
	})
}

func (h *AdminHandler) newArticle(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.editor(w, r, "admin_article_form.html", data.KindArticle, &service.ArticleInput{Status: data.StatusDraft}, "/admin/articles", nil)
}

func (h *AdminHandler) createArticle(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var in service.ArticleInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.articles.Create(r.Context(), in, currentUser(r).ID)
	}
	if err != nil {
		return h.editor(w, r, "admin_article_form.html", data.KindArticle, &in, "/admin/articles", err)
	}
	return h.done(w, r, nil, "Статья создана", "/admin/articles")
}

func (h *AdminHandler) editArticle(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	a, err := h.articles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return fail(err, "Failed to load article")
	}
	form := &service.ArticleInput{
		Title:      a.Title,
		Slug:       a.Slug,
		CategoryID: a.CategoryID,
		Content:    a.Content,
		ImageURL:   a.ImageURL,
		Status:     a.Status,
		IsFeatured: a.IsFeatured,
	}
	return h.editor(w, r, "admin_article_form.html", data.KindArticle, form, "/admin/articles/"+a.ID, nil)
}

func (h *AdminHandler) updateArticle(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	var in service.ArticleInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.articles.Update(r.Context(), id, in)
	}
	if err != nil {
		return h.editor(w, r, "admin_article_form.html", data.KindArticle, &in, "/admin/articles/"+id, err)
	}
	return h.done(w, r, nil, "Статья сохранена", "/admin/articles")
}

func (h *AdminHandler) deleteArticle(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	err := h.articles.Delete(r.Context(), chi.URLParam(r, "id"))
	return h.done(w, r, err, "Статья удалена", "/admin/articles")
}

// News

func (h *AdminHandler) newsPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	items, err := h.news.AdminList(r.Context())
	if err != nil {
		return fail(err, "Failed to load news")
	}
	return h.page(w, r, "admin_news.html", map[string]interface{}{
		"Title": "Новости",
		"News":  items,
	})
}

func (h *AdminHandler) newNews(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.editor(w, r, "admin_news_form.html", data.KindNews, &service.NewsInput{Status: data.StatusDraft}, "/admin/news", nil)
}

func (h *AdminHandler) createNews(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var in service.NewsInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.news.Create(r.Context(), in, currentUser(r).ID)
	}
	if err != nil {
		return h.editor(w, r, "admin_news_form.html", data.KindNews, &in, "/admin/news", err)
	}
	return h.done(w, r, nil, "Новость создана", "/admin/news")
}

func (h *AdminHandler) editNews(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	n, err := h.news.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return fail(err, "Failed to load news item")
	}
	form := &service.NewsInput{
		Title:           n.Title,
		Slug:            n.Slug,
		CategoryID:      n.CategoryID,
		Content:         n.Content,
		Excerpt:         n.Excerpt,
		ImageURL:        n.ImageURL,
		SourceURL:       n.SourceURL,
		Status:          n.Status,
		IsFeatured:      n.IsFeatured,
		MetaTitle:       n.MetaTitle,
		MetaDescription: n.MetaDescription,
	}
	return h.editor(w, r, "admin_news_form.html", data.KindNews, form, "/admin/news/"+n.ID, nil)
}

func (h *AdminHandler) updateNews(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	var in service.NewsInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.news.Update(r.Context(), id, in)
	}
	if err != nil {
		return h.editor(w, r, "admin_news_form.html", data.KindNews, &in, "/admin/news/"+id, err)
	}
	return h.done(w, r, nil, "Новость сохранена", "/admin/news")
}

func (h *AdminHandler) deleteNews(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	err := h.news.Delete(r.Context(), chi.URLParam(r, "id"))
	return h.done(w, r, err, "Новость удалена", "/admin/news")
}

// Rates

func (h *AdminHandler) ratesPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	rates, err := h.rates.List(r.Context())
	if err != nil {
		return fail(err, "Failed to load rates")
	}
	return h.page(w, r, "admin_rates.html", map[string]interface{}{
		"Title": "Курсы валют",
		"Rates": rates,
	})
}

func (h *AdminHandler) rateForm(w http.ResponseWriter, r *http.Request, form *service.RateInput, action string, err error) *middleware.AppError {
	pageData := map[string]interface{}{
		"Title":  "Курс валюты",
		"Form":   form,
		"Action": action,
	}
	if err != nil {
		return h.formError(w, r, "admin_rate_form.html", err, pageData)
	}
	return h.page(w, r, "admin_rate_form.html", pageData)
}

func (h *AdminHandler) newRate(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.rateForm(w, r, &service.RateInput{}, "/admin/rates", nil)
}

func (h *AdminHandler) createRate(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var in service.RateInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.rates.Create(r.Context(), in, currentUser(r).ID)
	}
	if err != nil {
		return h.rateForm(w, r, &in, "/admin/rates", err)
	}
	return h.done(w, r, nil, "Курс добавлен", "/admin/rates")
}

func (h *AdminHandler) editRate(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	rate, err := h.rates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return fail(err, "Failed to load rate")
	}
	form := &service.RateInput{Code: rate.Code, Name: rate.Name, Rate: rate.Rate}
	return h.rateForm(w, r, form, "/admin/rates/"+rate.ID, nil)
}

func (h *AdminHandler) updateRate(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id := chi.URLParam(r, "id")
	var in service.RateInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.rates.Update(r.Context(), id, in)
	}
	if err != nil {
		return h.rateForm(w, r, &in, "/admin/rates/"+id, err)
	}
	return h.done(w, r, nil, "Курс сохранён", "/admin/rates")
}

func (h *AdminHandler) deleteRate(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	err := h.rates.Delete(r.Context(), chi.URLParam(r, "id"))
	return h.done(w, r, err, "Курс удалён", "/admin/rates")
}
