package handler

import (
	"errors"
	"net/http"

	"finance-hub/internal/content"
	"finance-hub/internal/data"
	"finance-hub/internal/middleware"
	"finance-hub/internal/service"

	"github.com/go-chi/chi/v5"
)

const latestNewsOnHome = 3

// PublicHandler serves the public content pages.
type PublicHandler struct {
	responder
	categories *service.CategoryService
	offers     *service.OfferService
	articles   *service.ArticleService
	news       *service.NewsService
	rates      *service.RateService
	newsletter *service.NewsletterService
	baseURL    string
}

// NewPublicHandler creates a PublicHandler.
func NewPublicHandler(r responder, categories *service.CategoryService, offers *service.OfferService, articles *service.ArticleService, news *service.NewsService, rates *service.RateService, newsletter *service.NewsletterService, baseURL string) *PublicHandler {
	return &PublicHandler{
		responder:  r,
		categories: categories,
		offers:     offers,
		articles:   articles,
		news:       news,
		rates:      rates,
		newsletter: newsletter,
		baseURL:    baseURL,
	}
}

func filterFrom(r *http.Request) service.Filter {
	q := r.URL.Query()
	return service.Filter{Query: q.Get("q"), CategoryID: q.Get("category")}
}

// home renders featured content, the rates widget and the credit calculator.
func (h *PublicHandler) home(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	offers, err := h.offers.Featured(ctx, service.FeaturedOffersLimit)
	if err != nil {
		return fail(err, "Failed to load featured offers")
	}
	articles, err := h.articles.Featured(ctx, service.FeaturedArticlesLimit)
	if err != nil {
		return fail(err, "Failed to load featured articles")
	}
	news, err := h.news.Latest(ctx, latestNewsOnHome)
	if err != nil {
		return fail(err, "Failed to load news")
	}
	rates, err := h.rates.List(ctx)
	if err != nil {
		return fail(err, "Failed to load rates")
	}

	calc := service.CalculatorInput{Amount: 1000000, Rate: 12, Months: 60}
	pageData := map[string]interface{}{
		"FeaturedOffers":   offers,
		"FeaturedArticles": articles,
		"LatestNews":       news,
		"Rates":            rates,
		"Calc":             &calc,
	}
	if r.URL.Query().Has("amount") {
		err := decodeForm(r, &calc)
		if err == nil {
			var payment *service.Payment
			if payment, err = service.Annuity(calc); err == nil {
				pageData["Payment"] = payment
			}
		}
		if err != nil {
			msg, _ := describe(err)
			pageData["CalcError"] = msg
			var ve *service.ValidationError
			if errors.As(err, &ve) {
				pageData["Errors"] = ve.Fields
			}
		}
	}
	return h.page(w, r, "home.html", pageData)
}

func (h *PublicHandler) offersPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	f := filterFrom(r)
	offers, err := h.offers.List(ctx, f)
	if err != nil {
		return fail(err, "Failed to load offers")
	}
	categories, err := h.categories.List(ctx, data.KindOffer)
	if err != nil {
		return fail(err, "Failed to load categories")
	}
	return h.page(w, r, "offers.html", map[string]interface{}{
		"Title":      "Кредитные предложения",
		"Offers":     offers,
		"Categories": categories,
		"Query":      f.Query,
		"CategoryID": f.CategoryID,
	})
}

func (h *PublicHandler) articlesPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	f := filterFrom(r)
	articles, err := h.articles.List(ctx, f)
	if err != nil {
		return fail(err, "Failed to load articles")
	}
	categories, err := h.categories.List(ctx, data.KindArticle)
	if err != nil {
		return fail(err, "Failed to load categories")
	}
	return h.page(w, r, "articles.html", map[string]interface{}{
		"Title":      "Статьи",
		"Articles":   articles,
		"Categories": categories,
		"Query":      f.Query,
		"CategoryID": f.CategoryID,
	})
}

func (h *PublicHandler) article(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	a, err := h.articles.View(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		return fail(err, "Failed to load article")
	}
	return h.page(w, r, "article.html", map[string]interface{}{
		"Title":           a.Title,
		"MetaDescription": content.Truncate(a.Content, service.MetaDescriptionRunes),
		"Canonical":       h.baseURL + "/articles/" + a.Slug,
		"Article":         a,
	})
}

func (h *PublicHandler) newsPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	f := filterFrom(r)
	items, err := h.news.List(ctx, f)
	if err != nil {
		return fail(err, "Failed to load news")
	}
	featured, err := h.news.Featured(ctx, service.FeaturedNewsLimit)
	if err != nil {
		return fail(err, "Failed to load featured news")
	}
	categories, err := h.categories.List(ctx, data.KindNews)
	if err != nil {
		return fail(err, "Failed to load categories")
	}
	return h.page(w, r, "news.html", map[string]interface{}{
		"Title":      "Новости",
		"News":       items,
		"Featured":   featured,
		"Categories": categories,
		"Query":      f.Query,
		"CategoryID": f.CategoryID,
	})
}

func (h *PublicHandler) newsItem(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	n, err := h.news.View(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		return fail(err, "Failed to load news item")
	}
	related, err := h.news.Related(ctx, n, service.RelatedNewsLimit)
	if err != nil {
		return fail(err, "Failed to load related news")
	}
	return h.page(w, r, "news_item.html", map[string]interface{}{
		"Title":           n.MetaTitle,
		"MetaDescription": n.MetaDescription,
		"Canonical":       h.baseURL + "/news/" + n.Slug,
		"Item":            n,
		"Related":         related,
	})
}

func (h *PublicHandler) ratesPage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	rates, err := h.rates.List(r.Context())
	if err != nil {
		return fail(err, "Failed to load rates")
	}
	return h.page(w, r, "rates.html", map[string]interface{}{
		"Title": "Курсы валют",
		"Rates": rates,
	})
}

// search runs the same text filter over offers, articles and news.
func (h *PublicHandler) search(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	f := service.Filter{Query: r.URL.Query().Get("q")}
	pageData := map[string]interface{}{
		"Title": "Поиск",
		"Query": f.Query,
	}
	if f.Query != "" {
		offers, err := h.offers.List(ctx, f)
		if err != nil {
			return fail(err, "Failed to search offers")
		}
		articles, err := h.articles.List(ctx, f)
		if err != nil {
			return fail(err, "Failed to search articles")
		}
		news, err := h.news.List(ctx, f)
		if err != nil {
			return fail(err, "Failed to search news")
		}
		pageData["Offers"] = offers
		pageData["Articles"] = articles
		pageData["News"] = news
		pageData["Total"] = len(offers) + len(articles) + len(news)
	}
	return h.page(w, r, "search.html", pageData)
}

func (h *PublicHandler) subscribe(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var in service.SubscribeInput
	err := decodeForm(r, &in)
	if err == nil {
		_, err = h.newsletter.Subscribe(r.Context(), in, currentUser(r).ID)
	}
	return h.done(w, r, err, "Спасибо! Вы подписались на рассылку", back(r, "/"))
}
