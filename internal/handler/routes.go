package handler

import (
	"io/fs"
	"net/http"

	"finance-hub/internal/auth"
	"finance-hub/internal/config"
	"finance-hub/internal/logger"
	"finance-hub/internal/metrics"
	appmw "finance-hub/internal/middleware"
	"finance-hub/internal/service"
	"finance-hub/internal/session"
	"finance-hub/internal/view"

	"github.com/casbin/casbin/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services groups the application services the handlers call.
type Services struct {
	Auth       *service.AuthService
	Categories *service.CategoryService
	Offers     *service.OfferService
	Articles   *service.ArticleService
	News       *service.NewsService
	Forum      *service.ForumService
	Rates      *service.RateService
	Newsletter *service.NewsletterService
	Dashboard  *service.DashboardService
	Assist     *service.AssistService
	Sitemap    *service.SitemapService
}

// Options carries the infrastructure the router is built on.
type Options struct {
	View     *view.View
	Sessions session.Manager
	Enforcer casbin.IEnforcer
	Log      logger.Logger
	// OIDC is nil when external sign-in is disabled.
	OIDC     *auth.Authenticator
	Settings view.Settings
	// Metrics is nil when the Prometheus endpoint is disabled.
	Metrics     *metrics.Metrics
	MetricsPath string
	Scraper     config.ScraperConfig
	// Static is rooted at the asset directory.
	Static fs.FS
}

// NewRouter creates and configures a new chi router.
func NewRouter(s Services, o Options) *chi.Mux {
	resp := responder{view: o.View, sessions: o.Sessions, log: o.Log}
	public := NewPublicHandler(resp, s.Categories, s.Offers, s.Articles, s.News, s.Rates, s.Newsletter, o.Settings.BaseURL)
	forum := NewForumHandler(resp, s.Forum)
	accounts := NewAuthHandler(resp, s.Auth, o.OIDC)
	seo := NewSeoHandler(resp, s.Sitemap)
	admin := NewAdminHandler(resp, s, o.Scraper)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmw.RequestLogger(o.Log))
	r.Use(middleware.Recoverer)
	if o.Metrics != nil {
		r.Use(o.Metrics.Middleware)
	}

	// Assets, crawler files and metrics skip the session entirely.
	if o.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(o.Static))))
	}
	r.Get("/robots.txt", seo.robotsHandler)
	r.Get("/sitemap.xml", seo.sitemapHandler)
	if o.Metrics != nil {
		path := o.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, o.Metrics.Handler())
	}

	h := appmw.Error(o.Log, o.View)

	r.Group(func(r chi.Router) {
		r.Use(o.Sessions.LoadAndSave)
		r.Use(appmw.Settings(o.Settings))
		r.Use(appmw.LoadUser(o.Sessions, s.Auth, o.Log))

		r.Method(http.MethodGet, "/sitemap.html", h(seo.sitemapPage))

		r.Group(func(r chi.Router) {
			r.Use(appmw.Authorizer(o.Enforcer, o.Log))

			// Public pages
			r.Method(http.MethodGet, "/", h(public.home))
			r.Method(http.MethodGet, "/offers", h(public.offersPage))
			r.Method(http.MethodGet, "/articles", h(public.articlesPage))
			r.Method(http.MethodGet, "/articles/{slug}", h(public.article))
			r.Method(http.MethodGet, "/news", h(public.newsPage))
			r.Method(http.MethodGet, "/news/{slug}", h(public.newsItem))
			r.Method(http.MethodGet, "/rates", h(public.ratesPage))
			r.Method(http.MethodGet, "/search", h(public.search))
			r.Method(http.MethodPost, "/newsletter", h(public.subscribe))

			// Forum
			r.Method(http.MethodGet, "/forum", h(forum.index))
			r.Method(http.MethodGet, "/forum/category/{id}", h(forum.category))
			r.Method(http.MethodPost, "/forum/category/{id}/topics", h(forum.createTopic))
			r.Method(http.MethodGet, "/forum/topic/{id}", h(forum.topic))
			r.Method(http.MethodPost, "/forum/topic/{id}/reply", h(forum.reply))

			// Accounts
			r.Method(http.MethodGet, "/login", h(accounts.loginPage))
			r.Method(http.MethodPost, "/login", h(accounts.login))
			r.Method(http.MethodGet, "/register", h(accounts.registerPage))
			r.Method(http.MethodPost, "/register", h(accounts.register))
			r.Method(http.MethodGet, "/forgot-password", h(accounts.forgotPage))
			r.Method(http.MethodPost, "/forgot-password", h(accounts.forgot))
			r.Method(http.MethodGet, "/reset-password", h(accounts.resetPage))
			r.Method(http.MethodPost, "/reset-password", h(accounts.reset))
			r.Method(http.MethodPost, "/logout", h(accounts.logout))
			r.Method(http.MethodGet, "/auth/oidc/login", h(accounts.handleLogin))
			r.Method(http.MethodGet, "/auth/oidc/callback", h(accounts.handleCallback))

			r.Route("/admin", func(r chi.Router) {
				r.Method(http.MethodGet, "/", h(admin.dashboardPage))
				r.Method(http.MethodPost, "/seed", h(admin.seed))
				r.Method(http.MethodGet, "/sitemap", h(admin.sitemapPage))
				r.Method(http.MethodPost, "/sitemap/refresh", h(admin.refreshSitemap))

				r.Method(http.MethodGet, "/categories", h(admin.categoriesPage))
				r.Method(http.MethodGet, "/categories/new", h(admin.newCategory))
				r.Method(http.MethodPost, "/categories", h(admin.createCategory))
				r.Method(http.MethodGet, "/categories/{id}", h(admin.editCategory))
				r.Method(http.MethodPost, "/categories/{id}", h(admin.updateCategory))
				r.Method(http.MethodPost, "/categories/{id}/delete", h(admin.deleteCategory))

				r.Method(http.MethodGet, "/offers", h(admin.offersPage))
				r.Method(http.MethodGet, "/offers/new", h(admin.newOffer))
				r.Method(http.MethodPost, "/offers", h(admin.createOffer))
				r.Method(http.MethodGet, "/offers/{id}", h(admin.editOffer))
				r.Method(http.MethodPost, "/offers/{id}", h(admin.updateOffer))
				r.Method(http.MethodPost, "/offers/{id}/delete", h(admin.deleteOffer))

				r.Method(http.MethodGet, "/articles", h(admin.articlesPage))
				r.Method(http.MethodGet, "/articles/new", h(admin.newArticle))
				r.Method(http.MethodPost, "/articles", h(admin.createArticle))
				r.Method(http.MethodGet, "/articles/{id}", h(admin.editArticle))
				r.Method(http.MethodPost, "/articles/{id}", h(admin.updateArticle))
				r.Method(http.MethodPost, "/articles/{id}/delete", h(admin.deleteArticle))

				r.Method(http.MethodGet, "/news", h(admin.newsPage))
				r.Method(http.MethodGet, "/news/new", h(admin.newNews))
				r.Method(http.MethodPost, "/news", h(admin.createNews))
				r.Method(http.MethodGet, "/news/import", h(admin.newsImport))
				r.Method(http.MethodPost, "/news/import/scrape", h(admin.scrapePage))
				r.Method(http.MethodPost, "/news/import/listing", h(admin.scrapeListing))
				r.Method(http.MethodPost, "/news/import/feed", h(admin.importFeed))
				r.Method(http.MethodPost, "/news/import/rewrite", h(admin.rewriteItem))
				r.Method(http.MethodPost, "/news/import/publish", h(admin.publishNews))
				r.Method(http.MethodGet, "/news/{id}", h(admin.editNews))
				r.Method(http.MethodPost, "/news/{id}", h(admin.updateNews))
				r.Method(http.MethodPost, "/news/{id}/delete", h(admin.deleteNews))

				r.Method(http.MethodGet, "/rates", h(admin.ratesPage))
				r.Method(http.MethodGet, "/rates/new", h(admin.newRate))
				r.Method(http.MethodPost, "/rates", h(admin.createRate))
				r.Method(http.MethodGet, "/rates/{id}", h(admin.editRate))
				r.Method(http.MethodPost, "/rates/{id}", h(admin.updateRate))
				r.Method(http.MethodPost, "/rates/{id}/delete", h(admin.deleteRate))

				r.Method(http.MethodGet, "/forum", h(admin.forumPage))
				r.Method(http.MethodGet, "/forum/topics/new", h(admin.newTopic))
				r.Method(http.MethodPost, "/forum/topics", h(admin.createTopic))
				r.Method(http.MethodGet, "/forum/topics/{id}", h(admin.editTopic))
				r.Method(http.MethodPost, "/forum/topics/{id}", h(admin.updateTopic))
				r.Method(http.MethodPost, "/forum/topics/{id}/approve", h(admin.approveTopic))
				r.Method(http.MethodPost, "/forum/topics/{id}/pin", h(admin.pinTopic))
				r.Method(http.MethodPost, "/forum/topics/{id}/lock", h(admin.lockTopic))
				r.Method(http.MethodPost, "/forum/topics/{id}/delete", h(admin.deleteTopic))
				r.Method(http.MethodPost, "/forum/posts/{id}/approve", h(admin.approvePost))
				r.Method(http.MethodPost, "/forum/posts/{id}/delete", h(admin.deletePost))

				r.Method(http.MethodGet, "/ai", h(admin.ai))
				r.Method(http.MethodPost, "/ai/generate", h(admin.generate))
				r.Method(http.MethodPost, "/ai/rewrite", h(admin.rewrite))
				r.Method(http.MethodPost, "/ai/publish", h(admin.publishArticle))
			})
		})
	})

	// Unknown paths land on the home page.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})

	return r
}
