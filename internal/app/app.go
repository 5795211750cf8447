// Package app wires configuration, storage and services into a runnable
// portal. Both the HTTP server and the admin CLI start from here.
package app

import (
	"context"
	"fmt"

	"finance-hub/internal/assist"
	"finance-hub/internal/auth"
	"finance-hub/internal/cache"
	"finance-hub/internal/config"
	"finance-hub/internal/content"
	"finance-hub/internal/data"
	"finance-hub/internal/handler"
	"finance-hub/internal/logger"
	"finance-hub/internal/metrics"
	"finance-hub/internal/service"

	"github.com/casbin/casbin/v2"
	"github.com/jmoiron/sqlx"
)

// App holds the long-lived dependencies of a running portal.
type App struct {
	Config   *config.Config
	Log      logger.Logger
	DB       *sqlx.DB
	Store    *data.Store
	Enforcer *casbin.Enforcer
	Cache    *cache.Cache
	Text     *content.Renderer
	// Metrics is nil when disabled in the configuration.
	Metrics  *metrics.Metrics
	Services handler.Services
}

// New connects to the database, applies pending migrations and builds every
// service. Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a := &App{Config: cfg, Log: log, DB: db}

	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(db, cfg.DB.Driver, cfg.DB.MigrationsPath); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	a.Enforcer, err = auth.NewEnforcer(cfg.DB.Driver, cfg.DB.DSN, cfg.Auth.ModelPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize enforcer: %w", err)
	}
	auth.SeedDefaultPolicies(a.Enforcer, log)

	a.Cache, err = cache.New(cfg.Cache)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
	}
	a.Store = data.NewStore(db)
	a.Text = content.NewRenderer()
	a.Services = a.services()

	if err := a.Services.Auth.SeedAdmins(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to seed admins: %w", err)
	}
	return a, nil
}

func (a *App) services() handler.Services {
	cfg, log, store := a.Config, a.Log, a.Store

	sitemap := service.NewSitemapService(a.Cache, cfg.Site.BaseURL, log)
	categories := service.NewCategoryService(store.Categories, map[data.Kind]service.Dependents{
		data.KindOffer:   store.Offers,
		data.KindArticle: store.Articles,
		data.KindNews:    store.News,
		data.KindForum:   store.Topics,
	}, sitemap, log)
	articles := service.NewArticleService(store.Articles, categories, sitemap)
	news := service.NewNewsService(store.News, categories, sitemap)
	forum := service.NewForumService(store.Topics, store.Posts, store.Users, categories, a.Text)
	newsletter := service.NewNewsletterService(store.Subscriptions)
	sitemap.Attach(articles, news, categories)

	scraper := assist.NewHTTPScraper(cfg.Scraper)
	var recorder service.AssistRecorder
	if a.Metrics != nil {
		recorder = a.Metrics
	}

	return handler.Services{
		Auth:       service.NewAuthService(store.Users, store.Resets, a.Enforcer, service.LogMailer{Log: log}, cfg.Auth, cfg.Site.BaseURL, log),
		Categories: categories,
		Offers:     service.NewOfferService(store.Offers, categories),
		Articles:   articles,
		News:       news,
		Forum:      forum,
		Rates:      service.NewRateService(store.Rates, sitemap),
		Newsletter: newsletter,
		Dashboard:  service.NewDashboardService(store, forum, newsletter, sitemap),
		Assist: service.NewAssistService(
			assist.NewOllamaGenerator(cfg.AI),
			scraper,
			assist.NewFeedReader(scraper.Client(), scraper.UserAgent()),
			articles, news, cfg.Scraper.LinkPatterns, recorder, log),
		Sitemap: sitemap,
	}
}

// Close releases the cache and the database.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Log.Error(err, "Failed to close cache")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Error(err, "Failed to close database")
		}
	}
}
