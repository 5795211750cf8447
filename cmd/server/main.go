package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finance-hub/internal/app"
	"finance-hub/internal/auth"
	"finance-hub/internal/config"
	"finance-hub/internal/handler"
	"finance-hub/internal/logger"
	"finance-hub/internal/session"
	"finance-hub/internal/view"
	"finance-hub/web"
)

const (
	limiterIdle     = 30 * time.Minute
	maintenanceTick = 10 * time.Minute
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, os.Stdout)

	// --- Pre-flight Checks ---
	if cfg.Session.SecretKey == "" || cfg.Session.SecretKey == "CHANGE_ME_IN_PRODUCTION_SECRET!!" {
		log.Fatal(errors.New("session secret key not set"), "Please set a secure HUB_SESSION_SECRETKEY environment variable.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database, Policies and Services ---
	portal, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal(err, "Failed to initialize application")
	}
	defer portal.Close()
	log.Info("Database ready and policies seeded.")

	// --- Session Management Setup ---
	sessionManager, err := session.New(cfg.Session, cfg.DB.Driver, portal.DB, cfg.Server.TLS.Enabled)
	if err != nil {
		log.Fatal(err, "Failed to initialize sessions")
	}

	// --- Optional OIDC Sign-in ---
	var authenticator *auth.Authenticator
	if cfg.OIDC.Enabled {
		authenticator, err = auth.NewAuthenticator(ctx, &cfg.OIDC)
		if err != nil {
			log.Fatal(err, "Failed to initialize authenticator")
		}
		log.Info("OIDC sign-in enabled.")
	}

	// --- View Template Initialization ---
	viewService, err := view.New(web.TemplateFS, portal.Text)
	if err != nil {
		log.Fatal(err, "Failed to initialize view templates")
	}
	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		log.Fatal(err, "Failed to open static assets")
	}

	// --- Router Setup ---
	router := handler.NewRouter(portal.Services, handler.Options{
		View:     viewService,
		Sessions: sessionManager,
		Enforcer: portal.Enforcer,
		Log:      log,
		OIDC:     authenticator,
		Settings: view.Settings{
			SiteName:    cfg.Site.Name,
			BaseURL:     cfg.Site.BaseURL,
			OIDCEnabled: authenticator != nil,
		},
		Metrics:     portal.Metrics,
		MetricsPath: cfg.Metrics.Path,
		Scraper:     cfg.Scraper,
		Static:      static,
	})

	go maintain(ctx, portal, log)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()

	<-ctx.Done()
	log.Warn("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}

// maintain forgets idle login limiters and drops expired cache rows until
// ctx is cancelled.
func maintain(ctx context.Context, portal *app.App, log logger.Logger) {
	ticker := time.NewTicker(maintenanceTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			portal.Services.Auth.SweepLimiter(limiterIdle)
			n, err := portal.Cache.Purge(ctx)
			if err != nil {
				log.Error(err, "Failed to purge cache")
				continue
			}
			if n > 0 {
				log.With(map[string]interface{}{"rows": n}).Debug("cache purged")
			}
		}
	}
}
