package main

import (
	"context"
	"fmt"
	"os"

	"finance-hub/internal/app"
	"finance-hub/internal/config"
	"finance-hub/internal/data"
	"finance-hub/internal/logger"

	"github.com/spf13/cobra"
)

func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, logger.New(cfg.Log, os.Stderr), nil
}

// withApp builds the portal, runs fn and closes it again.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	portal, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer portal.Close()
	return fn(portal)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := data.NewDB(cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := data.ApplyMigrations(db, cfg.DB.Driver, cfg.DB.MigrationsPath); err != nil {
			return err
		}
		log.Info("Migrations applied successfully.")
		return nil
	},
}

var grantAdminCmd = &cobra.Command{
	Use:   "grant-admin <email>",
	Short: "Give a registered account the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			if err := a.Services.Auth.GrantAdminByEmail(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", args[0])
			return nil
		})
	},
}

var revokeAdminCmd = &cobra.Command{
	Use:   "revoke-admin <email>",
	Short: "Remove the admin role from an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			if err := a.Services.Auth.RevokeAdminByEmail(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is no longer an admin\n", args[0])
			return nil
		})
	},
}

var seedDemoCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Load demo categories, offers, articles, news and rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			if err := a.Services.Dashboard.SeedDemo(cmd.Context()); err != nil {
				return err
			}
			stats, err := a.Services.Dashboard.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "offers: %d, articles: %d, news: %d, categories: %d\n",
				stats.Offers, stats.Articles, stats.News, stats.Categories)
			return nil
		})
	},
}

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Print sitemap.xml to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			a.Services.Sitemap.ContentChanged(cmd.Context())
			body, err := a.Services.Sitemap.XML(cmd.Context())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, grantAdminCmd, revokeAdminCmd, seedDemoCmd, sitemapCmd)
}
