// Package main is the entry point for the bookfinder service. It serves a
// book discovery API backed by the Google Books catalog, with per-user
// favorites, reading lists and reviews, and an offline cache fallback.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/bookfinder/bookfinder/internal/api/googlebooks"
	"github.com/bookfinder/bookfinder/internal/api/hardcover"
	"github.com/bookfinder/bookfinder/internal/auth"
	"github.com/bookfinder/bookfinder/internal/cache"
	"github.com/bookfinder/bookfinder/internal/config"
	"github.com/bookfinder/bookfinder/internal/connectivity"
	"github.com/bookfinder/bookfinder/internal/library"
	"github.com/bookfinder/bookfinder/internal/logger"
	"github.com/bookfinder/bookfinder/internal/server"
	"github.com/bookfinder/bookfinder/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "bookfinder",
		Usage:   "Book discovery service with favorites, reviews and offline cache",
		Version: fmt.Sprintf("%s (%s) %s", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: runServe,
			},
			{
				Name:      "search",
				Usage:     "Run a one-off catalog search and print the results as JSON",
				ArgsUsage: "QUERY",
				Action:    runSearch,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Get().Error("Error running application", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Setup(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     logger.ParseLogFormat(cfg.Logging.Format),
		Output:     os.Stdout,
		TimeFormat: time.RFC3339,
	})
	return cfg, nil
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger.Get()

	log.Info("Starting bookfinder", map[string]interface{}{
		"version":    version,
		"log_level":  cfg.Logging.Level,
		"log_format": cfg.Logging.Format,
	})

	db, err := store.NewDatabase(cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	cacheStore, err := cache.NewFileStore(cfg.Cache.Dir, log)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	users := store.NewRepository(db, log)

	authRepo := auth.NewRepository(db.GetDB())
	if err := authRepo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate auth tables: %w", err)
	}
	authService := auth.NewService(authRepo, users, cfg.Auth.SessionTTL, log)

	catalog := googlebooks.NewClient(cfg.Catalog.URL, log)
	checker := connectivity.NewHTTPChecker(cfg.Catalog.URL, log)

	var ratings library.RatingProvider
	if cfg.Hardcover.Token != "" {
		ratings = hardcover.NewClientWithConfig(cfg.Hardcover.Token, hardcover.ClientConfig{
			BaseURL: cfg.Hardcover.URL,
		}, log)
	}

	lib := library.NewService(catalog, users, cacheStore, checker, ratings, cfg.Catalog.MaxResults, log)

	srv := server.New(":"+cfg.Server.Port, lib, users, cacheStore, authService, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	log.Info("Shutdown complete", nil)
	return nil
}

func runSearch(c *cli.Context) error {
	query := c.Args().First()
	if query == "" {
		return cli.Exit("usage: bookfinder search QUERY", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	catalog := googlebooks.NewClient(cfg.Catalog.URL, logger.Get())

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	books, err := catalog.Search(ctx, query, cfg.Catalog.MaxResults)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(books)
}
