package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dfryer1193/commotion/blog/application"
	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/dfryer1193/commotion/blog/persistence"
	"github.com/dfryer1193/commotion/internal/middleware"
	"github.com/dfryer1193/commotion/internal/rest"
	"github.com/dfryer1193/commotion/shared/db/sqlite"
	webhook "github.com/dfryer1193/commotion/webhook/http"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the blog over HTTP",
	Long: `Serve the blog over HTTP.

With --mirror the posts are imported into a SQLite database on startup and
served from there. --webhook-secret then enables POST /webhook/git, which
re-imports whenever the default branch of the blog repository is pushed to.
The webhook needs both --mirror and github://owner/repo storage so that the
re-import reads the pushed content; serve refuses to start otherwise.`,
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&cfg.Host, "host", cfg.Host, "address to listen on")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flags.StringVar(&cfg.Mirror, "mirror", cfg.Mirror, "SQLite database to import posts into and serve from")
	flags.StringVar(&cfg.WebhookSecret, "webhook-secret", cfg.WebhookSecret, "GitHub webhook secret; requires --mirror and github:// storage")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	storage, closer, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	var webhookRepo string
	if cfg.WebhookSecret != "" {
		if webhookRepo, err = webhookRepository(storage, cfg.Mirror); err != nil {
			return err
		}
	}

	renderer := application.NewMarkdownRenderer()
	service := application.NewPostService(storage, renderer)

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.CustomRecovery(middleware.HandlePanics()))

	if cfg.Mirror != "" {
		database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: cfg.Mirror})
		if err := database.Connect(ctx); err != nil {
			return fmt.Errorf("failed to open mirror: %w", err)
		}
		defer database.Close()

		mirror := persistence.NewPostRepository(database.DB())
		if _, err := service.Import(ctx, mirror); err != nil {
			log.Error().Err(err).Msg("Initial import finished with errors")
		}

		syncer := application.NewSyncer(service, mirror)
		defer func() {
			if err := syncer.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to gracefully close syncer")
			}
		}()

		if cfg.WebhookSecret != "" {
			webhook.NewWebhookHandler(cfg.WebhookSecret, webhookRepo, syncer).RegisterRoutes(router)
		}

		service = application.NewPostService(mirror, renderer)
	}

	rest.NewApi(router, service)

	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}

// webhookRepository returns the repository push events are accepted for.
// Re-imports only see new content when posts are read from GitHub and
// served from a mirror.
func webhookRepository(storage domain.Storage, mirror string) (string, error) {
	if mirror == "" {
		return "", errors.New("--webhook-secret requires --mirror")
	}
	source, ok := storage.(*persistence.GitHubStorage)
	if !ok {
		return "", errors.New("--webhook-secret requires github://owner/repo storage")
	}
	return source.RepoFullName(), nil
}
