package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ykihara/commentguard/internal/auth"
	"github.com/ykihara/commentguard/internal/engine"
	"github.com/ykihara/commentguard/internal/llm"
	"github.com/ykihara/commentguard/internal/model"
	"github.com/ykihara/commentguard/internal/scheduler"
	"github.com/ykihara/commentguard/internal/server"
	"github.com/ykihara/commentguard/internal/service"
	"github.com/ykihara/commentguard/internal/storage"
	"github.com/ykihara/commentguard/internal/youtube"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and background scheduler",
		Long: `Start the HTTP API for the dashboard and the background scheduler
that periodically fetches and moderates new comments.`,
		RunE: runServe,
	}

	cmd.Flags().Bool("no-scheduler", false, "Serve the API without the background processing loop")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	classifier, err := llm.NewClassifier(llm.Config{
		Provider:    settings.Provider,
		APIKey:      settings.APIKey,
		Model:       settings.Model,
		MaxRetries:  settings.MaxRetries,
		RetryDelay:  settings.RetryDelay,
		CacheTTL:    settings.CacheTTL,
		RateLimit:   settings.RateLimit,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}
	defer func() { _ = classifier.Close() }()

	sessions := auth.NewMemorySessionStore(settings.SessionTTL)
	defer sessions.Close()

	var flow server.OAuthFlow
	if settings.OAuthClientID != "" && settings.OAuthClientSecret != "" {
		f, err := auth.NewFlow(settings.OAuthClientID, settings.OAuthClientSecret, settings.OAuthRedirectURL)
		if err != nil {
			return fmt.Errorf("failed to configure oauth: %w", err)
		}
		flow = f
	} else {
		logger.Warn("oauth client not configured; login endpoints disabled")
	}

	newGateway := func(ctx context.Context, credentialsJSON string) (service.CommentGateway, error) {
		return youtube.NewClient(ctx, credentialsJSON, logger)
	}

	srv := server.New(settings, server.Deps{
		Storage:    store,
		Classifier: classifier,
		Sessions:   sessions,
		Flow:       flow,
		NewGateway: newGateway,
		Logger:     logger,
	})

	noScheduler, _ := cmd.Flags().GetBool("no-scheduler")
	if !noScheduler {
		runBatch := func(ctx context.Context) *model.BatchResult {
			credentialsJSON, err := store.GetLatestCredentials(ctx)
			if err != nil {
				return &model.BatchResult{Errors: []string{fmt.Sprintf("no usable credentials: %v", err)}}
			}
			gateway, err := newGateway(ctx, credentialsJSON)
			if err != nil {
				return &model.BatchResult{Errors: []string{fmt.Sprintf("failed to build youtube client: %v", err)}}
			}
			return engine.New(store, classifier, gateway, engine.Config{
				ToxicityThreshold: settings.ToxicityThreshold,
				HoldThreshold:     settings.HoldThreshold,
				MaxVideos:         settings.MaxVideos,
				MaxComments:       settings.MaxComments,
				BanAuthors:        settings.BanAuthors,
			}).ProcessBatch(ctx)
		}

		sched := scheduler.New(settings.ProcessInterval, runBatch, logger)
		sched.Start(ctx)
		defer sched.Wait()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	if err := srv.Listen(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
