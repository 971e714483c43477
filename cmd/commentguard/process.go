package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ykihara/commentguard/internal/engine"
	"github.com/ykihara/commentguard/internal/llm"
	"github.com/ykihara/commentguard/internal/storage"
	"github.com/ykihara/commentguard/internal/youtube"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run one moderation batch and exit",
		Long: `Fetch new comments from the authenticated channel's recent videos,
classify them, apply moderation, and record the results. Uses the
credentials stored by a previous login.`,
		RunE: runProcess,
	}

	cmd.Flags().Bool("json", false, "Print the batch result as JSON")

	return cmd
}

func runProcess(cmd *cobra.Command, _ []string) error {
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

	credentialsJSON, err := store.GetLatestCredentials(ctx)
	if err != nil {
		return fmt.Errorf("no stored credentials, run 'commentguard auth login' first: %w", err)
	}

	gateway, err := youtube.NewClient(ctx, credentialsJSON, logger)
	if err != nil {
		return fmt.Errorf("failed to build youtube client: %w", err)
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

	result := engine.New(store, classifier, gateway, engine.Config{
		ToxicityThreshold: settings.ToxicityThreshold,
		HoldThreshold:     settings.HoldThreshold,
		MaxVideos:         settings.MaxVideos,
		MaxComments:       settings.MaxComments,
		BanAuthors:        settings.BanAuthors,
	}).ProcessBatch(ctx)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	logger.Info("batch finished",
		"processed", result.ProcessedCount,
		"hidden", result.HiddenCount,
		"held", result.HeldCount)
	for _, e := range result.Errors {
		logger.Warn("batch error", "error", e)
	}
	return nil
}
