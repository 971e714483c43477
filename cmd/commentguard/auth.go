package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ykihara/commentguard/internal/auth"
	"github.com/ykihara/commentguard/internal/common"
	"github.com/ykihara/commentguard/internal/storage"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with YouTube",
		Long:  `Run the Google OAuth flow and store credentials for background processing.`,
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authStatusCmd())

	return cmd
}

func authLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in with Google and store YouTube credentials",
		Long: `Start a temporary local web server, open the Google consent screen in
your browser, and store the resulting credentials so 'process' and the
background scheduler can run without a browser session.`,
		RunE: runAuthLogin,
	}
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if settings.OAuthClientID == "" || settings.OAuthClientSecret == "" {
		return fmt.Errorf("%w: auth.client_id and auth.client_secret are required", common.ErrMissingConfig)
	}

	redirect, err := url.Parse(settings.OAuthRedirectURL)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("%w: auth.redirect_url %q is not a valid URL", common.ErrInvalidConfig, settings.OAuthRedirectURL)
	}

	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	flow, err := auth.NewFlow(settings.OAuthClientID, settings.OAuthClientSecret, settings.OAuthRedirectURL)
	if err != nil {
		return fmt.Errorf("failed to configure oauth: %w", err)
	}

	state := fmt.Sprintf("cli-%d", time.Now().UnixNano())
	doneChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errChan <- fmt.Errorf("oauth state mismatch")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errChan <- fmt.Errorf("callback without authorization code")
			return
		}
		fmt.Fprintln(w, "Authenticated. You can close this tab and return to the terminal.")
		doneChan <- code
	})

	server := &http.Server{Addr: redirect.Host, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	defer func() { _ = server.Shutdown(ctx) }()

	authURL := flow.AuthURL(state)
	logger.Info("If the browser doesn't open, visit:", "url", authURL)
	openBrowser(authURL)

	var code string
	select {
	case code = <-doneChan:
	case err := <-errChan:
		return err
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for authorization")
	case <-ctx.Done():
		return ctx.Err()
	}

	token, user, err := flow.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	credentialsJSON, err := flow.CredentialsJSON(token)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err := store.SaveCredentials(ctx, user.ID, credentialsJSON); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	logger.Info("Authenticated", "user", user.Email)
	return nil
}

func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether stored credentials exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			store, err := storage.NewSQLiteStorage(settings.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			if _, err := store.GetLatestCredentials(cmd.Context()); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					fmt.Println("Not authenticated. Run 'commentguard auth login'.")
					return nil
				}
				return err
			}
			fmt.Println("Credentials stored. Background processing can run.")
			return nil
		},
	}
}

// openBrowser tries to open the URL in the default browser.
func openBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	}
	if err != nil {
		slog.Debug("Failed to open browser", "error", err)
	}
}
