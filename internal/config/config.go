// Package config loads and validates application settings.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/ykihara/commentguard/internal/common"
)

// Settings holds all runtime configuration, loaded via viper from the config
// file and COMMENTGUARD_* environment variables.
type Settings struct {
	// Server
	ListenAddr  string
	FrontendURL string
	CORSOrigins []string

	// Storage
	DatabasePath string

	// Processing
	ToxicityThreshold int // comments scoring at or above are rejected
	HoldThreshold     int // comments scoring at or above are held for review
	MaxVideos         int64
	MaxComments       int64
	BanAuthors        bool

	// Scheduler
	ProcessInterval time.Duration

	// Classifier
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   int
	CacheTTL    time.Duration
	Temperature float64
	MaxTokens   int

	// OAuth
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRedirectURL  string
	SessionTTL        time.Duration
}

// SetDefaults registers defaults on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.frontend_url", "http://localhost:5173")

	v.SetDefault("storage.path", "commentguard.db")

	v.SetDefault("processing.toxicity_threshold", 70)
	v.SetDefault("processing.hold_threshold", 50)
	v.SetDefault("processing.max_videos", 5)
	v.SetDefault("processing.max_comments", 50)
	v.SetDefault("processing.interval", "15m")
	v.SetDefault("processing.ban_authors", false)

	v.SetDefault("classifier.provider", "gemini")
	v.SetDefault("classifier.model", "")
	v.SetDefault("classifier.max_retries", 3)
	v.SetDefault("classifier.retry_delay", "1s")
	v.SetDefault("classifier.rate_limit", 60)
	v.SetDefault("classifier.cache_ttl", "15m")
	v.SetDefault("classifier.temperature", 0.2)
	v.SetDefault("classifier.max_tokens", 512)

	v.SetDefault("auth.session_ttl", "168h") // 7 days
}

// Load builds Settings from the given viper instance.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		ListenAddr:  v.GetString("server.listen_addr"),
		FrontendURL: v.GetString("server.frontend_url"),
		CORSOrigins: v.GetStringSlice("server.cors_origins"),

		DatabasePath: v.GetString("storage.path"),

		ToxicityThreshold: v.GetInt("processing.toxicity_threshold"),
		HoldThreshold:     v.GetInt("processing.hold_threshold"),
		MaxVideos:         v.GetInt64("processing.max_videos"),
		MaxComments:       v.GetInt64("processing.max_comments"),
		BanAuthors:        v.GetBool("processing.ban_authors"),
		ProcessInterval:   v.GetDuration("processing.interval"),

		Provider:    v.GetString("classifier.provider"),
		APIKey:      v.GetString("classifier.api_key"),
		Model:       v.GetString("classifier.model"),
		MaxRetries:  v.GetInt("classifier.max_retries"),
		RetryDelay:  v.GetDuration("classifier.retry_delay"),
		RateLimit:   v.GetInt("classifier.rate_limit"),
		CacheTTL:    v.GetDuration("classifier.cache_ttl"),
		Temperature: v.GetFloat64("classifier.temperature"),
		MaxTokens:   v.GetInt("classifier.max_tokens"),

		OAuthClientID:     v.GetString("auth.client_id"),
		OAuthClientSecret: v.GetString("auth.client_secret"),
		OAuthRedirectURL:  v.GetString("auth.redirect_url"),
		SessionTTL:        v.GetDuration("auth.session_ttl"),
	}

	if len(s.CORSOrigins) == 0 && s.FrontendURL != "" {
		s.CORSOrigins = []string{s.FrontendURL}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks invariants that must hold before the pipeline runs.
// Behavior with hold_threshold > toxicity_threshold is undefined, so it is
// rejected at startup.
func (s *Settings) Validate() error {
	if s.ToxicityThreshold < 0 || s.ToxicityThreshold > 100 {
		return fmt.Errorf("%w: toxicity_threshold %d outside [0,100]", common.ErrInvalidConfig, s.ToxicityThreshold)
	}
	if s.HoldThreshold < 0 || s.HoldThreshold > 100 {
		return fmt.Errorf("%w: hold_threshold %d outside [0,100]", common.ErrInvalidConfig, s.HoldThreshold)
	}
	if s.HoldThreshold > s.ToxicityThreshold {
		return fmt.Errorf("%w: hold_threshold %d exceeds toxicity_threshold %d",
			common.ErrInvalidConfig, s.HoldThreshold, s.ToxicityThreshold)
	}
	if s.MaxVideos <= 0 {
		return fmt.Errorf("%w: max_videos must be positive", common.ErrInvalidConfig)
	}
	if s.MaxComments <= 0 {
		return fmt.Errorf("%w: max_comments must be positive", common.ErrInvalidConfig)
	}
	if s.DatabasePath == "" {
		return fmt.Errorf("%w: storage.path is required", common.ErrMissingConfig)
	}
	return nil
}
