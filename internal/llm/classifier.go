package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ykihara/commentguard/internal/common"
	"github.com/ykihara/commentguard/internal/model"
	"github.com/ykihara/commentguard/internal/service"
)

// maxReplyRunes bounds the length of a suggested reply.
const maxReplyRunes = 200

// Classifier implements the service.Classifier interface using LLM APIs.
type Classifier struct {
	client      Client
	cache       *verdictCache
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// Config holds configuration for the LLM classifier.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// NewClassifier creates a new LLM-based classifier.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		client, err = newGeminiClient(cfg)
	case "openai":
		client, err = newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Classifier{
		client:      client,
		cache:       newVerdictCache(cfg.CacheTTL),
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// Analyze classifies a comment's toxicity and intent. Transport and auth
// failures are returned as errors; a response that is not well-formed
// structured output is substituted with the safe default verdict (mid-band
// score, complaint category) so a parse failure can neither auto-publish
// nor drop the comment.
func (c *Classifier) Analyze(ctx context.Context, text string) (model.Verdict, error) {
	key := textHash(text)
	if verdict, found := c.cache.get(key); found {
		c.logger.Debug("verdict cache hit", "text_hash", key)
		return verdict, nil
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return model.Verdict{}, fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildAnalyzePrompt(text)

	var content string
	err := common.WithRetry(ctx, func() error {
		response, err := c.client.Complete(ctx, analyzeSystemPrompt, prompt)
		if err != nil {
			c.logger.Warn("comment analysis attempt failed", "error", err)
			return &common.RetryableError{Err: err, Retryable: true}
		}
		content = response
		return nil
	}, c.retryOpts)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("%w: %v", common.ErrClassificationFailed, err)
	}

	verdict, parseErr := parseVerdict(content, text)
	if parseErr != nil {
		c.logger.Error("malformed classifier output, using safe default",
			"error", parseErr,
			"text_hash", key)
		verdict = defaultVerdict(text)
	}

	c.cache.set(key, verdict)

	c.logger.Info("comment analyzed",
		"text_hash", key,
		"category", verdict.Category,
		"toxicity_score", verdict.ToxicityScore)

	return verdict, nil
}

// SuggestReply proposes a short reply to a comment. Toxic comments never
// get a suggestion.
func (c *Classifier) SuggestReply(ctx context.Context, text string, category model.Category) (string, error) {
	if category == model.CategoryToxic {
		return "", nil
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildReplyPrompt(text, category)

	var reply string
	err := common.WithRetry(ctx, func() error {
		response, err := c.client.Complete(ctx, replySystemPrompt, prompt)
		if err != nil {
			c.logger.Warn("reply suggestion attempt failed", "error", err)
			return &common.RetryableError{Err: err, Retryable: true}
		}
		reply = strings.TrimSpace(response)
		return nil
	}, c.retryOpts)
	if err != nil {
		return "", fmt.Errorf("reply suggestion failed: %w", err)
	}

	return truncateRunes(reply, maxReplyRunes), nil
}

// Close stops background goroutines and cleans up resources.
func (c *Classifier) Close() error {
	if c.cache != nil {
		c.cache.Close()
	}
	if c.rateLimiter != nil {
		c.rateLimiter.Close()
	}
	return nil
}

const analyzeSystemPrompt = "You are a YouTube comment analysis AI. Respond with a single JSON object and nothing else."

const replySystemPrompt = "You are an assistant for a YouTube creator. Respond with the reply text only, no explanation."

// buildAnalyzePrompt creates the prompt for comment analysis.
func buildAnalyzePrompt(text string) string {
	return fmt.Sprintf(`Analyze the following YouTube comment.

Comment: %q

Report these fields:

1. toxicity_score (integer 0-100):
   - 0-30: safe (ordinary comments, support, questions)
   - 31-50: mild (somewhat critical but acceptable)
   - 51-70: moderate (contains aggressive undertones)
   - 71-100: severe (clear abuse or personal attacks)

2. category (exactly one of):
   - "positive": support, praise, gratitude
   - "question": questions, requests for clarification
   - "constructive": constructive criticism, improvement suggestions
   - "complaint": plain dissatisfaction, venting
   - "toxic": abuse, defamation, personal attacks

3. reason: a short justification for the judgment

4. mild_text: the comment rewritten as a neutral report
   - strip aggressive phrasing
   - neutralize emotional wording
   - keep only the substantive point
   - leave positive comments unchanged

Answer with JSON only (no explanation):
{"toxicity_score": number, "category": string, "reason": string, "mild_text": string}`, text)
}

// buildReplyPrompt creates the prompt for reply suggestions.
func buildReplyPrompt(text string, category model.Category) string {
	return fmt.Sprintf(`Draft exactly one reply to the following comment.

Comment: %q
Category: %s

Rules:
- polite, friendly tone
- concise (at most a sentence or two)
- show willingness to answer questions
- express gratitude

Output the reply text only:`, text, category)
}

// textHash returns a short stable key for caching and log correlation
// without writing raw comment text to logs.
func textHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])[:16]
}

// truncateRunes bounds s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
