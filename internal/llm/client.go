// Package llm implements the comment classifier on top of generative
// language APIs.
package llm

import "context"

// Client defines the low-level interface for LLM providers. Providers
// return the raw completion text; parsing the verdict contract is the
// classifier's job.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
