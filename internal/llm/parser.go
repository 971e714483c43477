package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ykihara/commentguard/internal/model"
)

// parseErrorReason is the sentinel reason recorded on the safe default
// verdict when the model response could not be parsed.
const parseErrorReason = "parse error"

// cleanMarkdownWrapper strips a markdown code fence from around JSON content.
// Models frequently wrap JSON in ```json ... ``` despite instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[:idx]
	}
	content = strings.TrimPrefix(content, "json")
	return strings.TrimSpace(content)
}

// clampScore forces a toxicity score into [0,100].
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// defaultVerdict is the conservative verdict substituted for malformed
// classifier output. Score 50 routes to hold-for-review under the standard
// thresholds: a parse failure must neither auto-publish nor drop the
// comment.
func defaultVerdict(originalText string) model.Verdict {
	return model.Verdict{
		ToxicityScore: 50,
		Category:      model.CategoryComplaint,
		Reason:        parseErrorReason,
		MildText:      originalText,
	}
}

// parseVerdict decodes the model's JSON verdict. It tolerates fenced JSON,
// out-of-range scores, and unknown categories; a response that is not JSON
// at all is an error and the caller substitutes the safe default.
func parseVerdict(content, originalText string) (model.Verdict, error) {
	var raw struct {
		ToxicityScore json.Number `json:"toxicity_score"`
		Category      string      `json:"category"`
		Reason        string      `json:"reason"`
		MildText      string      `json:"mild_text"`
	}

	content = cleanMarkdownWrapper(content)
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return model.Verdict{}, fmt.Errorf("failed to parse verdict JSON: %w", err)
	}

	// A non-numeric score degrades to the conservative mid-band value
	// instead of failing the whole verdict.
	score := 50
	if f, err := raw.ToxicityScore.Float64(); err == nil {
		score = clampScore(int(f))
	}

	mild := raw.MildText
	if mild == "" {
		mild = originalText
	}

	return model.Verdict{
		ToxicityScore: score,
		Category:      model.ParseCategory(raw.Category),
		Reason:        raw.Reason,
		MildText:      mild,
	}, nil
}
