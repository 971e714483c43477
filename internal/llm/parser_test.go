package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykihara/commentguard/internal/model"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		original string
		want     model.Verdict
		wantErr  bool
	}{
		{
			name:     "plain json",
			content:  `{"toxicity_score": 85, "category": "toxic", "reason": "personal attack", "mild_text": "negative feedback"}`,
			original: "you suck",
			want: model.Verdict{
				ToxicityScore: 85,
				Category:      model.CategoryToxic,
				Reason:        "personal attack",
				MildText:      "negative feedback",
			},
		},
		{
			name:     "fenced json",
			content:  "```json\n{\"toxicity_score\": 10, \"category\": \"positive\", \"reason\": \"praise\", \"mild_text\": \"great video\"}\n```",
			original: "great video",
			want: model.Verdict{
				ToxicityScore: 10,
				Category:      model.CategoryPositive,
				Reason:        "praise",
				MildText:      "great video",
			},
		},
		{
			name:     "score above range is clamped",
			content:  `{"toxicity_score": 150, "category": "toxic", "reason": "r", "mild_text": "m"}`,
			original: "x",
			want: model.Verdict{
				ToxicityScore: 100,
				Category:      model.CategoryToxic,
				Reason:        "r",
				MildText:      "m",
			},
		},
		{
			name:     "negative score is clamped",
			content:  `{"toxicity_score": -3, "category": "positive", "reason": "r", "mild_text": "m"}`,
			original: "x",
			want: model.Verdict{
				ToxicityScore: 0,
				Category:      model.CategoryPositive,
				Reason:        "r",
				MildText:      "m",
			},
		},
		{
			name:     "non-numeric score degrades to mid-band",
			content:  `{"toxicity_score": "high", "category": "complaint", "reason": "r", "mild_text": "m"}`,
			original: "x",
			want: model.Verdict{
				ToxicityScore: 50,
				Category:      model.CategoryComplaint,
				Reason:        "r",
				MildText:      "m",
			},
		},
		{
			name:     "unknown category folds into complaint",
			content:  `{"toxicity_score": 20, "category": "sarcastic", "reason": "r", "mild_text": "m"}`,
			original: "x",
			want: model.Verdict{
				ToxicityScore: 20,
				Category:      model.CategoryComplaint,
				Reason:        "r",
				MildText:      "m",
			},
		},
		{
			name:     "empty mild text falls back to original",
			content:  `{"toxicity_score": 20, "category": "question", "reason": "r", "mild_text": ""}`,
			original: "when is part 2?",
			want: model.Verdict{
				ToxicityScore: 20,
				Category:      model.CategoryQuestion,
				Reason:        "r",
				MildText:      "when is part 2?",
			},
		},
		{
			name:     "prose is not a verdict",
			content:  "I think this comment is fine.",
			original: "x",
			wantErr:  true,
		},
		{
			name:     "empty response",
			content:  "",
			original: "x",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVerdict(tt.content, tt.original)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultVerdict(t *testing.T) {
	v := defaultVerdict("raw comment text")

	// Mid-band score routes to hold-for-review under the standard
	// thresholds: never auto-publish, never auto-hide.
	assert.Equal(t, 50, v.ToxicityScore)
	assert.Equal(t, model.CategoryComplaint, v.Category)
	assert.Equal(t, "raw comment text", v.MildText)
}

func TestCleanMarkdownWrapper(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("  {\"a\":1}  "))
}
