package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ykihara/commentguard/internal/model"
)

func TestVerdictCacheRoundTrip(t *testing.T) {
	cache := newVerdictCache(time.Minute)
	defer cache.Close()

	want := model.Verdict{ToxicityScore: 42, Category: model.CategoryComplaint}
	cache.set("key", want)

	got, found := cache.get("key")
	assert.True(t, found)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, cache.size())

	_, found = cache.get("other")
	assert.False(t, found)
}

func TestVerdictCacheExpiry(t *testing.T) {
	cache := newVerdictCache(10 * time.Millisecond)
	defer cache.Close()

	cache.set("key", model.Verdict{ToxicityScore: 1})
	time.Sleep(20 * time.Millisecond)

	_, found := cache.get("key")
	assert.False(t, found, "expired entries must not be served")
}
