package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, 70, s.ToxicityThreshold)
	assert.Equal(t, 50, s.HoldThreshold)
	assert.Equal(t, int64(5), s.MaxVideos)
	assert.Equal(t, int64(50), s.MaxComments)
	assert.Equal(t, "gemini", s.Provider)
	assert.False(t, s.BanAuthors)
	assert.Equal(t, ":8080", s.ListenAddr)
	assert.NotEmpty(t, s.DatabasePath)
}

func TestLoadUsesFrontendURLForCORS(t *testing.T) {
	v := newTestViper()
	v.Set("server.frontend_url", "https://dash.example.com")

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://dash.example.com"}, s.CORSOrigins)
}

func TestValidateRejectsInvertedThresholds(t *testing.T) {
	v := newTestViper()
	v.Set("processing.toxicity_threshold", 40)
	v.Set("processing.hold_threshold", 60)

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hold_threshold")
}

func TestValidateRejectsOutOfRangeThresholds(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value int
	}{
		{name: "toxicity above 100", key: "processing.toxicity_threshold", value: 101},
		{name: "toxicity negative", key: "processing.toxicity_threshold", value: -1},
		{name: "hold negative", key: "processing.hold_threshold", value: -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestViper()
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestValidateRejectsNonPositiveCaps(t *testing.T) {
	v := newTestViper()
	v.Set("processing.max_videos", 0)
	_, err := Load(v)
	assert.Error(t, err)

	v = newTestViper()
	v.Set("processing.max_comments", -1)
	_, err = Load(v)
	assert.Error(t, err)
}

func TestValidateRejectsEmptyDatabasePath(t *testing.T) {
	v := newTestViper()
	v.Set("storage.path", "")
	_, err := Load(v)
	assert.Error(t, err)
}

func TestEqualThresholdsAreAllowed(t *testing.T) {
	v := newTestViper()
	v.Set("processing.toxicity_threshold", 60)
	v.Set("processing.hold_threshold", 60)

	_, err := Load(v)
	assert.NoError(t, err)
}
