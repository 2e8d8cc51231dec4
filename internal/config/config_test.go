package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	os.Unsetenv("STORYFORGE_DATABASE_URL")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("STORYFORGE_DATABASE_URL", "sqlite://test.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.PassThresholdDefault)
	assert.Equal(t, 2000, cfg.WorkerPollIntervalMS)
	assert.Equal(t, 5, cfg.RetryMaxAttempts)
	assert.Equal(t, 250, cfg.RetryBaseBackoffMS)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("STORYFORGE_DATABASE_URL", "sqlite://test.db")
	t.Setenv("STORYFORGE_PASS_THRESHOLD_DEFAULT", "90")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.PassThresholdDefault)
}

func TestStageEnabledEmptyMeansAll(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.StageEnabled("Title.From.Idea"))
}

func TestStageEnabledFiltersList(t *testing.T) {
	cfg := &Config{StagesEnabled: []string{"Title.From.Idea"}}
	assert.True(t, cfg.StageEnabled("Title.From.Idea"))
	assert.False(t, cfg.StageEnabled("Script.From.Idea.Title"))
}
