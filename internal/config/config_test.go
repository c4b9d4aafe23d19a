package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/gesture"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, logger.LevelNormal, cfg.Level())
	assert.Equal(t, []string{"hey chef"}, cfg.Voice.WakeWords)
	assert.Equal(t, 300*time.Millisecond, cfg.Gestures.DoubleTapWindow)
	assert.False(t, cfg.TTSAvailable())

	presets, err := cfg.QuickTimers()
	require.NoError(t, err)
	require.Len(t, presets, 5)
	assert.Equal(t, gesture.Action{Kind: gesture.ActStartTimer, Minutes: 30}, presets[4])
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := load("", "")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "cookmode.yaml", `
log_level: verbose
user_id: alice
storage:
  driver: sqlite
  path: /tmp/cook.db
voice:
  wake_words: ["okay kitchen"]
  command_timeout: 8s
  phrases:
    next_step: ["onward"]
gestures:
  double_tap_window: 250ms
  bindings:
    swipe-down: timer:10
behavior:
  auto_advance: false
`)

	cfg, err := load(path, "")
	require.NoError(t, err)
	assert.Equal(t, logger.LevelVerbose, cfg.Level())
	assert.Equal(t, "alice", cfg.UserID)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, []string{"okay kitchen"}, cfg.Voice.WakeWords)
	assert.Equal(t, 8*time.Second, cfg.Voice.CommandTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Gestures.DoubleTapWindow)
	assert.False(t, cfg.Behavior.AutoAdvance)
	// Unset keys keep their defaults.
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.Behavior.Chimes)

	bindings, err := cfg.Bindings()
	require.NoError(t, err)
	assert.Equal(t, gesture.Action{Kind: gesture.ActStartTimer, Minutes: 10}, bindings[gesture.SwipeDown])

	mappings, err := cfg.Mappings()
	require.NoError(t, err)
	for _, m := range mappings {
		if m.Kind == domain.CmdNextStep {
			assert.Equal(t, []string{"onward"}, m.Phrases)
		}
	}
}

func TestLoadFileFromEnv(t *testing.T) {
	path := writeFile(t, "cookmode.yaml", "user_id: bob\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := load("", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.UserID)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "cookmode.yaml", "colour: blue\n")
	_, err := load(path, "")
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "cookmode.yaml", "user_id: alice\nhttp:\n  addr: \":9000\"\n")
	t.Setenv("COOKMODE_USER", "carol")
	t.Setenv("COOKMODE_DB", "/var/lib/cookmode.db")
	t.Setenv("COOKMODE_WAKE_WORDS", "hey chef, yo chef")
	t.Setenv("COOKMODE_ALMOST_DONE", "1m")
	t.Setenv("COOKMODE_CHIMES", "false")
	t.Setenv("COOKMODE_QUICK_TIMERS", "3, 8")

	cfg, err := load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "carol", cfg.UserID)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/cookmode.db", cfg.Storage.Path)
	assert.Equal(t, []string{"hey chef", "yo chef"}, cfg.Voice.WakeWords)
	assert.Equal(t, time.Minute, cfg.Behavior.AlmostDone)
	assert.False(t, cfg.Behavior.Chimes)
	assert.Equal(t, []int{3, 8}, cfg.Gestures.QuickTimers)
}

func TestEnvFile(t *testing.T) {
	const key = "COOKMODE_RECIPES"
	t.Cleanup(func() { os.Unsetenv(key) })
	os.Unsetenv(key)

	envFile := writeFile(t, ".env", key+"=/srv/recipes.yaml\nAZURE_SPEECH_REGION=westeurope\n")
	t.Setenv("AZURE_SPEECH_REGION", "eastus") // the real environment wins

	cfg, err := load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "/srv/recipes.yaml", cfg.Storage.RecipesFile)
	assert.Equal(t, "eastus", cfg.TTS.AzureRegion)
}

func TestInvalidEnvValue(t *testing.T) {
	t.Setenv("COOKMODE_VOICE", "sometimes")
	_, err := load("", "")
	assert.ErrorContains(t, err, "COOKMODE_VOICE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"user", func(c *Config) { c.UserID = "" }},
		{"driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"sqlite path", func(c *Config) { c.Storage.Driver = "sqlite"; c.Storage.Path = "" }},
		{"addr", func(c *Config) { c.HTTP.Addr = "" }},
		{"wake words", func(c *Config) { c.Voice.WakeWords = nil }},
		{"command timeout", func(c *Config) { c.Voice.CommandTimeout = 0 }},
		{"record seconds", func(c *Config) { c.Voice.RecordSeconds = 0 }},
		{"phrase override", func(c *Config) { c.Voice.Phrases = map[string][]string{"dance": {"boogie"}} }},
		{"double tap", func(c *Config) { c.Gestures.DoubleTapWindow = 5 * time.Second }},
		{"binding gesture", func(c *Config) { c.Gestures.Bindings = map[string]string{"pinch": "next"} }},
		{"binding action", func(c *Config) { c.Gestures.Bindings = map[string]string{"tap": "fly"} }},
		{"quick timer", func(c *Config) { c.Gestures.QuickTimers = []int{5, 0} }},
		{"too many quick timers", func(c *Config) { c.Gestures.QuickTimers = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10} }},
		{"almost done", func(c *Config) { c.Behavior.AlmostDone = -time.Second }},
		{"timer sync", func(c *Config) { c.Behavior.TimerSyncEvery = -1 }},
		{"threshold", func(c *Config) { c.WakeWord.Threshold = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestTTSAvailable(t *testing.T) {
	cfg := Default()
	cfg.TTS.AzureKey = "k"
	cfg.TTS.AzureRegion = "westeurope"
	assert.True(t, cfg.TTSAvailable())

	cfg.TTS.Enabled = false
	assert.False(t, cfg.TTSAvailable())
}
