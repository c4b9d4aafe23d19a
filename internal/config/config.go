// Package config loads cookmode settings. Values are layered: built-in
// defaults, then an optional YAML file, then environment variables
// (including those from a .env file), then validation.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/cookmode/internal/gesture"
	"github.com/hammamikhairi/cookmode/internal/logger"
	"github.com/hammamikhairi/cookmode/internal/voice"
)

// EnvConfigPath names the YAML file when --config is not given.
const EnvConfigPath = "COOKMODE_CONFIG"

// Config is the full set of settings.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
	UserID    string `yaml:"user_id"`

	Storage  Storage  `yaml:"storage"`
	HTTP     HTTP     `yaml:"http"`
	Voice    Voice    `yaml:"voice"`
	TTS      TTS      `yaml:"tts"`
	WakeWord WakeWord `yaml:"wakeword"`
	Gestures Gestures `yaml:"gestures"`
	Behavior Behavior `yaml:"behavior"`
}

// Storage selects the session backend.
type Storage struct {
	Driver      string `yaml:"driver"` // memory or sqlite
	Path        string `yaml:"path"`
	RecipesFile string `yaml:"recipes_file"`
}

// HTTP configures the serve command.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Voice configures the command recognizer and the local whisper ear.
type Voice struct {
	Enabled        bool                `yaml:"enabled"`
	WakeWords      []string            `yaml:"wake_words"`
	CommandTimeout time.Duration       `yaml:"command_timeout"`
	Phrases        map[string][]string `yaml:"phrases"`
	WhisperBin     string              `yaml:"whisper_bin"`
	WhisperModel   string              `yaml:"whisper_model"`
	RecordSeconds  int                 `yaml:"record_seconds"`
}

// TTS configures Azure speech synthesis.
type TTS struct {
	Enabled     bool   `yaml:"enabled"`
	AzureKey    string `yaml:"azure_key"`
	AzureRegion string `yaml:"azure_region"`
	Voice       string `yaml:"voice"`
	CacheDir    string `yaml:"cache_dir"`
	DiskCache   bool   `yaml:"disk_cache"`
}

// WakeWord configures the acoustic wake-word detector.
type WakeWord struct {
	Enabled   bool    `yaml:"enabled"`
	ModelDir  string  `yaml:"model_dir"`
	Threshold float32 `yaml:"threshold"`
}

// Gestures configures gesture bindings.
type Gestures struct {
	Bindings        map[string]string `yaml:"bindings"`
	DoubleTapWindow time.Duration     `yaml:"double_tap_window"`
	QuickTimers     []int             `yaml:"quick_timers"`
}

// Behavior holds session behaviour switches.
type Behavior struct {
	AutoAdvance    bool          `yaml:"auto_advance"`
	AlmostDone     time.Duration `yaml:"almost_done"`
	DesktopNotify  bool          `yaml:"desktop_notify"`
	Chimes         bool          `yaml:"chimes"`
	TimerSyncEvery int           `yaml:"timer_sync_every"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:  "normal",
		LogFormat: "console",
		LogFile:   ".cookmode/cookmode.log",
		UserID:    "local",
		Storage: Storage{
			Driver: "memory",
			Path:   ".cookmode/cookmode.db",
		},
		HTTP: HTTP{Addr: ":8080"},
		Voice: Voice{
			WakeWords:      append([]string(nil), voice.DefaultWakeWords...),
			CommandTimeout: 5 * time.Second,
			WhisperBin:     "whisper-cli",
			WhisperModel:   "bin/ggml-small.bin",
			RecordSeconds:  2,
		},
		TTS: TTS{
			Enabled:   true,
			Voice:     "en-US-AvaNeural",
			CacheDir:  ".cookmode/tts",
			DiskCache: true,
		},
		WakeWord: WakeWord{
			ModelDir:  "models",
			Threshold: 0.5,
		},
		Gestures: Gestures{
			DoubleTapWindow: gesture.DefaultDoubleTapWindow,
			QuickTimers:     append([]int(nil), gesture.DefaultQuickTimers...),
		},
		Behavior: Behavior{
			AutoAdvance:    true,
			AlmostDone:     30 * time.Second,
			DesktopNotify:  true,
			Chimes:         true,
			TimerSyncEvery: 10,
		},
	}
}

// Load builds the configuration. path names a YAML file; when empty the
// COOKMODE_CONFIG variable is consulted, and no file is fine. A .env file
// in the working directory is loaded when present.
func Load(path string) (*Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (*Config, error) {
	cfg := Default()

	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile loads variables from a .env file. Variables already set in
// the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ── Environment ──────────────────────────────────────────────────

type envMapping struct {
	key    string
	setter func(c *Config, value string) error
}

func envMappings() []envMapping {
	return []envMapping{
		{"COOKMODE_LOG_LEVEL", func(c *Config, v string) error { c.LogLevel = v; return nil }},
		{"LOG_FORMAT", func(c *Config, v string) error { c.LogFormat = v; return nil }},
		{"COOKMODE_LOG_FORMAT", func(c *Config, v string) error { c.LogFormat = v; return nil }},
		{"COOKMODE_LOG_FILE", func(c *Config, v string) error { c.LogFile = v; return nil }},
		{"COOKMODE_USER", func(c *Config, v string) error { c.UserID = v; return nil }},
		{"COOKMODE_DB", func(c *Config, v string) error {
			c.Storage.Driver = "sqlite"
			c.Storage.Path = v
			return nil
		}},
		{"COOKMODE_RECIPES", func(c *Config, v string) error { c.Storage.RecipesFile = v; return nil }},
		{"COOKMODE_ADDR", func(c *Config, v string) error { c.HTTP.Addr = v; return nil }},
		{"COOKMODE_VOICE", boolSetter(func(c *Config) *bool { return &c.Voice.Enabled })},
		{"COOKMODE_WAKE_WORDS", func(c *Config, v string) error {
			c.Voice.WakeWords = splitList(v)
			return nil
		}},
		{"COOKMODE_COMMAND_TIMEOUT", durationSetter(func(c *Config) *time.Duration { return &c.Voice.CommandTimeout })},
		{"WHISPER_BIN", func(c *Config, v string) error { c.Voice.WhisperBin = v; return nil }},
		{"WHISPER_MODEL", func(c *Config, v string) error { c.Voice.WhisperModel = v; return nil }},
		{"COOKMODE_RECORD_SECONDS", func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			c.Voice.RecordSeconds = n
			return nil
		}},
		{"COOKMODE_TTS", boolSetter(func(c *Config) *bool { return &c.TTS.Enabled })},
		{"AZURE_SPEECH_KEY", func(c *Config, v string) error { c.TTS.AzureKey = v; return nil }},
		{"AZURE_SPEECH_REGION", func(c *Config, v string) error { c.TTS.AzureRegion = v; return nil }},
		{"AZURE_SPEECH_VOICE", func(c *Config, v string) error { c.TTS.Voice = v; return nil }},
		{"COOKMODE_TTS_CACHE", func(c *Config, v string) error { c.TTS.CacheDir = v; return nil }},
		{"COOKMODE_WAKEWORD", boolSetter(func(c *Config) *bool { return &c.WakeWord.Enabled })},
		{"COOKMODE_WAKEWORD_MODELS", func(c *Config, v string) error { c.WakeWord.ModelDir = v; return nil }},
		{"COOKMODE_DOUBLE_TAP", durationSetter(func(c *Config) *time.Duration { return &c.Gestures.DoubleTapWindow })},
		{"COOKMODE_QUICK_TIMERS", func(c *Config, v string) error {
			var minutes []int
			for _, item := range splitList(v) {
				n, err := strconv.Atoi(item)
				if err != nil {
					return err
				}
				minutes = append(minutes, n)
			}
			c.Gestures.QuickTimers = minutes
			return nil
		}},
		{"COOKMODE_AUTO_ADVANCE", boolSetter(func(c *Config) *bool { return &c.Behavior.AutoAdvance })},
		{"COOKMODE_ALMOST_DONE", durationSetter(func(c *Config) *time.Duration { return &c.Behavior.AlmostDone })},
		{"COOKMODE_DESKTOP_NOTIFY", boolSetter(func(c *Config) *bool { return &c.Behavior.DesktopNotify })},
		{"COOKMODE_CHIMES", boolSetter(func(c *Config) *bool { return &c.Behavior.Chimes })},
	}
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func durationSetter(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) applyEnv() error {
	for _, m := range envMappings() {
		if v := os.Getenv(m.key); v != "" {
			if err := m.setter(c, v); err != nil {
				return fmt.Errorf("failed to set %s: %w", m.key, err)
			}
		}
	}
	return nil
}

// ── Validation ───────────────────────────────────────────────────

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	if c.UserID == "" {
		return errors.New("user_id must not be empty")
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.HTTP.Addr == "" {
		return errors.New("http.addr must not be empty")
	}
	if len(c.Voice.WakeWords) == 0 {
		return errors.New("voice.wake_words must not be empty")
	}
	if c.Voice.CommandTimeout <= 0 {
		return fmt.Errorf("voice.command_timeout must be positive, got %s", c.Voice.CommandTimeout)
	}
	if c.Voice.RecordSeconds <= 0 {
		return fmt.Errorf("voice.record_seconds must be positive, got %d", c.Voice.RecordSeconds)
	}
	if _, err := c.Mappings(); err != nil {
		return err
	}
	if c.Gestures.DoubleTapWindow <= 0 || c.Gestures.DoubleTapWindow > 2*time.Second {
		return fmt.Errorf("gestures.double_tap_window must be in (0, 2s], got %s", c.Gestures.DoubleTapWindow)
	}
	if _, err := c.Bindings(); err != nil {
		return err
	}
	if len(c.Gestures.QuickTimers) > MaxQuickTimers {
		return fmt.Errorf("gestures.quick_timers holds at most %d presets, got %d", MaxQuickTimers, len(c.Gestures.QuickTimers))
	}
	if _, err := c.QuickTimers(); err != nil {
		return err
	}
	if c.Behavior.AlmostDone < 0 {
		return fmt.Errorf("behavior.almost_done must not be negative, got %s", c.Behavior.AlmostDone)
	}
	if c.Behavior.TimerSyncEvery < 0 {
		return fmt.Errorf("behavior.timer_sync_every must not be negative, got %d", c.Behavior.TimerSyncEvery)
	}
	if c.WakeWord.Threshold <= 0 || c.WakeWord.Threshold >= 1 {
		return fmt.Errorf("wakeword.threshold must be in (0, 1), got %g", c.WakeWord.Threshold)
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() logger.Level {
	lvl, _ := logger.ParseLevel(c.LogLevel)
	return lvl
}

// Mappings returns the voice phrase table with overrides applied.
func (c *Config) Mappings() ([]voice.Mapping, error) {
	return voice.Override(voice.DefaultMappings(), c.Voice.Phrases)
}

// Bindings returns the gesture bindings with overrides applied.
func (c *Config) Bindings() (gesture.Bindings, error) {
	return gesture.ParseBindings(c.Gestures.Bindings)
}

// MaxQuickTimers is how many presets fit on the number keys.
const MaxQuickTimers = 9

// QuickTimers returns the preset timer actions.
func (c *Config) QuickTimers() ([]gesture.Action, error) {
	return gesture.QuickTimers(c.Gestures.QuickTimers)
}

// TTSAvailable reports whether speech synthesis can be used.
func (c *Config) TTSAvailable() bool {
	return c.TTS.Enabled && c.TTS.AzureKey != "" && c.TTS.AzureRegion != ""
}
