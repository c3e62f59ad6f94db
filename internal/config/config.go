package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	appLog "weekendbot/internal/log"
	"weekendbot/internal/model"
	"weekendbot/internal/window"
)

// ErrTelegramNotConfigured is returned by Validate when sending is requested
// without full channel credentials.
var ErrTelegramNotConfigured = errors.New("config: telegram token, chat_id and topic_id are required")

// Draft backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// TelegramConfig addresses the group topic the announcement goes to.
type TelegramConfig struct {
	Token   string `yaml:"token" json:"-"`
	ChatID  int64  `yaml:"chat_id" json:"chat_id"`
	TopicID int    `yaml:"topic_id" json:"topic_id"`
}

// DraftConfig selects where the working list is persisted.
type DraftConfig struct {
	// Backend is "file" (default) or "redis".
	Backend string `yaml:"backend" json:"backend"`
	// Dir holds <Key>.json for the file backend.
	Dir string `yaml:"dir" json:"dir"`
	// Key is the well-known draft key.
	Key string `yaml:"key" json:"key"`
	// RedisURL is a redis:// URL or host:port for the redis backend.
	RedisURL string `yaml:"redis_url" json:"redis_url"`
	// Autosave is an optional cron spec (e.g. "*/5 * * * *") for saving
	// unsaved changes in serve mode. Empty disables autosave.
	Autosave string `yaml:"autosave" json:"autosave"`
}

// WindowConfig optionally pins the advertised window. Both bounds use
// model.TimeLayout.
type WindowConfig struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// PreviewConfig sets the viewport of PNG previews.
type PreviewConfig struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the authoring API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address of the authoring API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone whose wall clock defines "now".
	Timezone string `yaml:"timezone" json:"timezone"`

	// TemplatePath points at the announcement template. Empty selects the
	// built-in template.
	TemplatePath string `yaml:"template_path" json:"template_path"`

	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`
	Draft    DraftConfig    `yaml:"draft" json:"draft"`

	// Window, if set, replaces the computed window.
	Window *WindowConfig `yaml:"window,omitempty" json:"window,omitempty"`

	Preview PreviewConfig `yaml:"preview" json:"preview"`

	// BasicAuth, if non-nil, protects every endpoint except /health and
	// /metrics.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		Timezone: "Europe/Amsterdam",
		Draft: DraftConfig{
			Backend: BackendFile,
			Dir:     "./var/draft",
			Key:     "events",
		},
		Preview: PreviewConfig{
			Width:  480,
			Height: 1200,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch c.Draft.Backend {
	case BackendFile, BackendRedis:
		// ok
	default:
		// Unknown value; fall back to the file backend.
		c.Draft.Backend = BackendFile
	}
	if c.Draft.Dir == "" {
		c.Draft.Dir = def.Draft.Dir
	}
	if c.Draft.Key == "" {
		c.Draft.Key = def.Draft.Key
	}
	if c.Preview.Width <= 0 {
		c.Preview.Width = def.Preview.Width
	}
	if c.Preview.Height <= 0 {
		c.Preview.Height = def.Preview.Height
	}
	if c.Window != nil && c.Window.Start == "" && c.Window.End == "" {
		c.Window = nil
	}
}

// ApplyEnv overrides channel credentials from the environment:
// WEEKENDBOT_TELEGRAM_TOKEN, WEEKENDBOT_CHAT_ID, WEEKENDBOT_TOPIC_ID.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("WEEKENDBOT_TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("WEEKENDBOT_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: WEEKENDBOT_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	if v := os.Getenv("WEEKENDBOT_TOPIC_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: WEEKENDBOT_TOPIC_ID: %w", err)
		}
		c.Telegram.TopicID = id
	}
	return nil
}

// Validate checks values that Normalize cannot repair.
func (c *Config) Validate() error {
	if c.Draft.Backend == BackendRedis && c.Draft.RedisURL == "" {
		return errors.New("config: draft.redis_url is required for the redis backend")
	}
	if c.Draft.Autosave != "" {
		if _, err := cron.ParseStandard(c.Draft.Autosave); err != nil {
			return fmt.Errorf("config: draft.autosave: %w", err)
		}
	}
	if _, err := c.OverrideWindow(); err != nil {
		return err
	}
	return nil
}

// ValidateTelegram reports ErrTelegramNotConfigured unless token, chat id and
// topic id are all set.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.Token == "" || c.Telegram.ChatID == 0 || c.Telegram.TopicID == 0 {
		return ErrTelegramNotConfigured
	}
	return nil
}

// OverrideWindow parses Window. It returns nil when no override is set.
func (c *Config) OverrideWindow() (*window.Window, error) {
	if c.Window == nil {
		return nil, nil
	}
	start, err := model.ParseTime(c.Window.Start)
	if err != nil {
		return nil, fmt.Errorf("config: window.start: %w", err)
	}
	end, err := model.ParseTime(c.Window.End)
	if err != nil {
		return nil, fmt.Errorf("config: window.end: %w", err)
	}
	if end.Before(start) {
		return nil, errors.New("config: window.end is before window.start")
	}
	return &window.Window{Start: start, End: end}, nil
}

// Location resolves Timezone, falling back to time.Local when it is empty
// or unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".weekendbot-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
