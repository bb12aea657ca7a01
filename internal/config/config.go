package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/granitemd/granite/internal/constants"
)

// Config is the persisted client configuration.
type Config struct {
	ServerURL string `yaml:"server_url"  json:"server_url"`
	Token     string `yaml:"token"       json:"token"`

	MaxPanes     int    `yaml:"max_panes"      json:"max_panes"`
	AutosaveMS   int    `yaml:"autosave_ms"    json:"autosave_ms"`
	EditSyncMS   int    `yaml:"edit_sync_ms"   json:"edit_sync_ms"`
	MirrorSyncMS int    `yaml:"mirror_sync_ms" json:"mirror_sync_ms"`
	PaneWidth    int    `yaml:"pane_width"     json:"pane_width"`
	SessionFile  string `yaml:"session_file"   json:"session_file"`
	PreviewTheme string `yaml:"preview_theme"  json:"preview_theme"`

	home string `yaml:"-" json:"-"`
}

func (cfg *Config) ensureDefaults() {
	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:8000"
	}
	if cfg.MaxPanes <= 0 {
		cfg.MaxPanes = 8
	}
	if cfg.AutosaveMS <= 0 {
		cfg.AutosaveMS = 2000
	}
	if cfg.EditSyncMS <= 0 {
		cfg.EditSyncMS = 300
	}
	if cfg.MirrorSyncMS <= 0 {
		cfg.MirrorSyncMS = 300
	}
	if cfg.PaneWidth <= 0 {
		cfg.PaneWidth = 720
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = filepath.Join(
			filepath.Dir(GetConfigPath(cfg.home)),
			"session."+constants.ConfigFileType,
		)
	}
	if cfg.PreviewTheme == "" {
		cfg.PreviewTheme = "dark"
	}
}

// AutosaveDelay returns the autosave debounce interval.
func (cfg *Config) AutosaveDelay() time.Duration {
	return time.Duration(cfg.AutosaveMS) * time.Millisecond
}

// EditSyncDelay returns the plain-text edit debounce interval.
func (cfg *Config) EditSyncDelay() time.Duration {
	return time.Duration(cfg.EditSyncMS) * time.Millisecond
}

// MirrorSyncDelay returns the rich-mirror sync debounce interval.
func (cfg *Config) MirrorSyncDelay() time.Duration {
	return time.Duration(cfg.MirrorSyncMS) * time.Millisecond
}

// Load reads the config file under home, applying defaults for anything
// unset. An empty file yields a default config.
func Load(home string) (*Config, error) {
	path := GetConfigPath(home)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{home: home}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.ensureDefaults()
	cfg.syncViper()
	return cfg, nil
}

// Save writes the config back to its file, creating the directory as
// needed.
func (cfg *Config) Save() error {
	cfg.syncViper()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	path := GetConfigPath(cfg.home)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// The config carries the bearer token; keep it private to the user.
	// WriteFile only applies the mode on creation, so tighten existing
	// files too.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// GetConfigPath returns the config file path under home.
func (cfg *Config) GetConfigPath() string {
	return GetConfigPath(cfg.home)
}

func (cfg *Config) syncViper() {
	viper.Set("server_url", cfg.ServerURL)
	viper.Set("token", cfg.Token)
	viper.Set("max_panes", cfg.MaxPanes)
	viper.Set("autosave_ms", cfg.AutosaveMS)
	viper.Set("edit_sync_ms", cfg.EditSyncMS)
	viper.Set("mirror_sync_ms", cfg.MirrorSyncMS)
	viper.Set("pane_width", cfg.PaneWidth)
	viper.Set("session_file", cfg.SessionFile)
	viper.Set("preview_theme", cfg.PreviewTheme)
}

// ChangeServer updates the backend URL and persists the change.
func (cfg *Config) ChangeServer(url string) error {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" {
		return fmt.Errorf("server url cannot be empty")
	}
	cfg.ServerURL = url
	return cfg.Save()
}

// ChangeToken updates the bearer token and persists the change.
func (cfg *Config) ChangeToken(token string) error {
	cfg.Token = strings.TrimSpace(token)
	return cfg.Save()
}
