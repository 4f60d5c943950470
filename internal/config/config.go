// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/morganforge/loom/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete loom configuration.
type Config struct {
	Version string `toml:"version"`

	Model   ModelConfig   `toml:"model"`
	Chat    ChatConfig    `toml:"chat"`
	UI      UIConfig      `toml:"ui"`
	Log     LogConfig     `toml:"log"`
	Storage StorageConfig `toml:"storage"`
	MCP     MCPConfig     `toml:"mcp"`
}

// ModelConfig describes the local model endpoint.
type ModelConfig struct {
	// Host is the Ollama base URL.
	Host string `toml:"host"`
	// Name is the default model.
	Name string `toml:"name"`
	// TimeoutSecs bounds non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs"`
	// SystemPrompt is prepended to every turn when set.
	SystemPrompt string `toml:"system_prompt"`
}

// ChatConfig tunes the turn loop.
type ChatConfig struct {
	// AutoConfirm skips tool confirmation prompts when true.
	AutoConfirm bool `toml:"auto_confirm"`
	// MaxIterations bounds model round trips within one turn.
	MaxIterations int `toml:"max_iterations"`
}

// UIConfig holds presentation toggles.
type UIConfig struct {
	// Theme picks the markdown rendering style: auto, dark, light, or
	// plain (no colors).
	Theme string `toml:"theme"`
}

// LogConfig controls the debug log file. Logging is off unless Debug is
// set; the TUI owns the terminal, so log output only ever goes to a file.
type LogConfig struct {
	Debug bool `toml:"debug"`
	// File overrides the log location. Empty means <config dir>/debug.log.
	File string `toml:"file"`
}

// StorageConfig controls session persistence.
type StorageConfig struct {
	// DatabasePath is the sqlite session database. Empty means
	// <config dir>/sessions.db.
	DatabasePath string `toml:"database_path"`
}

// MCPConfig holds the remote tool server list.
type MCPConfig struct {
	Servers []MCPServerConfig `toml:"servers"`
}

// MCPServerConfig describes one remote MCP server.
type MCPServerConfig struct {
	ID        string `toml:"id"`
	URL       string `toml:"url"`
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	defaultHost        = "http://127.0.0.1:11434"
	defaultModel       = "qwen2.5-coder:14b"
	defaultTimeoutSecs = 30
	configFileName     = "config.toml"
	logFileName        = "debug.log"
)

// Recognized UI themes.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemePlain = "plain"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Model: ModelConfig{
			Host:        defaultHost,
			Name:        defaultModel,
			TimeoutSecs: defaultTimeoutSecs,
		},
		Chat: ChatConfig{
			AutoConfirm:   false,
			MaxIterations: 25,
		},
		UI: UIConfig{
			Theme: ThemeAuto,
		},
	}
}

// Timeout returns the request timeout as a duration.
func (m ModelConfig) Timeout() time.Duration {
	if m.TimeoutSecs <= 0 {
		return defaultTimeoutSecs * time.Second
	}
	return time.Duration(m.TimeoutSecs) * time.Second
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns ~/.loom, creating it if needed.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".loom")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	return dir, nil
}

// ConfigPath returns the config file location.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LogPath resolves the debug log location.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, logFileName), nil
}

// DatabasePath resolves the session database location.
func (c *Config) DatabasePath() (string, error) {
	if c.Storage.DatabasePath != "" {
		return c.Storage.DatabasePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.db"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, falling back to defaults when it does not
// exist. Defaults also backfill fields the file leaves unset.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults backfills zero values left by a sparse file.
func applyDefaults(cfg *Config) {
	if cfg.Model.Host == "" {
		cfg.Model.Host = defaultHost
	}
	if cfg.Model.Name == "" {
		cfg.Model.Name = defaultModel
	}
	if cfg.Model.TimeoutSecs <= 0 {
		cfg.Model.TimeoutSecs = defaultTimeoutSecs
	}
	if cfg.Chat.MaxIterations <= 0 {
		cfg.Chat.MaxIterations = 25
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = ThemeAuto
	}
}

// Save writes the config atomically with owner-only permissions; the file
// can carry MCP auth tokens.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to an explicit path.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("cannot encode config: %w", err)
	}
	// Owner-only on the file and on a freshly created config directory;
	// the file can carry MCP auth tokens.
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("cannot write config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the config for values that cannot work at runtime.
func (c *Config) Validate() error {
	if _, err := url.Parse(c.Model.Host); err != nil {
		return fmt.Errorf("invalid model host %q: %w", c.Model.Host, err)
	}

	switch c.UI.Theme {
	case ThemeAuto, ThemeDark, ThemeLight, ThemePlain:
	default:
		return fmt.Errorf("unknown ui theme %q (want auto, dark, light, or plain)", c.UI.Theme)
	}

	seen := make(map[string]bool, len(c.MCP.Servers))
	for _, s := range c.MCP.Servers {
		if s.ID == "" {
			return errors.New("mcp server with empty id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate mcp server id %q", s.ID)
		}
		seen[s.ID] = true

		u, err := url.Parse(s.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("mcp server %q has invalid url %q", s.ID, s.URL)
		}
	}
	return nil
}
