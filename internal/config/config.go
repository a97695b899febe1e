package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Library LibraryConfig `mapstructure:"library"`
	Player  PlayerConfig  `mapstructure:"player"`
	Tools   ToolsConfig   `mapstructure:"tools"`
	Anilist AnilistConfig `mapstructure:"anilist"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
	Discord DiscordConfig `mapstructure:"discord"`
}

// LibraryConfig holds the series location
type LibraryConfig struct {
	SeriesPath string `mapstructure:"series_path"` // Root directory, one subdirectory per title
}

// PlayerConfig holds media player configuration
type PlayerConfig struct {
	Command    string   `mapstructure:"command"`
	Args       []string `mapstructure:"args"`
	MinTime    float64  `mapstructure:"min_time"`    // Seconds remaining below which an episode counts as watched
	ScriptPath string   `mapstructure:"script_path"` // Progress helper loaded into the player
}

// ToolsConfig holds external tool locations
type ToolsConfig struct {
	FFprobe string `mapstructure:"ffprobe"`
	FFmpeg  string `mapstructure:"ffmpeg"`
}

// AnilistConfig holds metadata service configuration
type AnilistConfig struct {
	URL               string        `mapstructure:"url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	BannerWidth       int           `mapstructure:"banner_width"` // 0 keeps the original size
}

// CacheConfig holds the metadata manifest location
type CacheConfig struct {
	Dir string `mapstructure:"dir"` // Empty for memory-only
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DiscordConfig controls rich presence
type DiscordConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	AppID   string `mapstructure:"app_id"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	configDir := defaultConfigPath()
	return &Config{
		Player: PlayerConfig{
			Command:    "mpv",
			Args:       []string{},
			MinTime:    10.0,
			ScriptPath: filepath.Join(configDir, "scripts", "save_info.lua"),
		},
		Tools: ToolsConfig{
			FFprobe: "ffprobe",
			FFmpeg:  "ffmpeg",
		},
		Anilist: AnilistConfig{
			URL:               "https://graphql.anilist.co/",
			Timeout:           15 * time.Second,
			RequestsPerMinute: 90,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
		Discord: DiscordConfig{
			AppID: "1128545330837856316",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "yama", "yama.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "yama", "yama.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "yama")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "yama")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "yama", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "yama", "cache")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	return load(viper.GetViper(), defaultConfigPath())
}

func load(v *viper.Viper, configDir string) (*Config, error) {
	cfg := DefaultConfig()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Environment variable overrides, e.g. YAMA_LIBRARY_SERIES_PATH
	v.SetEnvPrefix("YAMA")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	return save(viper.GetViper(), defaultConfigPath(), cfg)
}

func save(v *viper.Viper, configDir string, cfg *Config) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to keep snake_case key names
	v.Set("library.series_path", cfg.Library.SeriesPath)

	v.Set("player.command", cfg.Player.Command)
	v.Set("player.args", cfg.Player.Args)
	v.Set("player.min_time", cfg.Player.MinTime)
	v.Set("player.script_path", cfg.Player.ScriptPath)

	v.Set("tools.ffprobe", cfg.Tools.FFprobe)
	v.Set("tools.ffmpeg", cfg.Tools.FFmpeg)

	v.Set("anilist.url", cfg.Anilist.URL)
	v.Set("anilist.timeout", cfg.Anilist.Timeout.String())
	v.Set("anilist.requests_per_minute", cfg.Anilist.RequestsPerMinute)
	v.Set("anilist.banner_width", cfg.Anilist.BannerWidth)

	v.Set("cache.dir", cfg.Cache.Dir)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	v.Set("discord.enabled", cfg.Discord.Enabled)
	v.Set("discord.app_id", cfg.Discord.AppID)

	configFile := filepath.Join(configDir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveSeriesPath updates just the series root in the configuration
func SaveSeriesPath(path string) error {
	v := viper.GetViper()
	v.Set("library.series_path", path)

	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if a series root is set
func (c *Config) IsConfigured() bool {
	return c.Library.SeriesPath != ""
}
