package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	MaxAge   MaxAgeConfig   `mapstructure:"max_age"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Search   SearchConfig   `mapstructure:"search"`
	UI       UIConfig       `mapstructure:"ui"`
	Media    MediaConfig    `mapstructure:"media"`
	Keys     KeyBindings    `mapstructure:"keys"`
}

type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	MirrorURL   string        `mapstructure:"mirror_url"`
	UserAgent   string        `mapstructure:"user_agent"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

type CacheConfig struct {
	Dir     string `mapstructure:"dir"`
	MaxSize int64  `mapstructure:"max_size"`
	Version int    `mapstructure:"version"`
}

type LimitsConfig struct {
	NewFiles int `mapstructure:"new_files"`
	NewVotes int `mapstructure:"new_votes"`
}

// MaxAgeConfig holds how long cached responses stay fresh, per kind of
// request.
type MaxAgeConfig struct {
	Browse   time.Duration `mapstructure:"browse"`
	NewFiles time.Duration `mapstructure:"new_files"`
	NewVotes time.Duration `mapstructure:"new_votes"`
	Details  time.Duration `mapstructure:"details"`
	Search   time.Duration `mapstructure:"search"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type SearchConfig struct {
	DefaultCategory string `mapstructure:"default_category"`
}

type UIConfig struct {
	Colors UIColors `mapstructure:"colors"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

type MediaConfig struct {
	DefaultOpener string `mapstructure:"default_opener"`
}

type KeyBindings struct {
	Quit     string `mapstructure:"quit"`
	Search   string `mapstructure:"search"`
	Refresh  string `mapstructure:"refresh"`
	Download string `mapstructure:"download"`
	Back     string `mapstructure:"back"`
	Help     string `mapstructure:"help"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".idgames")

	return &Config{
		API: APIConfig{
			BaseURL:     "https://www.doomworld.com/idgames/api/api.php",
			MirrorURL:   "https://www.quaddicted.com/files/idgames/",
			UserAgent:   "idgames/1.0 (https://github.com/pders01/idgames)",
			HTTPTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Dir:     filepath.Join(dataDir, "cache"),
			MaxSize: 5 << 20,
			Version: 1,
		},
		Limits: LimitsConfig{
			NewFiles: 30,
			NewVotes: 30,
		},
		MaxAge: MaxAgeConfig{
			Browse:   12 * time.Hour,
			NewFiles: 4 * time.Hour,
			NewVotes: 4 * time.Hour,
			Details:  24 * time.Hour,
			Search:   12 * time.Hour,
		},
		Database: DatabaseConfig{
			Path:        filepath.Join(dataDir, "files.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(dataDir, "idgames.log"),
		},
		Search: SearchConfig{
			DefaultCategory: "title",
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#D94F2B",
				Secondary: "#8FA35A",
				Accent:    "#E8B04A",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
				Success:   "#4ADE80",
			},
		},
		Media: MediaConfig{
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyBindings{
			Quit:     "q",
			Search:   "/",
			Refresh:  "r",
			Download: "o",
			Back:     "esc",
			Help:     "?",
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// settings flattens cfg into the nested map written to TOML. Durations are
// stored as strings so the file stays readable.
func settings(cfg *Config) map[string]any {
	return map[string]any{
		"api": map[string]any{
			"base_url":     cfg.API.BaseURL,
			"mirror_url":   cfg.API.MirrorURL,
			"user_agent":   cfg.API.UserAgent,
			"http_timeout": cfg.API.HTTPTimeout.String(),
		},
		"cache": map[string]any{
			"dir":      cfg.Cache.Dir,
			"max_size": cfg.Cache.MaxSize,
			"version":  cfg.Cache.Version,
		},
		"limits": map[string]any{
			"new_files": cfg.Limits.NewFiles,
			"new_votes": cfg.Limits.NewVotes,
		},
		"max_age": map[string]any{
			"browse":    cfg.MaxAge.Browse.String(),
			"new_files": cfg.MaxAge.NewFiles.String(),
			"new_votes": cfg.MaxAge.NewVotes.String(),
			"details":   cfg.MaxAge.Details.String(),
			"search":    cfg.MaxAge.Search.String(),
		},
		"database": map[string]any{
			"path":         cfg.Database.Path,
			"timeout":      cfg.Database.Timeout.String(),
			"search_index": cfg.Database.SearchIndex,
		},
		"log": map[string]any{
			"level": cfg.Log.Level,
			"file":  cfg.Log.File,
		},
		"search": map[string]any{
			"default_category": cfg.Search.DefaultCategory,
		},
		"ui": map[string]any{
			"colors": map[string]any{
				"primary":   cfg.UI.Colors.Primary,
				"secondary": cfg.UI.Colors.Secondary,
				"accent":    cfg.UI.Colors.Accent,
				"text":      cfg.UI.Colors.Text,
				"muted":     cfg.UI.Colors.Muted,
				"error":     cfg.UI.Colors.Error,
				"success":   cfg.UI.Colors.Success,
			},
		},
		"media": map[string]any{
			"default_opener": cfg.Media.DefaultOpener,
		},
		"keys": map[string]any{
			"quit":     cfg.Keys.Quit,
			"search":   cfg.Keys.Search,
			"refresh":  cfg.Keys.Refresh,
			"download": cfg.Keys.Download,
			"back":     cfg.Keys.Back,
			"help":     cfg.Keys.Help,
		},
	}
}

// setDefaults registers every leaf key so environment variables can
// override nested values (IDGAMES_CACHE_DIR for cache.dir).
func setDefaults(v *viper.Viper, prefix string, m map[string]any) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// DefaultPath returns ~/.config/idgames/config.toml.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "idgames", "config.toml")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, "", settings(defaultConfig()))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("IDGAMES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	return &config, nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Cache.Dir = expandPath(cfg.Cache.Dir)
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Log.File = expandPath(cfg.Log.File)
}

// Marshal renders cfg as TOML, in the same layout Save writes.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(settings(cfg))
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

func Save(config *Config, path string) error {
	v := viper.New()
	for key, val := range settings(config) {
		v.Set(key, val)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
