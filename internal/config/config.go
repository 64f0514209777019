package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	defaultPort           = 3000
	defaultDataPath       = "data"
	defaultReadmeFileName = "README.md"
	defaultScreenshotsDir = "screenshots"
	defaultFilesDir       = "files"

	EnvPort      = "PORT"
	EnvDataPath  = "DATA_PATH"
	EnvRedisURL  = "REDIS_URL"
	EnvLogLevel  = "LOG_LEVEL"
	EnvURLPrefix = "URL_PREFIX"
)

var (
	defaultIgnoredFiles    = []string{".DS_Store", "Thumbs.db", ".gitkeep"}
	defaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".bmp"}
)

type ScannerConfig struct {
	DataPath        string   `yaml:"data_path"`
	ReadmeFileName  string   `yaml:"readme_filename"`
	ScreenshotsDir  string   `yaml:"screenshots_dir"`
	FilesDir        string   `yaml:"files_dir"`
	IgnoredFiles    []string `yaml:"ignored_files"`
	ImageExtensions []string `yaml:"image_extensions"`
}

type HandlerConfig struct {
	URLPrefix string `yaml:"url_prefix"`
}

type Config struct {
	Port          int           `yaml:"port"`
	RedisURL      string        `yaml:"redis_url"`
	LogLevel      string        `yaml:"log_level"`
	ScannerConfig ScannerConfig `yaml:"scanner"`
	HandlerConfig HandlerConfig `yaml:"handler"`
}

func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}

	if c.LogLevel == "" {
		c.LogLevel = LogLevelInfo
	}

	sc := &c.ScannerConfig
	if sc.DataPath == "" {
		sc.DataPath = defaultDataPath
	}

	if sc.ReadmeFileName == "" {
		sc.ReadmeFileName = defaultReadmeFileName
	}

	if sc.ScreenshotsDir == "" {
		sc.ScreenshotsDir = defaultScreenshotsDir
	}

	if sc.FilesDir == "" {
		sc.FilesDir = defaultFilesDir
	}

	if len(sc.IgnoredFiles) == 0 {
		sc.IgnoredFiles = append([]string(nil), defaultIgnoredFiles...)
	}

	if len(sc.ImageExtensions) == 0 {
		sc.ImageExtensions = append([]string(nil), defaultImageExtensions...)
	}
}

// Listen returns the address the server binds to.
func (c *Config) Listen() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}

	return nil
}

// Load reads the optional yaml file, then the optional .env file, then
// applies environment overrides and defaults.
func Load(cfgPath string) (*Config, error) {
	cfg := &Config{}

	if cfgPath != "" {
		data, err := os.ReadFile(cfgPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("cannot parse config file %s: %w", cfgPath, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("cannot read config file %s: %w", cfgPath, err)
		}
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cannot load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad(cfgPath string) *Config {
	cfg, err := Load(cfgPath)
	if err != nil {
		panic(err)
	}

	return cfg
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}

		c.Port = port
	}

	if v := os.Getenv(EnvDataPath); v != "" {
		c.ScannerConfig.DataPath = v
	}

	if v := os.Getenv(EnvRedisURL); v != "" {
		c.RedisURL = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}

	if v := os.Getenv(EnvURLPrefix); v != "" {
		c.HandlerConfig.URLPrefix = v
	}

	return nil
}
