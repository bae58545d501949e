package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"exotransit/internal/common"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port           int
	ModelPath      string
	DataPath       string
	ArchiveURL     string
	ArchiveTimeout time.Duration
	CacheTTL       time.Duration
	CacheSize      int
	LogLevel       string
	LogFile        string
	LogPretty      bool
	MaxUploadBytes int64
	PreviewPoints  int
	RequestTimeout time.Duration
}

type ConfigFile struct {
	Server struct {
		Port           int    `yaml:"port"`
		MaxUploadBytes int64  `yaml:"maxUploadBytes"`
		PreviewPoints  int    `yaml:"previewPoints"`
		RequestTimeout string `yaml:"requestTimeout"`
	} `yaml:"server"`

	ML struct {
		ModelPath string `yaml:"modelPath"`
	} `yaml:"ml"`

	Archive struct {
		URL       string `yaml:"url"`
		Timeout   string `yaml:"timeout"`
		CacheTTL  string `yaml:"cacheTTL"`
		CacheSize int    `yaml:"cacheSize"`
	} `yaml:"archive"`

	System struct {
		DataPath  string `yaml:"dataPath"`
		LogLevel  string `yaml:"logLevel"`
		LogFile   string `yaml:"logFile"`
		LogPretty bool   `yaml:"logPretty"`
	} `yaml:"system"`
}

const (
	defaultArchiveTimeout = 10 * time.Second
	defaultCacheTTL       = 24 * time.Hour
	defaultRequestTimeout = 30 * time.Second
)

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		Port:           getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		ModelPath:      getEnvOrDefault(common.EnvModelPath, orString(config.ML.ModelPath, common.DefaultModelPath)),
		DataPath:       getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		ArchiveURL:     getEnvOrDefault(common.EnvArchiveURL, orString(config.Archive.URL, common.DefaultArchiveURL)),
		ArchiveTimeout: getDurationOrDefault(common.EnvArchiveTimeout, parseDurationOr(config.Archive.Timeout, defaultArchiveTimeout)),
		CacheTTL:       getDurationOrDefault(common.EnvArchiveCacheTTL, parseDurationOr(config.Archive.CacheTTL, defaultCacheTTL)),
		CacheSize:      getIntFromEnvOrConfig(common.EnvArchiveCacheSize, config.Archive.CacheSize, common.DefaultArchiveCacheSize),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, orString(config.System.LogLevel, common.DefaultLogLevel)),
		LogFile:        getEnvOrDefault(common.EnvLogFile, config.System.LogFile),
		LogPretty:      getBoolOrDefault(common.EnvLogPretty, config.System.LogPretty),
		MaxUploadBytes: getInt64FromEnvOrConfig(common.EnvMaxUploadBytes, config.Server.MaxUploadBytes, common.DefaultMaxUploadBytes),
		PreviewPoints:  getIntFromEnvOrConfig(common.EnvPreviewPoints, config.Server.PreviewPoints, common.DefaultPreviewPoints),
		RequestTimeout: getDurationOrDefault(common.EnvRequestTimeout, parseDurationOr(config.Server.RequestTimeout, defaultRequestTimeout)),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:           getIntOrDefault(common.EnvPort, common.DefaultPort),
		ModelPath:      getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		DataPath:       os.Getenv(common.EnvDataPath), // optional
		ArchiveURL:     getEnvOrDefault(common.EnvArchiveURL, common.DefaultArchiveURL),
		ArchiveTimeout: getDurationOrDefault(common.EnvArchiveTimeout, defaultArchiveTimeout),
		CacheTTL:       getDurationOrDefault(common.EnvArchiveCacheTTL, defaultCacheTTL),
		CacheSize:      getIntOrDefault(common.EnvArchiveCacheSize, common.DefaultArchiveCacheSize),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFile:        os.Getenv(common.EnvLogFile),
		LogPretty:      getBoolOrDefault(common.EnvLogPretty, false),
		MaxUploadBytes: getInt64OrDefault(common.EnvMaxUploadBytes, common.DefaultMaxUploadBytes),
		PreviewPoints:  getIntOrDefault(common.EnvPreviewPoints, common.DefaultPreviewPoints),
		RequestTimeout: getDurationOrDefault(common.EnvRequestTimeout, defaultRequestTimeout),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func parseDurationOr(v string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}

func getInt64FromEnvOrConfig(key string, configValue, defaultValue int64) int64 {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getInt64OrDefault(key, defaultValue)
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true, "disabled": true,
}

// validateSettings performs range checks on configuration values
func validateSettings(settings *Settings) error {
	if settings.Port < 1 || settings.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", settings.Port)
	}

	if settings.ArchiveURL == "" {
		return fmt.Errorf("archive URL cannot be empty")
	}

	// Validate time durations
	if settings.ArchiveTimeout < time.Second || settings.ArchiveTimeout > time.Minute {
		return fmt.Errorf("archive timeout must be between 1s and 1m, got %v", settings.ArchiveTimeout)
	}
	if settings.CacheTTL < 0 || settings.CacheTTL > 30*24*time.Hour {
		return fmt.Errorf("archive cache TTL must be between 0 and 720h, got %v", settings.CacheTTL)
	}
	if settings.RequestTimeout < time.Second || settings.RequestTimeout > 5*time.Minute {
		return fmt.Errorf("request timeout must be between 1s and 5m, got %v", settings.RequestTimeout)
	}

	// Validate sizes
	if settings.CacheSize <= 0 || settings.CacheSize > 100000 {
		return fmt.Errorf("archive cache size must be between 1 and 100000, got %d", settings.CacheSize)
	}
	if settings.MaxUploadBytes < 1024 || settings.MaxUploadBytes > 1<<30 {
		return fmt.Errorf("max upload bytes must be between 1KiB and 1GiB, got %d", settings.MaxUploadBytes)
	}
	if settings.PreviewPoints < 0 || settings.PreviewPoints > 100000 {
		return fmt.Errorf("preview points must be between 0 and 100000, got %d", settings.PreviewPoints)
	}

	if !validLogLevels[settings.LogLevel] {
		return fmt.Errorf("unknown log level %q", settings.LogLevel)
	}

	return nil
}
