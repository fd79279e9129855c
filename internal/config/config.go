// Package config loads the application configuration with viper and
// sets up the logger. Configuration lives at
// $XDG_CONFIG_HOME/linkhoard/config.yaml; every key can be overridden
// through LINKHOARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Tools     ToolsConfig     `mapstructure:"tools"`
	Endpoints EndpointsConfig `mapstructure:"endpoints"`
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ToolsConfig overrides PATH lookup for external binaries. Empty values
// fall back to PATH.
type ToolsConfig struct {
	YTDLP       string `mapstructure:"yt_dlp"`
	FFmpeg      string `mapstructure:"ffmpeg"`
	FFprobe     string `mapstructure:"ffprobe"`
	SceneDetect string `mapstructure:"scenedetect"`
	ImageMagick string `mapstructure:"imagemagick"`
}

// EndpointsConfig holds the external service URLs.
type EndpointsConfig struct {
	TwitterScreenshot string `mapstructure:"twitter_screenshot"`
	OCRAPI            string `mapstructure:"ocr_api"`
}

// RuntimeConfig tunes the pipeline.
type RuntimeConfig struct {
	CacheDir       string `mapstructure:"cache_dir"`
	DownloadDir    string `mapstructure:"download_dir"`
	MaxRetries     int    `mapstructure:"max_retries"`
	DelegationHops int    `mapstructure:"delegation_hops"`
	Fanout         int    `mapstructure:"fanout"`
}

// LoggingConfig configures the slog handler and log rotation.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	Color      bool   `mapstructure:"color"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads the configuration. An explicit path wins; otherwise the
// XDG config directory is searched. A missing file is not an error, the
// defaults apply.
func Load(cfgFile string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(GetConfigDir())
	}

	v.SetEnvPrefix("LINKHOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoints.twitter_screenshot", "https://twitter.igr.ec")
	v.SetDefault("endpoints.ocr_api", "")

	v.SetDefault("runtime.cache_dir", filepath.Join(getCacheDir(), "linkhoard"))
	v.SetDefault("runtime.download_dir", ".")
	v.SetDefault("runtime.max_retries", 5)
	v.SetDefault("runtime.delegation_hops", 10)
	v.SetDefault("runtime.fanout", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)
}

// InitializeDirs creates the directories the application writes to.
func InitializeDirs() error {
	for _, dir := range []string{
		GetConfigDir(),
		filepath.Join(getCacheDir(), "linkhoard"),
		filepath.Join(getStateDir(), "linkhoard"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// SaveDefaultConfig writes a commented starter config to path.
func SaveDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0644)
}

const defaultConfigYAML = `# linkhoard configuration
tools:
  # Explicit binary paths; empty values use PATH lookup.
  yt_dlp: ""
  ffmpeg: ""
  ffprobe: ""
  scenedetect: ""
  imagemagick: ""

endpoints:
  twitter_screenshot: "https://twitter.igr.ec"
  # Leave empty to disable the OCR action.
  ocr_api: ""

runtime:
  download_dir: "."
  max_retries: 5
  delegation_hops: 10
  fanout: 4

logging:
  level: "info"
  format: "text"
  color: true
`

// GetConfigDir returns the linkhoard config directory.
func GetConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "linkhoard")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "linkhoard")
	}
	return filepath.Join(home, ".config", "linkhoard")
}

func getCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return os.TempDir()
}

func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, ".local", "state")
}
