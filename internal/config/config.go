// Package config loads pipeline settings from config.yaml, with VNTOURISM_*
// environment overrides and defaults for every knob.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all pipeline settings.
type Config struct {
	DataDir       string `mapstructure:"data_dir"`
	NormalizedDir string `mapstructure:"normalized_dir"`
	ModelsDir     string `mapstructure:"models_dir"`
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"` // json or text

	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Trends    TrendsConfig    `mapstructure:"trends"`
	YouTube   YouTubeConfig   `mapstructure:"youtube"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Geo       GeoConfig       `mapstructure:"geo"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Model     ModelConfig     `mapstructure:"model"`
}

// ScrapeConfig tunes the government directory walker.
type ScrapeConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	UserAgent      string        `mapstructure:"user_agent"`
	MaxPages       int           `mapstructure:"max_pages"`
	StartPage      int           `mapstructure:"start_page"`
	Delay          time.Duration `mapstructure:"delay"`
	Timeout        time.Duration `mapstructure:"timeout"`
	CheckpointEach int           `mapstructure:"checkpoint_each"`
}

// TrendsConfig tunes the search-interest collector.
type TrendsConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeframe     string        `mapstructure:"timeframe"`
	AnchorKeyword string        `mapstructure:"anchor_keyword"`
	GroupSize     int           `mapstructure:"group_size"`
	RawDir        string        `mapstructure:"raw_dir"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// YouTubeConfig tunes the YouTube Data API collector.
type YouTubeConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	MaxResults int    `mapstructure:"max_results"`
	WindowDays int    `mapstructure:"window_days"`
}

// WeatherConfig tunes the Open-Meteo archive collector.
type WeatherConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	StartYear  int           `mapstructure:"start_year"`
	EndYear    int           `mapstructure:"end_year"`
	Timezone   string        `mapstructure:"timezone"`
	MinDelay   time.Duration `mapstructure:"min_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// GeoConfig tunes the Nominatim geocoder.
type GeoConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheSize int           `mapstructure:"cache_size"`
}

// DashboardConfig tunes the HTTP dashboard.
type DashboardConfig struct {
	Addr            string        `mapstructure:"addr"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ModelConfig holds the gradient-boosting hyperparameters.
type ModelConfig struct {
	LearningRate    float64 `mapstructure:"learning_rate"`
	NumLeaves       int     `mapstructure:"num_leaves"`
	NumRounds       int     `mapstructure:"num_rounds"`
	FeatureFraction float64 `mapstructure:"feature_fraction"`
	BaggingFraction float64 `mapstructure:"bagging_fraction"`
	EarlyStopping   int     `mapstructure:"early_stopping"`
	MinLeafSamples  int     `mapstructure:"min_leaf_samples"`
	Seed            int64   `mapstructure:"seed"`
	TestMonths      int     `mapstructure:"test_months"`
}

// Load reads configuration from the given file (optional) and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VNTOURISM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("normalized_dir", "data/normalized")
	v.SetDefault("models_dir", "models")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("scrape.base_url", "https://csdl.vietnamtourism.gov.vn")
	v.SetDefault("scrape.user_agent", "Mozilla/5.0")
	v.SetDefault("scrape.max_pages", 65)
	v.SetDefault("scrape.start_page", 1)
	v.SetDefault("scrape.delay", "800ms")
	v.SetDefault("scrape.timeout", "25s")
	v.SetDefault("scrape.checkpoint_each", 10)

	v.SetDefault("trends.base_url", "https://trends.google.com/trends/api")
	v.SetDefault("trends.timeframe", "today 12-m")
	v.SetDefault("trends.anchor_keyword", "Thành phố Hà Nội")
	v.SetDefault("trends.group_size", 4)
	v.SetDefault("trends.raw_dir", "data/dest_trends_raw")
	v.SetDefault("trends.retry_delay", "6s")
	v.SetDefault("trends.max_retries", 3)

	// The empty default registers the key so VNTOURISM_YOUTUBE_API_KEY is
	// picked up even when no config file mentions it.
	v.SetDefault("youtube.api_key", "")
	v.SetDefault("youtube.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("youtube.max_results", 50)
	v.SetDefault("youtube.window_days", 7)

	v.SetDefault("weather.base_url", "https://archive-api.open-meteo.com/v1/archive")
	v.SetDefault("weather.start_year", 2011)
	v.SetDefault("weather.end_year", 2025)
	v.SetDefault("weather.timezone", "Asia/Bangkok")
	v.SetDefault("weather.min_delay", "15s")
	v.SetDefault("weather.max_delay", "25s")
	v.SetDefault("weather.max_retries", 5)
	v.SetDefault("weather.timeout", "30s")

	v.SetDefault("geo.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geo.user_agent", "vntourism-pipeline/1.0")
	v.SetDefault("geo.timeout", "15s")
	v.SetDefault("geo.cache_size", 64)

	v.SetDefault("dashboard.addr", ":8080")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("dashboard.shutdown_timeout", "10s")

	v.SetDefault("model.learning_rate", 0.05)
	v.SetDefault("model.num_leaves", 63)
	v.SetDefault("model.num_rounds", 500)
	v.SetDefault("model.feature_fraction", 0.8)
	v.SetDefault("model.bagging_fraction", 0.8)
	v.SetDefault("model.early_stopping", 50)
	v.SetDefault("model.min_leaf_samples", 20)
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.test_months", 6)
}

func (c *Config) validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.Scrape.MaxPages <= 0 {
		return errors.New("scrape.max_pages must be positive")
	}
	if c.Trends.GroupSize <= 0 || c.Trends.GroupSize > 4 {
		return errors.New("trends.group_size must be between 1 and 4")
	}
	if c.Weather.StartYear > c.Weather.EndYear {
		return errors.New("weather.start_year must not exceed weather.end_year")
	}
	if c.Model.LearningRate <= 0 || c.Model.LearningRate > 1 {
		return errors.New("model.learning_rate must be in (0, 1]")
	}
	if c.Model.NumLeaves < 2 {
		return errors.New("model.num_leaves must be at least 2")
	}
	if c.Dashboard.ShutdownTimeout <= 0 {
		return errors.New("dashboard.shutdown_timeout must be positive")
	}
	return nil
}
