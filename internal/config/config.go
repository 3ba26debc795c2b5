// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/phuslu/log"
	"github.com/spf13/viper"
)

// Schedule describes a scrape that the scheduler submits periodically.
type Schedule struct {
	StoreType    string   `mapstructure:"store_type"`
	URL          string   `mapstructure:"url"`
	MaxPages     int      `mapstructure:"max_pages"`
	Categories   []string `mapstructure:"categories"`
	EveryMinutes int      `mapstructure:"every_minutes"`
}

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port     int `mapstructure:"port"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Output struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"output"`
	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`
	Status struct {
		LogTail int `mapstructure:"log_tail"`
	} `mapstructure:"status"`
	Scraper   ScraperConfig `mapstructure:"scraper"`
	Events    EventsConfig  `mapstructure:"events"`
	Schedules []Schedule    `mapstructure:"schedules"`
}

// ScraperConfig tunes the scrape engine.
type ScraperConfig struct {
	UserAgent             string `mapstructure:"user_agent"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
	PageDelayMs           int    `mapstructure:"page_delay_ms"`
	CategoryDelayMs       int    `mapstructure:"category_delay_ms"`
	Browser               bool   `mapstructure:"browser"`
}

// EventsConfig configures the optional Kafka lifecycle publisher.
type EventsConfig struct {
	Kafka struct {
		Broker string `mapstructure:"broker"`
		Topic  string `mapstructure:"topic"`
	} `mapstructure:"kafka"`
}

// RequestTimeout returns the per-page fetch timeout.
func (c ScraperConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// PageDelay returns the minimum spacing between two page fetches.
func (c ScraperConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMs) * time.Millisecond
}

// CategoryDelay returns the pause between two categories of a multi-category run.
func (c ScraperConfig) CategoryDelay() time.Duration {
	return time.Duration(c.CategoryDelayMs) * time.Millisecond
}

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36"

// EnvFile holds SHELFIE_* overrides loaded before the environment is read.
const EnvFile = ".env"

// LoadEnvFile exports the variables of a dotenv file. Variables already set in
// the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	if err := LoadEnvFile(EnvFile); err != nil {
		return nil, err
	}

	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// e.g., SHELFIE_OUTPUT_PATH will override the `output.path` key.
	viper.SetEnvPrefix("SHELFIE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 5000)
	viper.SetDefault("database.path", "./shelfie.db")
	viper.SetDefault("output.path", "./uploads")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "shelfie.log")
	viper.SetDefault("status.log_tail", 50)
	viper.SetDefault("scraper.user_agent", DefaultUserAgent)
	viper.SetDefault("scraper.request_timeout_seconds", 30)
	viper.SetDefault("scraper.page_delay_ms", 2000)
	viper.SetDefault("scraper.category_delay_ms", 5000)
	viper.SetDefault("scraper.browser", false)
	viper.SetDefault("events.kafka.broker", "")
	viper.SetDefault("events.kafka.topic", "shelfie.runs")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Watch re-reads config.yml whenever it changes on disk and hands the fresh
// values to onChange. Only settings read at use time (like the log level)
// take effect without a restart.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) { reload(e, onChange) })
	viper.WatchConfig()
}

// reload decodes the current settings after e and passes them to onChange.
// A file that no longer decodes is logged and the previous settings stay.
func reload(e fsnotify.Event, onChange func(*Config)) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Error().Err(err).Str("file", e.Name).Msg("Failed to reload configuration, keeping the previous settings")
		return
	}
	onChange(&config)
}
