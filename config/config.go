// grbwatch/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DuplicatePolicySkip = "skip"
	DuplicatePolicyFail = "fail"
)

type ServerConfig struct {
	Port            string        `yaml:"port"`
	PollIntervalStr string        `yaml:"poll_interval"`
	PollInterval    time.Duration `yaml:"-"` // Parsed duration, 0 disables polling
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// Enabled reports whether the MySQL archive is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.DBName != ""
}

type SourceConfig struct {
	URL           string        `yaml:"url"`
	TimeoutStr    string        `yaml:"timeout"`
	Timeout       time.Duration `yaml:"-"`
	LightCurveURL string        `yaml:"light_curve_url"` // %s is replaced by the trigger id
}

type StoreConfig struct {
	EventsFile string `yaml:"events_file"`
}

type SlackConfig struct {
	TokenFile string `yaml:"token_file"`
	Token     string `yaml:"-"` // Resolved at runtime from TokenFile or SLACK_TOKEN
	APIURL    string `yaml:"api_url"`
	Channel   string `yaml:"channel"`
	BotName   string `yaml:"bot_name"`
	IconURL   string `yaml:"icon_url"`
}

type TelegramConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChatID    int64  `yaml:"chat_id"`
	ServerURL string `yaml:"server_url"`
}

// Enabled reports whether the Telegram mirror is configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

type NotifyConfig struct {
	DuplicatePolicy string         `yaml:"duplicate_policy"`
	Slack           SlackConfig    `yaml:"slack"`
	Telegram        TelegramConfig `yaml:"telegram"`
}

type DustMapConfig struct {
	Dir         string `yaml:"dir"`
	URLTemplate string `yaml:"url_template"` // %s is replaced by "ngp" or "sgp"
	NoFetch     bool   `yaml:"no_fetch"`     // Do not download missing maps
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Source   SourceConfig   `yaml:"source"`
	Store    StoreConfig    `yaml:"store"`
	Notify   NotifyConfig   `yaml:"notify"`
	DustMap  DustMapConfig  `yaml:"dust_map"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

var AppConfig Config

// LoadConfig reads configuration into AppConfig. An empty configPath searches
// the standard locations and falls back to built-in defaults when none exist.
func LoadConfig(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	AppConfig = *cfg
	return nil
}

// Load reads the YAML file at configPath (if any), applies .env and
// environment overrides, fills defaults and validates the result.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if configPath == "" {
		configPath = os.Getenv("GRBWATCH_CONFIG")
	}
	if configPath == "" {
		potentialPaths := []string{
			"config.yaml",
			"config/config.yaml",
		}
		for _, p := range potentialPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	var cfg Config
	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	var err error
	if cfg.Source.TimeoutStr != "" {
		cfg.Source.Timeout, err = time.ParseDuration(cfg.Source.TimeoutStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse source timeout: %w", err)
		}
	} else {
		cfg.Source.Timeout = 60 * time.Second
	}
	if cfg.Server.PollIntervalStr != "" {
		cfg.Server.PollInterval, err = time.ParseDuration(cfg.Server.PollIntervalStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse server poll_interval: %w", err)
		}
	}

	cfg.Notify.DuplicatePolicy = strings.ToLower(strings.TrimSpace(cfg.Notify.DuplicatePolicy))
	switch cfg.Notify.DuplicatePolicy {
	case DuplicatePolicySkip, DuplicatePolicyFail:
	default:
		return nil, fmt.Errorf("invalid notify.duplicate_policy %q (use %q or %q)",
			cfg.Notify.DuplicatePolicy, DuplicatePolicySkip, DuplicatePolicyFail)
	}

	if dir := filepath.Dir(cfg.Store.EventsFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for events file: %w", err)
		}
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GRBWATCH_EVENTS_FILE"); v != "" {
		cfg.Store.EventsFile = v
	}
	if v := os.Getenv("SLACK_CHANNEL"); v != "" {
		cfg.Notify.Slack.Channel = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notify.Telegram.BotToken = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Source.URL == "" {
		cfg.Source.URL = "https://gcn.gsfc.nasa.gov/swift_grbs.html"
	}
	if cfg.Source.LightCurveURL == "" {
		cfg.Source.LightCurveURL = "https://gcn.gsfc.nasa.gov/notices_s/sw0%s000msb.jpeg"
	}
	if cfg.Store.EventsFile == "" {
		cfg.Store.EventsFile = "swift_bat.dat"
	}
	if cfg.Notify.DuplicatePolicy == "" {
		cfg.Notify.DuplicatePolicy = DuplicatePolicySkip
	}
	if cfg.Notify.Slack.TokenFile == "" {
		cfg.Notify.Slack.TokenFile = "slack.token"
	}
	if cfg.Notify.Slack.Channel == "" {
		cfg.Notify.Slack.Channel = "grb_alerts"
	}
	if cfg.Notify.Slack.BotName == "" {
		cfg.Notify.Slack.BotName = "Robotron 2000"
	}
	if cfg.Notify.Slack.IconURL == "" {
		cfg.Notify.Slack.IconURL = "https://ziggy.ucolick.org/ckilpatrick/images/icon.jpg"
	}
	if cfg.DustMap.Dir == "" {
		cfg.DustMap.Dir = "sfd"
	}
	if cfg.DustMap.URLTemplate == "" {
		cfg.DustMap.URLTemplate = "https://github.com/kbarbary/sfddata/raw/master/SFD_dust_4096_%s.fits"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 10
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "3306"
	}
}
