package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-johnnyhe/jobs/internal/filter"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Discord  DiscordConfig  `yaml:"discord"`
	Events   EventsConfig   `yaml:"events"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
	Sources  SourcesConfig  `yaml:"sources"`
	Filter   FilterConfig   `yaml:"filter"`
	Tracker  TrackerConfig  `yaml:"tracker"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds the stats API HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// DiscordConfig holds the webhook notification channel configuration.
// The URL is a secret and normally comes from DISCORD_WEBHOOK_URL.
type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// EventsConfig holds the optional RabbitMQ posting-event publisher
// configuration. Disabled by default; the tracker runs fine without a broker.
type EventsConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	User       string        `yaml:"user"`
	Password   string        `yaml:"password"`
	VHost      string        `yaml:"vhost"`
	Exchange   string        `yaml:"exchange"`
	RoutingKey string        `yaml:"routing_key"`
	Timeout    time.Duration `yaml:"timeout"`
}

// HTTPConfig tunes the outbound fetch client used by ingestion adapters.
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryMinWait  time.Duration `yaml:"retry_min_wait"`
	RetryMaxWait  time.Duration `yaml:"retry_max_wait"`
	UserAgent     string        `yaml:"user_agent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// Company describes one career page to scrape and which ATS drives it.
type Company struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	ATS  string `yaml:"ats"` // greenhouse, lever, workday, internal
}

// GitHubRepo describes one repository listing file to monitor.
type GitHubRepo struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	File  string `yaml:"file"`
}

// SourcesConfig holds ingestion source configuration.
type SourcesConfig struct {
	Companies   []Company    `yaml:"companies"`
	GitHubRepos []GitHubRepo `yaml:"github_repos"`
	// TargetCompanies filters the community GitHub listing down to
	// companies worth tracking (substring match on company name).
	TargetCompanies []string `yaml:"target_companies"`
}

// FilterConfig carries the eligibility rule tables. Any table left empty in
// the YAML falls back to the built-in defaults.
type FilterConfig struct {
	TitleKeywords              []string `yaml:"title_keywords"`
	RoleKeywords               []string `yaml:"role_keywords"`
	TitleExclusions            []string `yaml:"title_exclusions"`
	SeniorityExclusions        []string `yaml:"seniority_exclusions"`
	SeniorityExclusionPatterns []string `yaml:"seniority_exclusion_patterns"`
	PreferredLocations         []string `yaml:"preferred_locations"`
	BlockedLocations           []string `yaml:"blocked_locations"`
}

// TrackerConfig holds run-loop settings.
type TrackerConfig struct {
	// AlertThresholds are the consecutive-failure counts at which a
	// source-failure alert is due. Must contain at least one positive value.
	AlertThresholds []int `yaml:"alert_thresholds"`
	// WatchIntervalHours is the cron period for -watch mode.
	WatchIntervalHours int `yaml:"watch_interval_hours"`
	// RetentionDays is the default age for -prune-days.
	RetentionDays int `yaml:"retention_days"`
}

// Load reads and parses the configuration file, applies defaults for
// anything omitted and env overrides for secrets.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	config.applyEnvOverrides()

	return &config, nil
}

// applyEnvOverrides lets the environment win for secrets so they never
// have to live in the YAML file.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("DISCORD_WEBHOOK_URL"); url != "" {
		c.Discord.WebhookURL = url
	}
	if pw := os.Getenv("DATABASE_PASSWORD"); pw != "" {
		c.Database.Password = pw
	}
	if pw := os.Getenv("RABBITMQ_PASSWORD"); pw != "" {
		c.Events.Password = pw
	}
}

// FilterRules assembles the filter rule tables from configuration.
func (c *Config) FilterRules() filter.Rules {
	return filter.Rules{
		TitleExclusions:            c.Filter.TitleExclusions,
		TitleKeywords:              c.Filter.TitleKeywords,
		RoleKeywords:               c.Filter.RoleKeywords,
		SeniorityExclusions:        c.Filter.SeniorityExclusions,
		SeniorityExclusionPatterns: c.Filter.SeniorityExclusionPatterns,
		PreferredLocations:         c.Filter.PreferredLocations,
		BlockedLocations:           c.Filter.BlockedLocations,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if len(c.Tracker.AlertThresholds) == 0 {
		return fmt.Errorf("tracker alert_thresholds must contain at least one value")
	}
	for _, t := range c.Tracker.AlertThresholds {
		if t <= 0 {
			return fmt.Errorf("invalid alert threshold: %d (must be positive)", t)
		}
	}

	if c.Events.Enabled {
		if c.Events.Host == "" {
			return fmt.Errorf("events host is required when events are enabled")
		}
		if c.Events.Port < MinPort || c.Events.Port > MaxPort {
			return fmt.Errorf("invalid events port: %d (must be between %d and %d)", c.Events.Port, MinPort, MaxPort)
		}
		if c.Events.Exchange == "" {
			return fmt.Errorf("events exchange is required when events are enabled")
		}
	}

	return nil
}

// ValidateAPIConfig additionally checks the fields the api-service needs.
func (c *Config) ValidateAPIConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return nil
}
