package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned by Validate when the exchange API key or secret is absent.
var ErrMissingCredentials = errors.New("BITFINEX_API_KEY and BITFINEX_API_SECRET must be set")

const (
	DefaultPath     = "configs/config.yaml"
	DefaultInterval = 30 * time.Minute
	redacted        = "***"
)

// Duration accepts Go durations plus day and week units ("30m", "1d").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type Email struct {
	Enabled    bool   `yaml:"enabled"`
	To         string `yaml:"to_email"`
	From       string `yaml:"from_email"`
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"smtp_username"`
	Password   string `yaml:"smtp_password"`
}

type Webhook struct {
	Enabled    bool              `yaml:"enabled"`
	WebhookURL string            `yaml:"webhook_url"`
	Headers    map[string]string `yaml:"headers,omitempty"`
}

// Config holds all application configuration.
type Config struct {
	Bitfinex struct {
		APIKey         string `yaml:"api_key"`
		APISecret      string `yaml:"api_secret"`
		AuthURL        string `yaml:"auth_url"`
		PublicURL      string `yaml:"public_url"`
		RequestsPerMin int    `yaml:"requests_per_min"`
	} `yaml:"bitfinex"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		// Notify pushes change notifications to the chat in addition to serving commands.
		Notify bool `yaml:"notify"`
	} `yaml:"telegram"`
	Monitor struct {
		Interval   Duration `yaml:"interval"`
		Currencies []string `yaml:"currencies"`
	} `yaml:"monitor"`
	Storage struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"storage"`
	Notifications struct {
		Email   Email   `yaml:"email"`
		Discord Webhook `yaml:"discord"`
		Slack   Webhook `yaml:"slack"`
		Webhook Webhook `yaml:"webhook"`
		Desktop struct {
			Enabled bool `yaml:"enabled"`
		} `yaml:"desktop"`
	} `yaml:"notifications"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then the .env file, then applies environment
// variable overrides and defaults. A missing YAML or .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Path returns the config file location, honouring CONFIG_PATH.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("BITFINEX_API_KEY", &c.Bitfinex.APIKey)
	setString("BITFINEX_API_SECRET", &c.Bitfinex.APISecret)
	setString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	setString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	setString("STORAGE_DRIVER", &c.Storage.Driver)
	setString("DATA_FILE", &c.Storage.Path)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FILE", &c.Log.File)
	setString("METRICS_ADDR", &c.Metrics.Addr)
	setString("HTTPS_PROXY", &c.Proxy)

	if v := os.Getenv("TELEGRAM_NOTIFY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TELEGRAM_NOTIFY: %w", err)
		}
		c.Telegram.Notify = b
	}
	if v := os.Getenv("MONITOR_INTERVAL"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("MONITOR_INTERVAL: %w", err)
		}
		c.Monitor.Interval = Duration(d)
	}
	if v := os.Getenv("MONITORED_FUNDS"); v != "" {
		c.Monitor.Currencies = strings.Split(v, ",")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Bitfinex.RequestsPerMin == 0 {
		c.Bitfinex.RequestsPerMin = 60
	}
	if c.Monitor.Interval == 0 {
		c.Monitor.Interval = Duration(DefaultInterval)
	}
	currencies := c.Monitor.Currencies[:0]
	for _, cur := range c.Monitor.Currencies {
		if cur = strings.ToUpper(strings.TrimSpace(cur)); cur != "" {
			currencies = append(currencies, cur)
		}
	}
	c.Monitor.Currencies = currencies
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case "sqlite":
			c.Storage.Path = "data/funding_sentinel.db"
		case "buntdb":
			c.Storage.Path = "data/funding_sentinel.bunt"
		default:
			c.Storage.Path = "data/funding_history.json"
		}
	}
	if c.Notifications.Email.SMTPServer == "" {
		c.Notifications.Email.SMTPServer = "smtp.gmail.com"
	}
	if c.Notifications.Email.SMTPPort == 0 {
		c.Notifications.Email.SMTPPort = 587
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Interval returns the polling interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Monitor.Interval)
}

// BotEnabled reports whether the chat front-end has everything it needs.
func (c *Config) BotEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Bitfinex.APIKey == "" || c.Bitfinex.APISecret == "" {
		return ErrMissingCredentials
	}
	if c.Interval() < time.Second {
		return fmt.Errorf("monitor.interval must be at least 1s, got %s", c.Interval())
	}
	switch c.Storage.Driver {
	case "file", "sqlite", "buntdb", "memory":
	default:
		return fmt.Errorf("storage.driver %q is not one of file, sqlite, buntdb, memory", c.Storage.Driver)
	}
	if c.Telegram.Notify && !c.BotEnabled() {
		return fmt.Errorf("telegram.notify requires telegram.bot_token and telegram.chat_id")
	}
	if e := c.Notifications.Email; e.Enabled && (e.To == "" || e.From == "") {
		return fmt.Errorf("notifications.email requires to_email and from_email")
	}
	for name, w := range map[string]Webhook{
		"discord": c.Notifications.Discord,
		"slack":   c.Notifications.Slack,
		"webhook": c.Notifications.Webhook,
	} {
		if w.Enabled && w.WebhookURL == "" {
			return fmt.Errorf("notifications.%s.webhook_url is required", name)
		}
	}
	return nil
}

// String renders the config as YAML with secrets masked.
func (c Config) String() string {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&c.Bitfinex.APIKey)
	mask(&c.Bitfinex.APISecret)
	mask(&c.Telegram.BotToken)
	mask(&c.Telegram.ChatID)
	mask(&c.Notifications.Email.Password)
	mask(&c.Notifications.Discord.WebhookURL)
	mask(&c.Notifications.Slack.WebhookURL)
	mask(&c.Notifications.Webhook.WebhookURL)
	c.Notifications.Webhook.Headers = nil

	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(out)
}

func parseDuration(s string) (time.Duration, error) {
	d, err := str2duration.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return d, nil
}
