package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// MaxPeriodMinutes bounds the summary period so a window touches at most
// two daily partitions.
const MaxPeriodMinutes = 24 * 60

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	SummaryPeriodMinutes int              `yaml:"summary_period_minutes"`
	Schedule             string           `yaml:"schedule"`
	Channels             []string         `yaml:"channels"`
	Language             string           `yaml:"language"`
	RunOnStart           bool             `yaml:"run_on_start"`
	Store                StoreConfig      `yaml:"store"`
	Telegram             TelegramConfig   `yaml:"telegram"`
	Summarizer           SummarizerConfig `yaml:"summarizer"`
	Publisher            PublisherConfig  `yaml:"publisher"`
	Log                  LogConfig        `yaml:"log"`
	Metrics              MetricsConfig    `yaml:"metrics"`
}

type StoreConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	PollTimeout int    `yaml:"poll_timeout"`
}

type SummarizerConfig struct {
	Type      string        `yaml:"type"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

type PublisherConfig struct {
	Type        string        `yaml:"type"`
	Destination string        `yaml:"destination"`
	ParseMode   string        `yaml:"parse_mode"`
	Timeout     time.Duration `yaml:"timeout"`
	Discord     DiscordConfig `yaml:"discord"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Period returns the summary period as a duration.
func (c *Config) Period() time.Duration {
	return time.Duration(c.SummaryPeriodMinutes) * time.Minute
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
// Unset variables are left in place so validation can report them.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// missing reports whether a required value is empty or still an
// unexpanded ${VAR} reference.
func missing(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || envVarRegex.MatchString(v)
}

// NormalizeChannel reduces t.me links and @handles to a bare username.
func NormalizeChannel(ch string) string {
	ch = strings.TrimSpace(ch)
	ch = strings.TrimPrefix(ch, "https://")
	ch = strings.TrimPrefix(ch, "http://")
	ch = strings.TrimPrefix(ch, "t.me/")
	ch = strings.TrimPrefix(ch, "telegram.me/")
	ch = strings.TrimPrefix(ch, "@")
	ch = strings.TrimSuffix(ch, "/")
	return strings.ToLower(ch)
}

func setDefaults(cfg *Config) {
	if cfg.SummaryPeriodMinutes == 0 {
		cfg.SummaryPeriodMinutes = 180
	}
	if cfg.Language == "" {
		cfg.Language = "Hebrew"
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = "data"
	}
	if cfg.Store.Prefix == "" {
		cfg.Store.Prefix = "telegram_log_"
	}
	if cfg.Telegram.PollTimeout == 0 {
		cfg.Telegram.PollTimeout = 30
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "gemini"
	}
	if cfg.Summarizer.Model == "" {
		switch cfg.Summarizer.Type {
		case "anthropic":
			cfg.Summarizer.Model = "claude-sonnet-4-20250514"
		case "openai":
			cfg.Summarizer.Model = "gpt-4o-mini"
		default:
			cfg.Summarizer.Model = "gemini-2.0-flash"
		}
	}
	if cfg.Summarizer.MaxTokens == 0 {
		cfg.Summarizer.MaxTokens = 2048
	}
	if cfg.Summarizer.Timeout == 0 {
		cfg.Summarizer.Timeout = 60 * time.Second
	}
	if cfg.Publisher.Type == "" {
		cfg.Publisher.Type = "telegram"
	}
	if cfg.Publisher.ParseMode == "" {
		cfg.Publisher.ParseMode = "Markdown"
	}
	if cfg.Publisher.Timeout == 0 {
		cfg.Publisher.Timeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	cfg.Channels = lo.Uniq(lo.FilterMap(cfg.Channels, func(ch string, _ int) (string, bool) {
		n := NormalizeChannel(ch)
		return n, n != ""
	}))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func validateLocal(cfg *Config) error {
	if cfg.SummaryPeriodMinutes < 1 || cfg.SummaryPeriodMinutes > MaxPeriodMinutes {
		return invalid("summary_period_minutes must be between 1 and %d, got %d", MaxPeriodMinutes, cfg.SummaryPeriodMinutes)
	}
	if missing(cfg.Store.Dir) {
		return invalid("store.dir is required")
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return invalid("unsupported log format %q (supported: console, json)", cfg.Log.Format)
	}
	return nil
}

func validate(cfg *Config) error {
	if err := validateLocal(cfg); err != nil {
		return err
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return invalid("schedule %q: %v", cfg.Schedule, err)
		}
	}
	if len(cfg.Channels) == 0 {
		return invalid("channels is required")
	}
	if missing(cfg.Telegram.BotToken) {
		return invalid("telegram.bot_token is required (set BOT_TOKEN env var)")
	}
	switch cfg.Summarizer.Type {
	case "gemini", "anthropic", "openai":
	default:
		return invalid("unsupported summarizer type %q (supported: gemini, anthropic, openai)", cfg.Summarizer.Type)
	}
	if missing(cfg.Summarizer.APIKey) {
		return invalid("summarizer.api_key is required")
	}
	if cfg.Summarizer.Timeout < 0 || cfg.Publisher.Timeout < 0 {
		return invalid("timeouts must not be negative")
	}
	switch cfg.Publisher.Type {
	case "telegram":
		if missing(cfg.Publisher.Destination) {
			return invalid("publisher.destination is required for telegram publisher (set CHAT_ID env var)")
		}
	case "discord":
		if missing(cfg.Publisher.Discord.WebhookURL) {
			return invalid("publisher.discord.webhook_url is required for discord publisher")
		}
	case "stdout":
	default:
		return invalid("unsupported publisher type %q (supported: telegram, discord, stdout)", cfg.Publisher.Type)
	}
	return nil
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration. A .env file in the working directory is
// loaded into the environment first when present.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLocal is Load for commands that only read the message store. It
// checks the period and store settings and ignores credentials.
func LoadLocal(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := validateLocal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)
	return &cfg, nil
}
