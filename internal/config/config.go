// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/wildmooseai/pageprep/api/schemas"
)

// Config holds the entire application configuration.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Readiness   ReadinessConfig   `mapstructure:"readiness" yaml:"readiness"`
	Watcher     WatcherConfig     `mapstructure:"watcher" yaml:"watcher"`
	Navigation  NavigationConfig  `mapstructure:"navigation" yaml:"navigation"`
	ClickPolicy ClickPolicyConfig `mapstructure:"click_policy" yaml:"click_policy"`
	Sinks       SinksConfig       `mapstructure:"sinks" yaml:"sinks"`
	Journal     JournalConfig     `mapstructure:"journal" yaml:"journal"`
}

// LoggerConfig controls the zap logger construction.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors for the console format.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls the CDP-attached browser.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// ActionEffectWait is the fixed pause applied by hosts after any
	// in-page action before re-observing, distinct from the readiness
	// settle delay.
	ActionEffectWait time.Duration `mapstructure:"action_effect_wait" yaml:"action_effect_wait"`
}

// ReadinessConfig parametrizes the element poller.
type ReadinessConfig struct {
	Selector     string        `mapstructure:"selector" yaml:"selector"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Settle       time.Duration `mapstructure:"settle" yaml:"settle"`
}

// RuleConfig is the configuration shape of one mutation-watch rule.
type RuleConfig struct {
	ClassPrefix string `mapstructure:"class_prefix" yaml:"class_prefix"`
	Action      string `mapstructure:"action" yaml:"action"`
}

// WatcherConfig parametrizes the mutation watcher.
type WatcherConfig struct {
	Rules []RuleConfig `mapstructure:"rules" yaml:"rules"`
	// ReadyTimeout bounds how long installation waits for the document
	// structural root to become available.
	ReadyTimeout time.Duration `mapstructure:"ready_timeout" yaml:"ready_timeout"`
}

// WatchRules converts the configured rules to their schema form.
func (w WatcherConfig) WatchRules() []schemas.WatchRule {
	rules := make([]schemas.WatchRule, 0, len(w.Rules))
	for _, r := range w.Rules {
		rules = append(rules, schemas.WatchRule{
			ClassPrefix: r.ClassPrefix,
			Action:      schemas.RuleAction(r.Action),
		})
	}
	return rules
}

// NavigationConfig parametrizes the navigation interceptor.
type NavigationConfig struct {
	// NewTabSentinel is the anchor target value that triggers in-place
	// redirection instead of a new browsing context.
	NewTabSentinel string `mapstructure:"new_tab_sentinel" yaml:"new_tab_sentinel"`
}

// ClickPolicyConfig is the data behind the click-override classifier.
type ClickPolicyConfig struct {
	CaptchaAnchorID string   `mapstructure:"captcha_anchor_id" yaml:"captcha_anchor_id"`
	AllowAriaLabels []string `mapstructure:"allow_aria_labels" yaml:"allow_aria_labels"`
}

// WebhookConfig configures the webhook event sink.
type WebhookConfig struct {
	URL           string        `mapstructure:"url" yaml:"url"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second" yaml:"rate_per_second"`
}

// SinksConfig selects where engine events are emitted.
type SinksConfig struct {
	Stdout  bool          `mapstructure:"stdout" yaml:"stdout"`
	Webhook WebhookConfig `mapstructure:"webhook" yaml:"webhook"`
}

// JournalConfig configures the embedded event journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pageprep")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.action_effect_wait", "1500ms")

	// -- Readiness --
	v.SetDefault("readiness.selector", "header h2")
	v.SetDefault("readiness.timeout", "10s")
	v.SetDefault("readiness.poll_interval", "100ms")
	v.SetDefault("readiness.settle", "1s")

	// -- Watcher --
	v.SetDefault("watcher.ready_timeout", "10s")
	v.SetDefault("watcher.rules", []map[string]any{
		{"class_prefix": "druids_onboarding_billboard", "action": "remove"},
	})

	// -- Navigation --
	v.SetDefault("navigation.new_tab_sentinel", "_blank")

	// -- Click policy --
	v.SetDefault("click_policy.captcha_anchor_id", "recaptcha-anchor")
	v.SetDefault("click_policy.allow_aria_labels", []string{"Log in"})

	// -- Sinks --
	v.SetDefault("sinks.stdout", true)
	v.SetDefault("sinks.webhook.timeout", "10s")
	v.SetDefault("sinks.webhook.rate_per_second", 5.0)

	// -- Journal --
	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.path", "pageprep.db")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults; fail loudly if it ever does.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration from a viper instance and
// validates it.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Readiness.Timeout < 0 {
		return fmt.Errorf("readiness.timeout must not be negative")
	}
	if c.Readiness.PollInterval <= 0 {
		return fmt.Errorf("readiness.poll_interval must be a positive duration")
	}
	if c.Readiness.Settle < 0 {
		return fmt.Errorf("readiness.settle must not be negative")
	}
	for _, r := range c.Watcher.WatchRules() {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	if c.Navigation.NewTabSentinel == "" {
		return fmt.Errorf("navigation.new_tab_sentinel must not be empty")
	}
	if c.Sinks.Webhook.URL != "" && c.Sinks.Webhook.RatePerSecond <= 0 {
		return fmt.Errorf("sinks.webhook.rate_per_second must be positive when a webhook is configured")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	return nil
}
