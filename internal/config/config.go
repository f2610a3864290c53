// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Tavily    TavilyConfig    `yaml:"tavily" mapstructure:"tavily"`
	Groq      GroqConfig      `yaml:"groq" mapstructure:"groq"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Research  ResearchConfig  `yaml:"research" mapstructure:"research"`
	Email     EmailConfig     `yaml:"email" mapstructure:"email"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run/result database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// TavilyConfig holds Tavily search API settings.
type TavilyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GroqConfig holds Groq completion API settings.
type GroqConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings for the alternative
// extraction backend.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ResearchConfig tunes the research pipeline.
type ResearchConfig struct {
	// Provider selects the extraction backend: groq or anthropic.
	Provider           string  `yaml:"provider" mapstructure:"provider"`
	MaxResultsPerQuery int     `yaml:"max_results_per_query" mapstructure:"max_results_per_query"`
	SearchDepth        string  `yaml:"search_depth" mapstructure:"search_depth"`
	EntityDelaySecs    int     `yaml:"entity_delay_secs" mapstructure:"entity_delay_secs"`
	QueryDelaySecs     int     `yaml:"query_delay_secs" mapstructure:"query_delay_secs"`
	MaxTokens          int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature        float64 `yaml:"temperature" mapstructure:"temperature"`
	PhoneRegion        string  `yaml:"phone_region" mapstructure:"phone_region"`
}

// EmailConfig configures the SMTP transport and campaign defaults.
type EmailConfig struct {
	SMTPHost      string `yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort      int    `yaml:"smtp_port" mapstructure:"smtp_port"`
	Address       string `yaml:"address" mapstructure:"address"`
	Password      string `yaml:"password" mapstructure:"password"`
	SenderName    string `yaml:"sender_name" mapstructure:"sender_name"`
	TemplateDir   string `yaml:"template_dir" mapstructure:"template_dir"`
	SendDelaySecs int    `yaml:"send_delay_secs" mapstructure:"send_delay_secs"`
}

// NotionConfig holds Notion credentials and the review database ID.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	ReviewDB string `yaml:"review_db" mapstructure:"review_db"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "enrich.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("research.provider", "groq")
	v.SetDefault("research.max_results_per_query", 2)
	v.SetDefault("research.search_depth", "advanced")
	v.SetDefault("research.entity_delay_secs", 3)
	v.SetDefault("research.max_tokens", 2000)
	v.SetDefault("research.temperature", 0.1)
	v.SetDefault("research.phone_region", "US")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.send_delay_secs", 2)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ValidateResearch checks the settings the research command needs,
// failing fast before any entity is processed.
func (c *Config) ValidateResearch() error {
	if c.Tavily.Key == "" {
		return eris.New("config: tavily.key is required")
	}
	switch c.Research.Provider {
	case "", "groq":
		if c.Groq.Key == "" {
			return eris.New("config: groq.key is required")
		}
	case "anthropic":
		if c.Anthropic.Key == "" {
			return eris.New("config: anthropic.key is required")
		}
	default:
		return eris.Errorf("config: unknown research provider %q", c.Research.Provider)
	}
	return nil
}

// ValidateEmail checks the settings the send command needs.
func (c *Config) ValidateEmail() error {
	if c.Email.SMTPHost == "" || c.Email.Address == "" || c.Email.Password == "" {
		return eris.New("config: email.smtp_host, email.address, and email.password are required")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
