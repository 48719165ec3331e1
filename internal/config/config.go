package config

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Enrichment EnrichmentConfig `yaml:"enrichment" mapstructure:"enrichment"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Correction CorrectionConfig `yaml:"correction" mapstructure:"correction"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url" validate:"required"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns" validate:"gte=0"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// EnrichmentConfig configures the rate-limited enrichment client.
type EnrichmentConfig struct {
	Provider         string        `yaml:"provider" mapstructure:"provider" validate:"oneof=anthropic openai"`
	MinInterval      time.Duration `yaml:"min_interval" mapstructure:"min_interval" validate:"gte=0"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	MaxTokens        int64         `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gt=0"`
	Temperature      float64       `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	CircuitThreshold int           `yaml:"circuit_threshold" mapstructure:"circuit_threshold" validate:"gt=0"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OpenAIConfig holds settings for OpenAI or any compatible endpoint.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// CorrectionConfig configures the correction orchestrator and scanner.
type CorrectionConfig struct {
	CreateLimit        int           `yaml:"create_limit" mapstructure:"create_limit" validate:"gt=0"`
	ProcessLimit       int           `yaml:"process_limit" mapstructure:"process_limit" validate:"gt=0"`
	Workers            int           `yaml:"workers" mapstructure:"workers" validate:"gt=0,lte=32"`
	StuckTimeout       time.Duration `yaml:"stuck_timeout" mapstructure:"stuck_timeout" validate:"gt=0"`
	DuplicatePolicy    string        `yaml:"duplicate_policy" mapstructure:"duplicate_policy" validate:"oneof=skip overwrite"`
	MaxErrorMessages   int           `yaml:"max_error_messages" mapstructure:"max_error_messages" validate:"gt=0"`
	WaitBudget         int           `yaml:"wait_budget" mapstructure:"wait_budget" validate:"gte=0"`
	RecreateFailed     bool          `yaml:"recreate_failed" mapstructure:"recreate_failed"`
	Types              []string      `yaml:"types" mapstructure:"types"`
	PlaceholderTokens  []string      `yaml:"placeholder_tokens" mapstructure:"placeholder_tokens"`
	OverusedNames      []string      `yaml:"overused_names" mapstructure:"overused_names"`
	CurrentModelYear   int           `yaml:"current_model_year" mapstructure:"current_model_year" validate:"gte=0"`
	StaleYearTolerance int           `yaml:"stale_year_tolerance" mapstructure:"stale_year_tolerance" validate:"gte=0"`
}

// ServerConfig configures the metrics server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port" validate:"gt=0,lte=65535"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitoringConfig configures the background alert checker run by serve.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url" validate:"omitempty,url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs" validate:"gte=0"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold" validate:"gte=0,lte=1"`
	MaxPending           int     `yaml:"max_pending" mapstructure:"max_pending" validate:"gte=0"`
	MaxProcessing        int     `yaml:"max_processing" mapstructure:"max_processing" validate:"gte=0"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// Missing .env files are fine; real environment variables win.
	_ = godotenv.Load(".env", ".env.local")

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FIXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "content-fixer.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("enrichment.provider", "anthropic")
	v.SetDefault("enrichment.min_interval", "2s")
	v.SetDefault("enrichment.timeout", "60s")
	v.SetDefault("enrichment.max_tokens", 1024)
	v.SetDefault("enrichment.temperature", 0.2)
	v.SetDefault("enrichment.circuit_threshold", 3)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("correction.create_limit", 100)
	v.SetDefault("correction.process_limit", 10)
	v.SetDefault("correction.workers", 2)
	v.SetDefault("correction.stuck_timeout", "15m")
	v.SetDefault("correction.duplicate_policy", "skip")
	v.SetDefault("correction.max_error_messages", 20)
	v.SetDefault("correction.wait_budget", 1)
	v.SetDefault("correction.recreate_failed", false)
	v.SetDefault("correction.types", []string{"pressure_fix", "title_year_fix", "testimonial_name_fix"})
	v.SetDefault("correction.placeholder_tokens", []string{"N/A N/A N/A"})
	v.SetDefault("correction.overused_names", []string{"João Silva", "Maria Santos", "Carlos Oliveira", "Ana Costa"})
	v.SetDefault("correction.current_model_year", 0)
	v.SetDefault("correction.stale_year_tolerance", 3)
	v.SetDefault("server.port", 9090)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.max_pending", 0)
	v.SetDefault("monitoring.max_processing", 0)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fe.Namespace() + " (" + fe.Tag() + ")"
			}
			return eris.Errorf("config: invalid %s", strings.Join(fields, ", "))
		}
		return eris.Wrap(err, "config: validate")
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
