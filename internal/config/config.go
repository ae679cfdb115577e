package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default values for optional settings.
const (
	DefaultPort          = "8080"
	DefaultAppEnv        = "development"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultDBDriver      = "mysql"
	DefaultJWTTTL        = 24 * time.Hour
	DefaultRedisAddr     = "localhost:6379"
	DefaultAIBaseURL     = "https://openrouter.ai/api/v1"
	DefaultAITemperature = 0.7
	DefaultAIMaxTokens   = 2000
	DefaultReconcileCron = "*/15 * * * *"
	DefaultRateLimitRPS  = 5
	DefaultRateBurst     = 10
)

// DefaultAIModels is the ordered fallback list tried by the assistant.
var DefaultAIModels = []string{
	"google/gemini-2.0-flash-exp:free",
	"google/gemini-flash-1.5",
	"meta-llama/llama-3.1-8b-instruct:free",
	"microsoft/phi-3-mini-128k-instruct:free",
	"qwen/qwen-2-7b-instruct:free",
}

type Config struct {
	Port   string `mapstructure:"PORT" validate:"required"`
	AppEnv string `mapstructure:"APP_ENV" validate:"oneof=development production test"`

	Log struct {
		Level  string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
		Format string `mapstructure:"LOG_FORMAT" validate:"oneof=text json"`
	} `mapstructure:",squash"`

	DB struct {
		Driver string `mapstructure:"DB_DRIVER" validate:"oneof=mysql postgres sqlite"`
		DSN    string `mapstructure:"DB_DSN" validate:"required"`
	} `mapstructure:",squash"`

	JWT struct {
		Secret string        `mapstructure:"JWT_SECRET" validate:"required,min=16"`
		TTL    time.Duration `mapstructure:"JWT_TTL" validate:"gt=0"`
	} `mapstructure:",squash"`

	Redis struct {
		Addr     string `mapstructure:"REDIS_ADDR"`
		Password string `mapstructure:"REDIS_PASSWORD"`
		DB       int    `mapstructure:"REDIS_DB" validate:"gte=0"`
	} `mapstructure:",squash"`

	S3 struct {
		Bucket        string `mapstructure:"S3_BUCKET"`
		Endpoint      string `mapstructure:"S3_ENDPOINT" validate:"omitempty,url"`
		PublicBaseURL string `mapstructure:"S3_PUBLIC_BASE_URL" validate:"omitempty,url"`
	} `mapstructure:",squash"`

	SQS struct {
		ReviewQueue string `mapstructure:"SQS_REVIEW_QUEUE"`
	} `mapstructure:",squash"`

	FCM struct {
		CredentialsFile string `mapstructure:"FCM_CREDENTIALS_FILE"`
	} `mapstructure:",squash"`

	AI struct {
		BaseURL     string   `mapstructure:"AI_BASE_URL" validate:"required,url"`
		APIKey      string   `mapstructure:"AI_API_KEY"`
		Models      []string `mapstructure:"AI_MODELS" validate:"min=1,dive,required"`
		Temperature float32  `mapstructure:"AI_TEMPERATURE" validate:"gte=0,lte=2"`
		MaxTokens   int      `mapstructure:"AI_MAX_TOKENS" validate:"gt=0"`
	} `mapstructure:",squash"`

	RateLimit struct {
		RPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
		Burst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gt=0"`
	} `mapstructure:",squash"`

	AdminNotifyEmail string `mapstructure:"ADMIN_NOTIFY_EMAIL" validate:"omitempty,email"`
	EmailRedirectURL string `mapstructure:"EMAIL_REDIRECT_URL" validate:"omitempty,url"`
	ReconcileCron    string `mapstructure:"RECONCILE_CRON" validate:"required"`
	CORSOrigins      string `mapstructure:"CORS_ORIGINS"`
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// AllowedOrigins splits CORS_ORIGINS. An empty value allows every origin.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSOrigins)
}

// Load reads configuration from the environment (a .env file is loaded by
// the caller) on top of defaults, then validates it.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// AI_MODELS comes in as a single comma separated string from the env.
	cfg.AI.Models = splitList(strings.Join(cfg.AI.Models, ","))

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", DefaultPort)
	v.SetDefault("APP_ENV", DefaultAppEnv)
	v.SetDefault("LOG_LEVEL", DefaultLogLevel)
	v.SetDefault("LOG_FORMAT", DefaultLogFormat)
	v.SetDefault("DB_DRIVER", DefaultDBDriver)
	v.SetDefault("DB_DSN", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", DefaultJWTTTL)
	v.SetDefault("REDIS_ADDR", DefaultRedisAddr)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_PUBLIC_BASE_URL", "")
	v.SetDefault("SQS_REVIEW_QUEUE", "")
	v.SetDefault("FCM_CREDENTIALS_FILE", "")
	v.SetDefault("AI_BASE_URL", DefaultAIBaseURL)
	v.SetDefault("AI_API_KEY", "")
	v.SetDefault("AI_MODELS", strings.Join(DefaultAIModels, ","))
	v.SetDefault("AI_TEMPERATURE", DefaultAITemperature)
	v.SetDefault("AI_MAX_TOKENS", DefaultAIMaxTokens)
	v.SetDefault("RATE_LIMIT_RPS", DefaultRateLimitRPS)
	v.SetDefault("RATE_LIMIT_BURST", DefaultRateBurst)
	v.SetDefault("ADMIN_NOTIFY_EMAIL", "")
	v.SetDefault("EMAIL_REDIRECT_URL", "")
	v.SetDefault("RECONCILE_CRON", DefaultReconcileCron)
	v.SetDefault("CORS_ORIGINS", "")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
