package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger         `mapstructure:"logger"`
	DB        Database       `mapstructure:"database"`
	API       API            `mapstructure:"api"`
	Scheduler Scheduler      `mapstructure:"scheduler"`
	Research  Research       `mapstructure:"research"`
	Gemini    Gemini         `mapstructure:"gemini"`
	Webhook   Webhook        `mapstructure:"webhook"`
	Cache     Cache          `mapstructure:"cache"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type Scheduler struct {
	// SweepInterval is the cadence of the stuck-job sweeper.
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	StuckJobTimeout time.Duration `mapstructure:"stuck_job_timeout"`
}

type API struct {
	Port int `mapstructure:"port"`
}

// Research configures the deep-research provider (async, webhook callback).
type Research struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	CallbackURL         string        `mapstructure:"callback_url"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

// Gemini configures the secondary synchronous provider.
type Gemini struct {
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_minute"`
}

// Webhook configures inbound provider callback verification. An empty secret
// disables signature checks.
type Webhook struct {
	Secret string `mapstructure:"secret"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	CostSummaryTTL    time.Duration `mapstructure:"cost_summary_ttl"`
}

type TelegramConfig struct {
	BotToken                  string        `mapstructure:"bot_token"`
	ChatID                    int64         `mapstructure:"chat_id"`
	TimeoutDuration           time.Duration `mapstructure:"timeout_duration"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second"`
}

func Load() (*Config, error) {
	// Local development convenience; missing .env is not an error.
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("scheduler.sweep_interval", 10*time.Minute)
	viper.SetDefault("scheduler.stuck_job_timeout", time.Hour)
	viper.SetDefault("research.model", "deep-research-1")
	viper.SetDefault("research.timeout", 30*time.Second)
	viper.SetDefault("research.max_request_per_minute", 10)
	viper.SetDefault("gemini.model", "gemini-2.5-pro")
	viper.SetDefault("gemini.timeout", 5*time.Minute)
	viper.SetDefault("gemini.max_request_per_minute", 10)
	viper.SetDefault("gemini.max_token_per_minute", 250000)
	viper.SetDefault("cache.default_expiration", 5*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)
	viper.SetDefault("cache.cost_summary_ttl", 5*time.Minute)
}
