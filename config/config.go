package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 服务全量配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Mailer    MailerConfig    `mapstructure:"mailer"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite / postgres
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MatchingConfig 匹配引擎参数，默认值与线上参考实现一致
type MatchingConfig struct {
	SentimentWeight     float64       `mapstructure:"sentiment_weight"`
	IntentWeight        float64       `mapstructure:"intent_weight"`
	EnergyWeight        float64       `mapstructure:"energy_weight"`
	MinAcceptableScore  float64       `mapstructure:"min_acceptable_score"`
	SecondBestThreshold float64       `mapstructure:"second_best_threshold"`
	CycleInterval       time.Duration `mapstructure:"cycle_interval"`
	ScoreWorkers        int           `mapstructure:"score_workers"`
	MinDeliverDelay     time.Duration `mapstructure:"min_deliver_delay"`
	MaxDeliverDelay     time.Duration `mapstructure:"max_deliver_delay"`
}

type MailerConfig struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
	Workers   int    `mapstructure:"workers"`
	QueueSize int    `mapstructure:"queue_size"`
}

type TelemetryConfig struct {
	SentryDSN    string `mapstructure:"sentry_dsn"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Load 读取 config.yaml（可缺省）并叠加 VYBRIX_ 前缀环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "vybrix.db")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("matching.sentiment_weight", 0.5)
	v.SetDefault("matching.intent_weight", 0.3)
	v.SetDefault("matching.energy_weight", 0.2)
	v.SetDefault("matching.min_acceptable_score", 0.55)
	v.SetDefault("matching.second_best_threshold", 0.75)
	v.SetDefault("matching.cycle_interval", 5*time.Minute)
	v.SetDefault("matching.score_workers", 4)
	v.SetDefault("matching.min_deliver_delay", time.Hour)
	v.SetDefault("matching.max_deliver_delay", 10*time.Hour)
	v.SetDefault("mailer.api_key", "")
	v.SetDefault("mailer.from_email", "onboarding@vybrix.app")
	v.SetDefault("mailer.from_name", "Vybrix")
	v.SetDefault("mailer.workers", 2)
	v.SetDefault("mailer.queue_size", 4096)
	v.SetDefault("telemetry.sentry_dsn", "")
	v.SetDefault("telemetry.otlp_endpoint", "")

	v.SetEnvPrefix("VYBRIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
