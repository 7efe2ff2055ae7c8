package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env          string             `mapstructure:"app_env"`
	Port         string             `mapstructure:"port"`
	DB           DatabaseConfig     `mapstructure:"db"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Approver     ApproverConfig     `mapstructure:"approver"`
	Notification NotificationConfig `mapstructure:"notification"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Query        QueryConfig        `mapstructure:"query"`
	Outbox       OutboxConfig       `mapstructure:"outbox"`
}

type DatabaseConfig struct {
	Host       string `mapstructure:"host"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	Port       string `mapstructure:"port"`
	SSLMode    string `mapstructure:"sslmode"`
	MaxRetries int    `mapstructure:"max_retries"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type KafkaConfig struct {
	Broker            string `mapstructure:"broker"`
	ApplicationTopic  string `mapstructure:"application_topic"`
	NotificationTopic string `mapstructure:"notification_topic"`
	ConsumerGroup     string `mapstructure:"consumer_group"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// ApproverConfig holds the fallback role holders used when no leave policy
// supplies an approval chain. Empty values mean the role is unassigned.
type ApproverConfig struct {
	ManagerID string `mapstructure:"manager_id"`
	HRID      string `mapstructure:"hr_id"`
	FinanceID string `mapstructure:"finance_id"`
	AdminID   string `mapstructure:"admin_id"`
}

type NotificationConfig struct {
	Channel   string        `mapstructure:"channel"`
	QueueSize int           `mapstructure:"queue_size"`
	Workers   int           `mapstructure:"workers"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type QueryConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// Load reads .env (if present) and then the process environment. Keys map to
// env names by upper-casing and replacing dots, so db.host is DB_HOST.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("port", "3000")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "hrm")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_retries", 5)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("kafka.broker", "")
	v.SetDefault("kafka.application_topic", "hr.application.lifecycle.v1")
	v.SetDefault("kafka.notification_topic", "hr.notification.email.v1")
	v.SetDefault("kafka.consumer_group", "hrm-notification-mailer")

	v.SetDefault("jwt.secret", "")

	v.SetDefault("approver.manager_id", "")
	v.SetDefault("approver.hr_id", "")
	v.SetDefault("approver.finance_id", "")
	v.SetDefault("approver.admin_id", "")

	v.SetDefault("notification.channel", "log")
	v.SetDefault("notification.queue_size", 256)
	v.SetDefault("notification.workers", 4)
	v.SetDefault("notification.timeout", 5*time.Second)

	v.SetDefault("rate_limit.rps", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("query.default_page_size", 20)
	v.SetDefault("query.max_page_size", 100)

	v.SetDefault("outbox.poll_interval", 3*time.Second)
	v.SetDefault("outbox.batch_size", 50)
}
