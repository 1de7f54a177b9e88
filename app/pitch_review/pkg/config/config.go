package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Review      ReviewConfig      `yaml:"review"`
	Notify      NotifyConfig      `yaml:"notify"`
	Queue       QueueConfig       `yaml:"queue"`
	Auth        AuthConfig        `yaml:"auth"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	DB          DBConfig          `yaml:"db"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url" env:"PITCH_LLM_BASE_URL"`
	APIKey  string `yaml:"api_key" env:"PITCH_LLM_API_KEY"`
	Model   string `yaml:"model" env:"PITCH_LLM_MODEL"`
	Timeout int    `yaml:"timeout"` // 秒
}

// ReviewConfig 审核流程配置
type ReviewConfig struct {
	ProbeTimeout     int      `yaml:"probe_timeout"` // 秒
	SocialDomains    []string `yaml:"social_domains"`
	FetchProductPage bool     `yaml:"fetch_product_page"`
	PageTimeout      int      `yaml:"page_timeout"` // 秒
	NotifyTimeout    int      `yaml:"notify_timeout"`
}

// NotifyConfig 通知渠道配置
type NotifyConfig struct {
	Provider string        `yaml:"provider"` // log, webhook, amqp
	Webhook  WebhookConfig `yaml:"webhook"`
	AMQP     AMQPConfig    `yaml:"amqp"`
}

// WebhookConfig Webhook 通知配置
type WebhookConfig struct {
	URL     string `yaml:"url" env:"PITCH_WEBHOOK_URL"`
	Token   string `yaml:"token" env:"PITCH_WEBHOOK_TOKEN"`
	Timeout int    `yaml:"timeout"`
}

// AMQPConfig 通知发布到 RabbitMQ 的配置
type AMQPConfig struct {
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// QueueConfig RabbitMQ 与定时扫描配置
type QueueConfig struct {
	URL        string `yaml:"url" env:"PITCH_AMQP_URL"`
	Submitted  string `yaml:"submitted"`
	SweepCron  string `yaml:"sweep_cron"`
	SweepBatch int    `yaml:"sweep_batch"`
}

// AuthConfig 调用方鉴权配置
type AuthConfig struct {
	JWTKey string `yaml:"jwt_key" env:"PITCH_JWT_KEY"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Driver   string `yaml:"driver"` // postgres 或 sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password" env:"PITCH_DB_PASSWORD"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"` // sqlite 文件路径
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level      string `yaml:"level" env:"PITCH_LOG_LEVEL"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // 天
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// DefaultSocialDomains 社交媒体域名
var DefaultSocialDomains = []string{
	"twitter.com",
	"x.com",
	"facebook.com",
	"instagram.com",
	"linkedin.com",
	"tiktok.com",
	"youtube.com",
}

// LoadConfig 从指定路径加载配置，环境变量覆盖敏感字段
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// ApplyEnv 用环境变量覆盖配置
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Normalize 填充默认值
func (c *Config) Normalize() {
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 30
	}
	if c.Review.ProbeTimeout <= 0 {
		c.Review.ProbeTimeout = 5
	}
	if c.Review.PageTimeout <= 0 {
		c.Review.PageTimeout = 10
	}
	if c.Review.NotifyTimeout <= 0 {
		c.Review.NotifyTimeout = 10
	}
	if len(c.Review.SocialDomains) == 0 {
		c.Review.SocialDomains = DefaultSocialDomains
	}
	if c.Notify.Provider == "" {
		c.Notify.Provider = "log"
	}
	if c.Notify.Webhook.Timeout <= 0 {
		c.Notify.Webhook.Timeout = 10
	}
	if c.Queue.Submitted == "" {
		c.Queue.Submitted = "pitch_submitted"
	}
	if c.Queue.SweepCron == "" {
		c.Queue.SweepCron = "@every 10m"
	}
	if c.Queue.SweepBatch <= 0 {
		c.Queue.SweepBatch = 20
	}
	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 60
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 1
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "postgres"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Seconds 把配置中的秒数转换为 time.Duration
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
