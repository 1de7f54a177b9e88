package conf

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Bootstrap struct {
	Server *Server
	Auth   *Auth
	Review *Review
}

type Auth struct {
	JwtKey string `json:"jwt_key" env:"PITCH_JWT_KEY"`
}

// ApplyEnv 用环境变量覆盖敏感配置
func (b *Bootstrap) ApplyEnv() error {
	if b.Auth == nil {
		b.Auth = &Auth{}
	}
	if err := env.Parse(b.Auth); err != nil {
		return fmt.Errorf("parse auth env: %w", err)
	}
	return nil
}

type Server struct {
	Http *HTTP
	Grpc *GRPC
}

type HTTP struct {
	Addr    string
	Timeout string
}

type GRPC struct {
	Addr    string
	Timeout string
}

// Review 审核流水线配置，启动时转换为 pkg/config.Config
type Review struct {
	Llm         *LLM         `json:"llm"`
	Probe       *Probe       `json:"probe"`
	Notify      *Notify      `json:"notify"`
	Log         *Log         `json:"log"`
	Concurrency *Concurrency `json:"concurrency"`
	Db          *DB          `json:"db"`
}

type LLM struct {
	BaseUrl string `json:"base_url"`
	ApiKey  string `json:"api_key"`
	Model   string `json:"model"`
	Timeout int32  `json:"timeout"`
}

type Probe struct {
	Timeout          int32    `json:"timeout"`
	SocialDomains    []string `json:"social_domains"`
	FetchProductPage bool     `json:"fetch_product_page"`
	PageTimeout      int32    `json:"page_timeout"`
}

type Notify struct {
	Provider string   `json:"provider"`
	Timeout  int32    `json:"timeout"`
	Webhook  *Webhook `json:"webhook"`
	Amqp     *AMQP    `json:"amqp"`
}

type Webhook struct {
	Url     string `json:"url"`
	Token   string `json:"token"`
	Timeout int32  `json:"timeout"`
}

type AMQP struct {
	Url        string `json:"url"`
	Exchange   string `json:"exchange"`
	RoutingKey string `json:"routing_key"`
}

type Log struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

type Concurrency struct {
	Qps int32 `json:"qps"`
	Rpm int32 `json:"rpm"`
}

type DB struct {
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int32  `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Path     string `json:"path"`
}
