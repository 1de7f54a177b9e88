package server

import (
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/conf"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/config"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/engine"
	prLogger "github.com/iWorld-y/pitch_review/app/pitch_review/pkg/logger"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/notify"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/storage"
)

// NewReviewEngine 初始化审核引擎及其存储、通知依赖
func NewReviewEngine(c *conf.Review, logger log.Logger) (*engine.Engine, func(), error) {
	helper := log.NewHelper(logger)

	cfg, err := ToConfig(c)
	if err != nil {
		return nil, nil, err
	}

	// 初始化日志
	if err := prLogger.InitLogger(cfg.Log); err != nil {
		helper.Errorf("Failed to init pipeline logger: %v", err)
		_ = prLogger.InitLogger(config.LogConfig{Level: "info"}) // 降级处理
	}

	// 初始化存储层
	store, err := storage.NewStorage(cfg.DB)
	if err != nil {
		helper.Errorf("Failed to init storage for engine: %v", err)
		return nil, nil, err
	}

	notifier, closeNotifier, err := notify.NewNotifier(cfg)
	if err != nil {
		helper.Errorf("Failed to init notifier: %v", err)
		_ = store.Close()
		return nil, nil, err
	}

	// 初始化核心引擎
	eng, err := engine.NewEngine(cfg, store, notifier)
	if err != nil {
		helper.Errorf("Failed to init engine: %v", err)
		closeNotifier()
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		helper.Info("Cleaning up review engine")
		eng.Wait()
		closeNotifier()
		_ = store.Close()
	}

	return eng, cleanup, nil
}

// ToConfig 将 internal/conf.Review 转换为 pkg/config.Config，环境变量覆盖敏感字段
func ToConfig(c *conf.Review) (*config.Config, error) {
	cfg := &config.Config{}
	if c == nil {
		c = &conf.Review{}
	}

	if c.Llm != nil {
		cfg.LLM = config.LLMConfig{
			BaseURL: c.Llm.BaseUrl,
			APIKey:  c.Llm.ApiKey,
			Model:   c.Llm.Model,
			Timeout: int(c.Llm.Timeout),
		}
	}
	if c.Probe != nil {
		cfg.Review.ProbeTimeout = int(c.Probe.Timeout)
		cfg.Review.SocialDomains = c.Probe.SocialDomains
		cfg.Review.FetchProductPage = c.Probe.FetchProductPage
		cfg.Review.PageTimeout = int(c.Probe.PageTimeout)
	}
	if c.Notify != nil {
		cfg.Notify.Provider = c.Notify.Provider
		cfg.Review.NotifyTimeout = int(c.Notify.Timeout)
		if c.Notify.Webhook != nil {
			cfg.Notify.Webhook = config.WebhookConfig{
				URL:     c.Notify.Webhook.Url,
				Token:   c.Notify.Webhook.Token,
				Timeout: int(c.Notify.Webhook.Timeout),
			}
		}
		if c.Notify.Amqp != nil {
			cfg.Queue.URL = c.Notify.Amqp.Url
			cfg.Notify.AMQP = config.AMQPConfig{
				Exchange:   c.Notify.Amqp.Exchange,
				RoutingKey: c.Notify.Amqp.RoutingKey,
			}
		}
	}
	if c.Log != nil {
		cfg.Log = config.LogConfig{
			Level: c.Log.Level,
			File:  c.Log.File,
		}
	}
	if c.Concurrency != nil {
		cfg.Concurrency = config.ConcurrencyConfig{
			QPS: int(c.Concurrency.Qps),
			RPM: int(c.Concurrency.Rpm),
		}
	}
	if c.Db != nil {
		cfg.DB = config.DBConfig{
			Driver:   c.Db.Driver,
			Host:     c.Db.Host,
			Port:     int(c.Db.Port),
			User:     c.Db.User,
			Password: c.Db.Password,
			Name:     c.Db.Name,
			Path:     c.Db.Path,
		}
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}
