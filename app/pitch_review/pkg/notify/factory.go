package notify

import (
	"fmt"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/config"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/queue"
)

// NewNotifier 根据配置创建通知实例
// 返回的 cleanup 负责关闭底层连接
func NewNotifier(cfg *config.Config) (Notifier, func(), error) {
	noop := func() {}

	switch cfg.Notify.Provider {
	case "", "log":
		return LogNotifier{}, noop, nil

	case "webhook":
		if cfg.Notify.Webhook.URL == "" {
			return nil, nil, fmt.Errorf("webhook url is missing")
		}
		return NewWebhookNotifier(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Token, config.Seconds(cfg.Notify.Webhook.Timeout)), noop, nil

	case "amqp":
		mq, err := queue.NewRabbitMQ(cfg.Queue.URL)
		if err != nil {
			return nil, nil, err
		}
		routingKey := cfg.Notify.AMQP.RoutingKey
		if cfg.Notify.AMQP.Exchange == "" {
			// 默认交换机按队列名路由，需要先声明队列
			n := NewAMQPNotifier(mq, "", routingKey)
			if err := mq.DeclareQueue(n.routingKey); err != nil {
				_ = mq.Close()
				return nil, nil, err
			}
			return n, func() { _ = mq.Close() }, nil
		}
		return NewAMQPNotifier(mq, cfg.Notify.AMQP.Exchange, routingKey), func() { _ = mq.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown notify provider: %s", cfg.Notify.Provider)
	}
}
