package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/logger"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
)

// LogNotifier 只记录日志，用于本地开发
type LogNotifier struct{}

// Ensure LogNotifier implements Notifier
var _ Notifier = LogNotifier{}

func (LogNotifier) Notify(_ context.Context, n *model.Notification) error {
	logger.Log.Infof("通知 [%s] pitch=%s founder=%s status=%s subject=%q", n.ID, n.PitchID, n.FounderID, n.Status, n.Subject)
	return nil
}

// WebhookNotifier 以 JSON POST 推送通知
type WebhookNotifier struct {
	url    string
	token  string
	client *http.Client
}

// Ensure WebhookNotifier implements Notifier
var _ Notifier = (*WebhookNotifier)(nil)

func NewWebhookNotifier(url, token string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, n *model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	res, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("webhook error (status %d): %s", res.StatusCode, string(body))
	}
	return nil
}

// Publisher AMQP 发布能力
type Publisher interface {
	PublishJSON(ctx context.Context, exchange, routingKey, messageID string, v any) error
}

// AMQPNotifier 把通知发布到消息队列，由下游负责投递
type AMQPNotifier struct {
	pub        Publisher
	exchange   string
	routingKey string
}

// Ensure AMQPNotifier implements Notifier
var _ Notifier = (*AMQPNotifier)(nil)

func NewAMQPNotifier(pub Publisher, exchange, routingKey string) *AMQPNotifier {
	if routingKey == "" {
		routingKey = "pitch_notifications"
	}
	return &AMQPNotifier{pub: pub, exchange: exchange, routingKey: routingKey}
}

func (a *AMQPNotifier) Notify(ctx context.Context, n *model.Notification) error {
	if err := a.pub.PublishJSON(ctx, a.exchange, a.routingKey, n.ID, n); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
