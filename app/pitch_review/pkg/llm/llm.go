package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/config"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/logger"
)

// ErrMalformedResponse 模型输出无法解析为期望的结构
var ErrMalformedResponse = errors.New("malformed model response")

// Prompt 一次评估请求
// System 和 User 是 FString 模板，占位符的值来自 Vars
type Prompt struct {
	Name   string
	System string
	User   string
	Vars   map[string]any
}

// Validator 结构化结果可选实现的校验接口
type Validator interface {
	Validate() error
}

// Evaluator 语言模型评估能力：输入提示词，输出类型化结果
type Evaluator interface {
	Evaluate(ctx context.Context, p Prompt, out any) error
}

// ChatEvaluator 基于 eino ChatModel 的评估实现
type ChatEvaluator struct {
	chatModel model.BaseChatModel
	limiter   *rate.Limiter
	timeout   time.Duration
}

// Ensure ChatEvaluator implements Evaluator
var _ Evaluator = (*ChatEvaluator)(nil)

// NewChatEvaluator 根据配置创建 OpenAI 兼容的模型客户端
func NewChatEvaluator(ctx context.Context, cfg config.LLMConfig, cc config.ConcurrencyConfig) (*ChatEvaluator, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return NewChatEvaluatorWithModel(chatModel, NewLimiter(cc), config.Seconds(cfg.Timeout)), nil
}

// NewChatEvaluatorWithModel 使用已有模型创建评估器
func NewChatEvaluatorWithModel(cm model.BaseChatModel, limiter *rate.Limiter, timeout time.Duration) *ChatEvaluator {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &ChatEvaluator{
		chatModel: cm,
		limiter:   limiter,
		timeout:   timeout,
	}
}

// NewLimiter 根据 RPM/QPS 创建限流器
func NewLimiter(cc config.ConcurrencyConfig) *rate.Limiter {
	if cc.RPM <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	limit := rate.Limit(float64(cc.RPM) / 60.0)
	burst := cc.QPS
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}

// Evaluate 渲染模板、调用模型并把 JSON 结果解析到 out
// 不做重试，失败由调用方决定如何处理
func (e *ChatEvaluator) Evaluate(ctx context.Context, p Prompt, out any) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	messages, err := Render(ctx, p)
	if err != nil {
		return err
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	resp, err := e.chatModel.Generate(ctx, messages)
	if err != nil {
		return fmt.Errorf("generate %s: %w", p.Name, err)
	}
	logger.Log.Debugf("模型评估 [%s] 完成，耗时 %s", p.Name, time.Since(start))

	return Decode(resp.Content, out)
}

// Render 把 Prompt 渲染为 eino 消息
func Render(ctx context.Context, p Prompt) ([]*schema.Message, error) {
	var templates []schema.MessagesTemplate
	if p.System != "" {
		templates = append(templates, schema.SystemMessage(p.System))
	}
	templates = append(templates, schema.UserMessage(p.User))

	vars := p.Vars
	if vars == nil {
		vars = map[string]any{}
	}
	messages, err := prompt.FromMessages(schema.FString, templates...).Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("render prompt %s: %w", p.Name, err)
	}
	return messages, nil
}

// Decode 去掉 markdown 代码块标记后解析 JSON
func Decode(content string, out any) error {
	cleanContent := CleanJSON(content)
	if cleanContent == "" {
		return fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(cleanContent), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return nil
}

// CleanJSON 去掉模型常见的 ```json 包裹
func CleanJSON(content string) string {
	cleanContent := strings.TrimSpace(content)
	cleanContent = strings.TrimPrefix(cleanContent, "```json")
	cleanContent = strings.TrimPrefix(cleanContent, "```")
	cleanContent = strings.TrimSuffix(cleanContent, "```")
	return strings.TrimSpace(cleanContent)
}
