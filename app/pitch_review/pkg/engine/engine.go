package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/config"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/deep"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/gate"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/llm"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/logger"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/notify"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/probe"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/storage"
)

// Mode 审核方式
type Mode string

const (
	ModeFastGate     Mode = "fast_gate"
	ModeDeepAnalysis Mode = "deep_analysis"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPitchNotFound    = errors.New("pitch not found")
	ErrEvaluationFailed = errors.New("evaluation failed")
)

// Evaluator 审核策略：输入项目与可选演示，输出本次审核结果
type Evaluator interface {
	Evaluate(ctx context.Context, pitch *model.Pitch, demo *model.Demo) (*model.EvaluationResult, error)
}

// Options 引擎依赖，全部显式注入
type Options struct {
	Store         storage.PitchStore
	FastGate      Evaluator
	Deep          Evaluator
	Notifier      notify.Notifier
	NotifyTimeout time.Duration
	Now           func() time.Time
}

// Engine 审核流程：读取 -> 评估 -> 决策 -> 写回 -> 通知
type Engine struct {
	store         storage.PitchStore
	evaluators    map[Mode]Evaluator
	notifier      notify.Notifier
	notifyTimeout time.Duration
	now           func() time.Time
	wg            sync.WaitGroup
}

// New 使用注入的依赖创建引擎
func New(opts Options) *Engine {
	if opts.Notifier == nil {
		opts.Notifier = notify.LogNotifier{}
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	evaluators := make(map[Mode]Evaluator, 2)
	if opts.FastGate != nil {
		evaluators[ModeFastGate] = opts.FastGate
	}
	if opts.Deep != nil {
		evaluators[ModeDeepAnalysis] = opts.Deep
	}
	return &Engine{
		store:         opts.Store,
		evaluators:    evaluators,
		notifier:      opts.Notifier,
		notifyTimeout: opts.NotifyTimeout,
		now:           opts.Now,
	}
}

// NewEngine 根据配置创建引擎实例
func NewEngine(cfg *config.Config, store storage.PitchStore, notifier notify.Notifier) (*Engine, error) {
	ctx := context.Background()

	lm, err := llm.NewChatEvaluator(ctx, cfg.LLM, cfg.Concurrency)
	if err != nil {
		return nil, err
	}

	prober := probe.NewHTTPProber(config.Seconds(cfg.Review.ProbeTimeout))

	var fetcher probe.PageFetcher
	if cfg.Review.FetchProductPage {
		fetcher = probe.NewReadabilityFetcher(config.Seconds(cfg.Review.PageTimeout), 2000)
	}

	return New(Options{
		Store:         store,
		FastGate:      gate.New(prober, lm, cfg.Review.SocialDomains),
		Deep:          deep.New(lm, fetcher),
		Notifier:      notifier,
		NotifyTimeout: config.Seconds(cfg.Review.NotifyTimeout),
	}), nil
}

// FastGate 快速审核入口
func (e *Engine) FastGate(ctx context.Context, pitchID string) (*model.EvaluationResult, error) {
	return e.Run(ctx, ModeFastGate, pitchID)
}

// DeepAnalysis 深度分析入口
func (e *Engine) DeepAnalysis(ctx context.Context, pitchID string) (*model.EvaluationResult, error) {
	return e.Run(ctx, ModeDeepAnalysis, pitchID)
}

// Run 执行一次审核，评估失败时不写回任何字段
func (e *Engine) Run(ctx context.Context, mode Mode, pitchID string) (*model.EvaluationResult, error) {
	pitchID = strings.TrimSpace(pitchID)
	if pitchID == "" {
		return nil, fmt.Errorf("%w: pitch id is required", ErrInvalidArgument)
	}
	ev, ok := e.evaluators[mode]
	if !ok {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, mode)
	}

	pitch, err := e.store.GetPitch(ctx, pitchID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPitchNotFound, pitchID)
	}
	if err != nil {
		return nil, fmt.Errorf("load pitch: %w", err)
	}

	var demo *model.Demo
	if mode == ModeDeepAnalysis {
		if demo, err = e.store.GetDemo(ctx, pitchID); err != nil {
			return nil, fmt.Errorf("load demo: %w", err)
		}
	}

	logger.Log.Infof("开始审核 [%s] mode=%s", pitchID, mode)
	res, err := ev.Evaluate(ctx, pitch, demo)
	if err != nil {
		logger.Log.Errorf("审核失败 [%s] mode=%s: %v", pitchID, mode, err)
		return nil, fmt.Errorf("%w: %w", ErrEvaluationFailed, err)
	}
	if res.Flags == nil {
		res.Flags = []string{}
	}

	update := &model.ReviewUpdate{
		QualityScore:    res.Score,
		Flags:           res.Flags,
		ReviewStatus:    res.Status,
		IsPublished:     res.IsPublished,
		RejectionReason: res.RejectionReason,
		ReviewNotes:     res.Notes,
		ReviewedAt:      e.now(),
	}
	if err := e.store.SaveReview(ctx, pitchID, update); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}
	logger.Log.Infof("审核完成 [%s] mode=%s status=%s score=%d flags=%v", pitchID, mode, res.Status, res.Score, res.Flags)

	e.dispatch(mode, pitch, res)
	return res, nil
}

// dispatch 在后台发送通知，失败只记录日志
func (e *Engine) dispatch(mode Mode, pitch *model.Pitch, res *model.EvaluationResult) {
	n, err := notify.Compose(string(mode), pitch, res, e.now())
	if err != nil {
		logger.Log.Errorf("组装通知失败 [%s]: %v", pitch.ID, err)
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Errorf("发送通知 panic [%s]: %v", n.PitchID, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
		defer cancel()
		if err := e.notifier.Notify(ctx, n); err != nil {
			logger.Log.Warnf("发送通知失败 [%s]: %v", n.PitchID, err)
		}
	}()
}

// Wait 等待所有后台通知结束
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Sweep 对仍处于 pending 的项目执行快速审核，返回成功数量
func (e *Engine) Sweep(ctx context.Context, batch int) (int, error) {
	ids, err := e.store.ListPending(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}

	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := e.FastGate(ctx, id); err != nil {
			logger.Log.Errorf("定时审核失败 [%s]: %v", id, err)
			continue
		}
		done++
	}
	return done, nil
}
