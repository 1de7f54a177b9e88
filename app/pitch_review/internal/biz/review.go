package biz

import (
	"context"
	stderrors "errors"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/engine"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
)

// ReviewEngine 审核引擎接口
type ReviewEngine interface {
	// FastGate 快速审核
	FastGate(ctx context.Context, pitchID string) (*model.EvaluationResult, error)
	// DeepAnalysis 深度分析
	DeepAnalysis(ctx context.Context, pitchID string) (*model.EvaluationResult, error)
}

// ReviewUseCase 审核业务逻辑
type ReviewUseCase struct {
	eng ReviewEngine
	log *log.Helper
}

// NewReviewUseCase 创建审核业务逻辑实例
func NewReviewUseCase(eng ReviewEngine, logger log.Logger) *ReviewUseCase {
	return &ReviewUseCase{
		eng: eng,
		log: log.NewHelper(logger),
	}
}

// FastGate 执行快速审核
func (uc *ReviewUseCase) FastGate(ctx context.Context, pitchID string) (*model.EvaluationResult, error) {
	res, err := uc.eng.FastGate(ctx, pitchID)
	if err != nil {
		return nil, uc.convert(ctx, pitchID, err, "review failed")
	}
	return res, nil
}

// DeepAnalysis 执行深度分析
func (uc *ReviewUseCase) DeepAnalysis(ctx context.Context, pitchID string) (*model.EvaluationResult, error) {
	if caller, ok := CallerFromContext(ctx); ok {
		uc.log.WithContext(ctx).Infof("deep analysis requested by %s for %s", caller, pitchID)
	}
	res, err := uc.eng.DeepAnalysis(ctx, pitchID)
	if err != nil {
		return nil, uc.convert(ctx, pitchID, err, "analysis failed")
	}
	return res, nil
}

// convert 把引擎错误转换为对外错误，内部细节只写日志
func (uc *ReviewUseCase) convert(ctx context.Context, pitchID string, err error, msg string) error {
	switch {
	case stderrors.Is(err, engine.ErrInvalidArgument):
		return errors.BadRequest("INVALID_ARGUMENT", "pitchId is required")
	case stderrors.Is(err, engine.ErrPitchNotFound):
		return errors.NotFound("PITCH_NOT_FOUND", "pitch not found")
	default:
		uc.log.WithContext(ctx).Errorf("review %s failed: %v", pitchID, err)
		return errors.InternalServer("REVIEW_FAILED", msg)
	}
}
