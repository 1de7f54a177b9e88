package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/biz"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
)

// PitchRequest 两个审核接口共用的请求体
type PitchRequest struct {
	PitchID string `json:"pitchId"`
}

// FastGateReply 快速审核响应
type FastGateReply struct {
	Success         bool     `json:"success"`
	ReviewStatus    string   `json:"review_status"`
	QualityScore    int      `json:"quality_score"`
	Flags           []string `json:"flags"`
	IsPublished     bool     `json:"is_published"`
	RejectionReason *string  `json:"rejection_reason"`
}

// Analysis 深度分析结果
type Analysis struct {
	OverallScore                 int      `json:"overall_score"`
	ClarityScore                 int      `json:"clarity_score"`
	CompletenessScore            int      `json:"completeness_score"`
	MarketFitScore               int      `json:"market_fit_score"`
	DemoEffectivenessScore       *int     `json:"demo_effectiveness_score"`
	DemoFeedback                 []string `json:"demo_feedback"`
	PitchDescriptionImprovements []string `json:"pitch_description_improvements"`
	Strengths                    []string `json:"strengths"`
	Improvements                 []string `json:"improvements"`
	SuggestedCategory            string   `json:"suggested_category"`
	RedFlags                     []string `json:"red_flags"`
	Message                      string   `json:"message"`
	ReviewStatus                 string   `json:"review_status"`
	IsPublished                  bool     `json:"is_published"`
}

// DeepAnalysisReply 深度分析响应
type DeepAnalysisReply struct {
	Success  bool      `json:"success"`
	Analysis *Analysis `json:"analysis"`
}

// ErrorReply 失败响应，只包含对外可见的信息
type ErrorReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type ReviewService struct {
	uc  *biz.ReviewUseCase
	log *log.Helper
}

func NewReviewService(uc *biz.ReviewUseCase, logger log.Logger) *ReviewService {
	return &ReviewService{
		uc:  uc,
		log: log.NewHelper(logger),
	}
}

// FastGate POST /v1/pitches/fast-gate
func (s *ReviewService) FastGate(ctx http.Context) error {
	var in PitchRequest
	if err := ctx.Bind(&in); err != nil {
		return s.fail(ctx, errors.BadRequest("INVALID_ARGUMENT", "invalid request body"))
	}
	h := ctx.Middleware(func(c context.Context, req any) (any, error) {
		return s.uc.FastGate(c, req.(*PitchRequest).PitchID)
	})
	out, err := h(ctx, &in)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(200, toFastGateReply(out.(*model.EvaluationResult)))
}

// DeepAnalysis POST /v1/pitches/deep-analysis
func (s *ReviewService) DeepAnalysis(ctx http.Context) error {
	var in PitchRequest
	if err := ctx.Bind(&in); err != nil {
		return s.fail(ctx, errors.BadRequest("INVALID_ARGUMENT", "invalid request body"))
	}
	h := ctx.Middleware(func(c context.Context, req any) (any, error) {
		return s.uc.DeepAnalysis(c, req.(*PitchRequest).PitchID)
	})
	out, err := h(ctx, &in)
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(200, toDeepAnalysisReply(out.(*model.EvaluationResult)))
}

func (s *ReviewService) fail(ctx http.Context, err error) error {
	e := errors.FromError(err)
	msg := e.Message
	if e.Reason == "" {
		// 非业务错误不对外暴露细节
		s.log.WithContext(ctx).Errorf("unexpected error: %v", err)
		msg = "internal error"
	}
	return ctx.JSON(int(e.Code), ErrorReply{Error: msg})
}

func toFastGateReply(res *model.EvaluationResult) *FastGateReply {
	reply := &FastGateReply{
		Success:      true,
		ReviewStatus: string(res.Status),
		QualityScore: res.Score,
		Flags:        orEmpty(res.Flags),
		IsPublished:  res.IsPublished,
	}
	if res.RejectionReason != "" {
		reason := res.RejectionReason
		reply.RejectionReason = &reason
	}
	return reply
}

func toDeepAnalysisReply(res *model.EvaluationResult) *DeepAnalysisReply {
	a := res.Analysis
	if a == nil {
		a = &model.DeepAnalysis{}
	}
	return &DeepAnalysisReply{
		Success: true,
		Analysis: &Analysis{
			OverallScore:                 a.OverallScore,
			ClarityScore:                 a.ClarityScore,
			CompletenessScore:            a.CompletenessScore,
			MarketFitScore:               a.MarketFitScore,
			DemoEffectivenessScore:       a.DemoEffectivenessScore,
			DemoFeedback:                 orEmpty(a.DemoFeedback),
			PitchDescriptionImprovements: orEmpty(a.PitchDescriptionImprovements),
			Strengths:                    orEmpty(a.Strengths),
			Improvements:                 orEmpty(a.Improvements),
			SuggestedCategory:            a.SuggestedCategory,
			RedFlags:                     orEmpty(a.RedFlags),
			Message:                      a.Message,
			ReviewStatus:                 string(res.Status),
			IsPublished:                  res.IsPublished,
		},
	}
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
