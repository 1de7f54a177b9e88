package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/llm"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/logger"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
)

// 浅层复核的建议
const (
	RecommendApprove = "approve"
	RecommendReview  = "review"
	RecommendReject  = "reject"
)

const (
	pointsCleanReview   = 30
	pointsReviewFailure = 15
	penaltyReject       = -20
)

const reviewSystemPrompt = `You are a trust and safety reviewer for a startup launch platform.
You check short startup pitches for fraud framing, offensive content, and vague or unverifiable claims.
Respond with a single JSON object and nothing else.`

const reviewUserPrompt = `Review this startup submission.

Startup name: {name}
One-liner: {one_liner}
Category: {category}
Problem statement:
{problem}

Return JSON in exactly this shape:
{schema}

Set has_red_flags to true only for concrete problems and list each one in concerns as a short snake_case tag.`

const reviewSchema = `{"has_red_flags": false, "concerns": ["concern_tag"], "recommendation": "approve | review | reject"}`

// ReviewResult 浅层复核的结构化输出
type ReviewResult struct {
	HasRedFlags    bool     `json:"has_red_flags"`
	Concerns       []string `json:"concerns"`
	Recommendation string   `json:"recommendation"`
}

// Validate 实现 llm.Validator
func (r *ReviewResult) Validate() error {
	r.Recommendation = strings.ToLower(strings.TrimSpace(r.Recommendation))
	switch r.Recommendation {
	case RecommendApprove, RecommendReview, RecommendReject:
		return nil
	}
	return fmt.Errorf("unknown recommendation %q", r.Recommendation)
}

// Reviewer 浅层模型复核，只提供参考意见
type Reviewer struct {
	lm llm.Evaluator
}

func NewReviewer(lm llm.Evaluator) *Reviewer {
	return &Reviewer{lm: lm}
}

// Prompt 构造复核请求
func (r *Reviewer) Prompt(pitch *model.Pitch) llm.Prompt {
	return llm.Prompt{
		Name:   "shallow_review",
		System: reviewSystemPrompt,
		User:   reviewUserPrompt,
		Vars: map[string]any{
			"name":      pitch.StartupName,
			"one_liner": pitch.OneLiner,
			"category":  pitch.CategoryOrDefault(),
			"problem":   pitch.ProblemStatement,
			"schema":    reviewSchema,
		},
	}
}

// Apply 调用模型并把结果合并到 Assessment，失败时给部分分数
func (r *Reviewer) Apply(ctx context.Context, pitch *model.Pitch, a *Assessment) {
	if r.lm == nil {
		a.add("llm_unavailable", pointsReviewFailure)
		return
	}

	var res ReviewResult
	if err := r.lm.Evaluate(ctx, r.Prompt(pitch), &res); err != nil {
		logger.Log.Warnf("浅层复核失败，给予部分分数 [%s]: %v", pitch.ID, err)
		a.add("llm_unavailable", pointsReviewFailure)
		return
	}

	a.Recommendation = res.Recommendation
	if !res.HasRedFlags {
		a.add("llm_clean", pointsCleanReview)
		return
	}

	for _, c := range res.Concerns {
		a.Flags.Add(strings.TrimSpace(c))
	}
	if res.Recommendation == RecommendReject {
		a.AutoApprove = false
		a.add("llm_reject", penaltyReject)
	}
}
