package deep

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/decision"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/llm"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/logger"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/probe"
)

// EvaluatorName 写入审核备注的评估器名称
const EvaluatorName = "deep_analysis"

// ErrEvaluation 深度分析调用失败
var ErrEvaluation = errors.New("deep analysis failed")

const systemPrompt = `Role: senior startup launch reviewer and pitch coach.
You score startup submissions for a curated launch platform and write constructive, specific feedback for the founder.
Respond with a single JSON object and nothing else. All scores are integers from 0 to 100.`

const userPrompt = `Analyze this startup pitch.

Startup name: {name}
One-liner: {one_liner}
Category: {category}
Product stage: {stage}
Product URL: {url}
Product is live: {live}

Problem statement:
{problem}

Demo: {demo}

Product page excerpt:
{page}

Return JSON in exactly this shape:
{schema}

{demo_instruction}`

const schemaWithDemo = `{
  "overall_score": 0,
  "clarity_score": 0,
  "completeness_score": 0,
  "market_fit_score": 0,
  "demo_effectiveness_score": 0,
  "demo_feedback": ["..."],
  "pitch_description_improvements": ["rewritten one-liner or description suggestion"],
  "strengths": ["..."],
  "improvements": ["..."],
  "suggested_category": "...",
  "red_flags": ["..."],
  "recommendation": "approve | needs_revision | reject",
  "message": "personalized note to the founder"
}`

const schemaWithoutDemo = `{
  "overall_score": 0,
  "clarity_score": 0,
  "completeness_score": 0,
  "market_fit_score": 0,
  "demo_effectiveness_score": null,
  "demo_feedback": [],
  "pitch_description_improvements": ["rewritten one-liner or description suggestion"],
  "strengths": ["..."],
  "improvements": ["..."],
  "suggested_category": "...",
  "red_flags": ["..."],
  "recommendation": "approve | needs_revision | reject",
  "message": "personalized note to the founder"
}`

// Evaluator 深度分析评估器
type Evaluator struct {
	lm      llm.Evaluator
	fetcher probe.PageFetcher
}

// New 创建深度分析评估器，fetcher 为 nil 时不抓取产品页面
func New(lm llm.Evaluator, fetcher probe.PageFetcher) *Evaluator {
	return &Evaluator{lm: lm, fetcher: fetcher}
}

// Evaluate 调用模型做深度分析，模型失败时直接返回错误
func (e *Evaluator) Evaluate(ctx context.Context, pitch *model.Pitch, demo *model.Demo) (*model.EvaluationResult, error) {
	var res model.DeepAnalysis
	if err := e.lm.Evaluate(ctx, e.Prompt(ctx, pitch, demo), &res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEvaluation, err)
	}

	analysis := normalize(res, demo != nil)
	v := decision.Deep(analysis.OverallScore, analysis.RedFlags)

	return &model.EvaluationResult{
		Score:           v.Score,
		Flags:           analysis.RedFlags,
		Status:          v.Status,
		IsPublished:     v.IsPublished,
		RejectionReason: v.RejectionReason,
		Notes:           notes(analysis),
		Analysis:        &analysis,
	}, nil
}

// Prompt 构造深度分析请求
func (e *Evaluator) Prompt(ctx context.Context, pitch *model.Pitch, demo *model.Demo) llm.Prompt {
	vars := map[string]any{
		"name":             pitch.StartupName,
		"one_liner":        pitch.OneLiner,
		"category":         pitch.CategoryOrDefault(),
		"stage":            orNone(pitch.ProductStage),
		"url":              orNone(pitch.ProductURL),
		"live":             pitch.IsProductLive,
		"problem":          orNone(pitch.ProblemStatement),
		"demo":             describeDemo(demo),
		"page":             e.pageExcerpt(ctx, pitch),
		"schema":           schemaWithoutDemo,
		"demo_instruction": "No demo was provided: set demo_effectiveness_score to null and leave demo_feedback empty.",
	}
	if demo != nil {
		vars["schema"] = schemaWithDemo
		vars["demo_instruction"] = "A demo was provided: score how well it shows the product and give concrete demo feedback."
	}
	return llm.Prompt{
		Name:   "deep_analysis",
		System: systemPrompt,
		User:   userPrompt,
		Vars:   vars,
	}
}

func (e *Evaluator) pageExcerpt(ctx context.Context, pitch *model.Pitch) string {
	if e.fetcher == nil || strings.TrimSpace(pitch.ProductURL) == "" {
		return "(not available)"
	}
	content, err := e.fetcher.Fetch(ctx, pitch.ProductURL)
	if err != nil || strings.TrimSpace(content) == "" {
		logger.Log.Warnf("产品页面抓取失败 [%s]: %v", pitch.ID, err)
		return "(not available)"
	}
	return content
}

func describeDemo(demo *model.Demo) string {
	if demo == nil {
		return "none"
	}
	var sb strings.Builder
	sb.WriteString("provided")
	if demo.Title != "" {
		fmt.Fprintf(&sb, "\n  title: %s", demo.Title)
	}
	if demo.Description != "" {
		fmt.Fprintf(&sb, "\n  description: %s", demo.Description)
	}
	if demo.DurationSeconds > 0 {
		fmt.Fprintf(&sb, "\n  duration: %ds", demo.DurationSeconds)
	}
	if demo.VideoURL != "" {
		fmt.Fprintf(&sb, "\n  video: %s", demo.VideoURL)
	}
	return sb.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// normalize 分数限制在 [0,100]，去掉空条目，没有演示时清空演示相关字段
func normalize(a model.DeepAnalysis, hasDemo bool) model.DeepAnalysis {
	a.OverallScore = decision.Clamp(a.OverallScore)
	a.ClarityScore = decision.Clamp(a.ClarityScore)
	a.CompletenessScore = decision.Clamp(a.CompletenessScore)
	a.MarketFitScore = decision.Clamp(a.MarketFitScore)
	a.Recommendation = strings.ToLower(strings.TrimSpace(a.Recommendation))
	a.DemoFeedback = compact(a.DemoFeedback)
	a.PitchDescriptionImprovements = compact(a.PitchDescriptionImprovements)
	a.Strengths = compact(a.Strengths)
	a.Improvements = compact(a.Improvements)
	a.RedFlags = compact(a.RedFlags)
	a.SuggestedCategory = strings.TrimSpace(a.SuggestedCategory)
	if !hasDemo {
		a.DemoEffectivenessScore = nil
		a.DemoFeedback = []string{}
	} else if a.DemoEffectivenessScore != nil {
		s := decision.Clamp(*a.DemoEffectivenessScore)
		a.DemoEffectivenessScore = &s
	}
	return a
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func notes(a model.DeepAnalysis) *model.ReviewNotes {
	return &model.ReviewNotes{
		Evaluator:                    EvaluatorName,
		Recommendation:               a.Recommendation,
		OverallScore:                 &a.OverallScore,
		ClarityScore:                 &a.ClarityScore,
		CompletenessScore:            &a.CompletenessScore,
		MarketFitScore:               &a.MarketFitScore,
		DemoEffectivenessScore:       a.DemoEffectivenessScore,
		Strengths:                    a.Strengths,
		Improvements:                 a.Improvements,
		RedFlags:                     a.RedFlags,
		DemoFeedback:                 a.DemoFeedback,
		PitchDescriptionImprovements: a.PitchDescriptionImprovements,
		SuggestedCategory:            a.SuggestedCategory,
		Message:                      a.Message,
	}
}
