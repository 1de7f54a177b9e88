package gate

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/decision"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/llm"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/logger"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/probe"
)

// EvaluatorName 写入审核备注的评估器名称
const EvaluatorName = "fast_gate"

// 评分项
const (
	pointsReachableURL   = 20
	penaltySocialURL     = -10
	pointsLive           = 10
	pointsCompleteness   = 20
	pointsProblemDepth   = 10
	pointsCategory       = 10
	penaltyScam          = -30
	penaltyHype          = -10
	penaltyCaps          = -10
	minProblemLength     = 50
	capsRatioThreshold   = 0.3
	minCapsWordLength    = 3
	requiredFieldsNumber = 6
)

// Assessment 快速审核累计的信号
type Assessment struct {
	Score          int
	Flags          *model.FlagSet
	AutoApprove    bool
	Signals        []model.Signal
	Recommendation string
}

func newAssessment() *Assessment {
	return &Assessment{Flags: model.NewFlagSet(), AutoApprove: true}
}

func (a *Assessment) add(signal string, delta int) {
	if delta == 0 {
		return
	}
	a.Score += delta
	a.Signals = append(a.Signals, model.Signal{Name: signal, Delta: delta})
}

func (a *Assessment) block(flag string) {
	a.Flags.Add(flag)
	a.AutoApprove = false
}

// Evaluator 快速审核：确定性规则 + 浅层模型复核
type Evaluator struct {
	prober        probe.Prober
	reviewer      *Reviewer
	socialDomains []string
}

// New 创建快速审核评估器
func New(prober probe.Prober, lm llm.Evaluator, socialDomains []string) *Evaluator {
	return &Evaluator{
		prober:        prober,
		reviewer:      NewReviewer(lm),
		socialDomains: socialDomains,
	}
}

// Evaluate 执行完整快速审核，永不返回外部调用失败
func (e *Evaluator) Evaluate(ctx context.Context, pitch *model.Pitch, _ *model.Demo) (*model.EvaluationResult, error) {
	a := e.Check(ctx, pitch)
	e.reviewer.Apply(ctx, pitch, a)

	flags := a.Flags.Slice()
	v := decision.Gate(a.Score, flags, a.AutoApprove)

	return &model.EvaluationResult{
		Score:           v.Score,
		Flags:           flags,
		Status:          v.Status,
		IsPublished:     v.IsPublished,
		RejectionReason: v.RejectionReason,
		Notes: &model.ReviewNotes{
			Evaluator:      EvaluatorName,
			Recommendation: a.Recommendation,
			Signals:        a.Signals,
		},
	}, nil
}

// Check 运行确定性规则
func (e *Evaluator) Check(ctx context.Context, pitch *model.Pitch) *Assessment {
	a := newAssessment()

	e.checkURL(ctx, pitch, a)

	if pitch.IsProductLive {
		a.add("product_live", pointsLive)
	} else {
		a.block(model.FlagProductNotLive)
	}

	a.add("completeness", completeness(pitch))

	if utf8.RuneCountInString(strings.TrimSpace(pitch.ProblemStatement)) >= minProblemLength {
		a.add("problem_statement_depth", pointsProblemDepth)
	} else {
		a.Flags.Add(model.FlagDescriptionTooShort)
	}

	category := strings.TrimSpace(pitch.CategoryOrDefault())
	if category != "" && !strings.EqualFold(category, model.DefaultCategory) {
		a.add("specific_category", pointsCategory)
	}

	text := strings.Join([]string{pitch.StartupName, pitch.OneLiner, pitch.ProblemStatement}, " ")
	lower := strings.ToLower(text)
	if containsAny(lower, scamKeywords) {
		a.block(model.FlagScamIndicators)
		a.add(model.FlagScamIndicators, penaltyScam)
	}
	if containsAny(lower, hypeKeywords) {
		a.Flags.Add(model.FlagVagueDescription)
		a.add(model.FlagVagueDescription, penaltyHype)
	}
	if containsAny(lower, serviceKeywords) {
		a.block(model.FlagNotAStartupProduct)
	}

	if shouting(text) {
		a.Flags.Add(model.FlagExcessiveCaps)
		a.add(model.FlagExcessiveCaps, penaltyCaps)
	}

	return a
}

func (e *Evaluator) checkURL(ctx context.Context, pitch *model.Pitch, a *Assessment) {
	raw := strings.TrimSpace(pitch.ProductURL)
	if raw == "" {
		a.block(model.FlagNoProductURL)
		return
	}

	u, err := probe.ParseProductURL(raw)
	if err != nil {
		logger.Log.Warnf("产品地址格式错误 [%s]: %v", pitch.ID, err)
		a.block(model.FlagInvalidProductURL)
		return
	}

	if err := e.prober.Probe(ctx, u); err != nil {
		logger.Log.Warnf("产品地址无法访问 [%s] %s: %v", pitch.ID, u.Host, err)
		a.block(model.FlagURLNotAccessible)
		return
	}

	a.add("product_url_reachable", pointsReachableURL)
	if probe.MatchDomain(u.Hostname(), e.socialDomains) {
		a.Flags.Add(model.FlagSocialMediaURL)
		a.add(model.FlagSocialMediaURL, penaltySocialURL)
	}
}

func completeness(pitch *model.Pitch) int {
	fields := []string{
		pitch.StartupName,
		pitch.OneLiner,
		pitch.ProductURL,
		pitch.ProductStage,
		pitch.CategoryOrDefault(),
		pitch.ProblemStatement,
	}
	done := 0
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			done++
		}
	}
	return pointsCompleteness * done / requiredFieldsNumber
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// shouting 超过 30% 的长单词（长度大于 3）全为大写
func shouting(text string) bool {
	var total, caps int
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) <= minCapsWordLength {
			continue
		}
		total++
		if w == strings.ToUpper(w) && w != strings.ToLower(w) {
			caps++
		}
	}
	if total == 0 {
		return false
	}
	return float64(caps)/float64(total) > capsRatioThreshold
}
