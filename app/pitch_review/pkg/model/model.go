package model

import (
	"encoding/json"
	"math"
	"time"
)

// ReviewStatus 审核状态
type ReviewStatus string

const (
	StatusPending       ReviewStatus = "pending"
	StatusApproved      ReviewStatus = "approved"
	StatusNeedsRevision ReviewStatus = "needs_revision"
	StatusRejected      ReviewStatus = "rejected"
)

// Valid 判断状态是否为已知取值
func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusNeedsRevision, StatusRejected:
		return true
	}
	return false
}

// DefaultCategory 未填写分类时的默认值
const DefaultCategory = "Other"

// Pitch 创业项目提交记录
type Pitch struct {
	ID               string
	StartupName      string
	OneLiner         string
	Category         string
	ProblemStatement string
	ProductURL       string
	IsProductLive    bool
	ProductStage     string
	FounderID        string

	// 以下字段只由审核流程写入
	QualityScore    int
	Flags           []string
	ReviewStatus    ReviewStatus
	IsPublished     bool
	RejectionReason string
	ReviewNotes     *ReviewNotes
	ReviewedAt      *time.Time
	CreatedAt       time.Time
}

// CategoryOrDefault 返回分类，空值时回退为 "Other"
func (p *Pitch) CategoryOrDefault() string {
	if p.Category == "" {
		return DefaultCategory
	}
	return p.Category
}

// Demo 项目演示视频的元数据，审核流程只读
type Demo struct {
	ID              string
	PitchID         string
	Title           string
	Description     string
	VideoURL        string
	ThumbnailURL    string
	DurationSeconds int
}

// Signal 快速审核中单项得分记录
type Signal struct {
	Name  string `json:"signal"`
	Delta int    `json:"delta"`
}

// ReviewNotes 审核备注，是唯一的审计记录
type ReviewNotes struct {
	Evaluator      string   `json:"evaluator"`
	Recommendation string   `json:"recommendation,omitempty"`
	Signals        []Signal `json:"signals,omitempty"`

	// 深度分析子分数，快速审核不填写；0 分也会保留
	OverallScore                 *int     `json:"overall_score,omitempty"`
	ClarityScore                 *int     `json:"clarity_score,omitempty"`
	CompletenessScore            *int     `json:"completeness_score,omitempty"`
	MarketFitScore               *int     `json:"market_fit_score,omitempty"`
	DemoEffectivenessScore       *int     `json:"demo_effectiveness_score,omitempty"`
	Strengths                    []string `json:"strengths,omitempty"`
	Improvements                 []string `json:"improvements,omitempty"`
	RedFlags                     []string `json:"red_flags,omitempty"`
	DemoFeedback                 []string `json:"demo_feedback,omitempty"`
	PitchDescriptionImprovements []string `json:"pitch_description_improvements,omitempty"`
	SuggestedCategory            string   `json:"suggested_category,omitempty"`
	Message                      string   `json:"message,omitempty"`
}

// DeepAnalysis 深度分析的模型输出
type DeepAnalysis struct {
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
	Recommendation               string   `json:"recommendation"`
	Message                      string   `json:"message"`
}

// UnmarshalJSON 接受带小数的分数，四舍五入为整数
func (a *DeepAnalysis) UnmarshalJSON(data []byte) error {
	type plain DeepAnalysis
	aux := struct {
		*plain
		OverallScore           float64  `json:"overall_score"`
		ClarityScore           float64  `json:"clarity_score"`
		CompletenessScore      float64  `json:"completeness_score"`
		MarketFitScore         float64  `json:"market_fit_score"`
		DemoEffectivenessScore *float64 `json:"demo_effectiveness_score"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.OverallScore = roundScore(aux.OverallScore)
	a.ClarityScore = roundScore(aux.ClarityScore)
	a.CompletenessScore = roundScore(aux.CompletenessScore)
	a.MarketFitScore = roundScore(aux.MarketFitScore)
	a.DemoEffectivenessScore = nil
	if aux.DemoEffectivenessScore != nil {
		s := roundScore(*aux.DemoEffectivenessScore)
		a.DemoEffectivenessScore = &s
	}
	return nil
}

// roundScore 超出 int 范围的值先截断，最终区间由调用方限制
func roundScore(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(math.Round(f))
}

// EvaluationResult 单次审核的临时结果，写回 Pitch 后即丢弃
type EvaluationResult struct {
	Score           int
	Flags           []string
	Status          ReviewStatus
	IsPublished     bool
	RejectionReason string
	Notes           *ReviewNotes
	Analysis        *DeepAnalysis
}

// ReviewUpdate 一次审核需要写回的全部派生字段
type ReviewUpdate struct {
	QualityScore    int
	Flags           []string
	ReviewStatus    ReviewStatus
	IsPublished     bool
	RejectionReason string
	ReviewNotes     *ReviewNotes
	ReviewedAt      time.Time
}

// Notification 发给创始人的审核通知
type Notification struct {
	ID              string       `json:"id"`
	Kind            string       `json:"kind"`
	PitchID         string       `json:"pitch_id"`
	FounderID       string       `json:"founder_id"`
	StartupName     string       `json:"startup_name"`
	Status          ReviewStatus `json:"review_status"`
	IsPublished     bool         `json:"is_published"`
	QualityScore    int          `json:"quality_score"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	Strengths       []string     `json:"strengths,omitempty"`
	Improvements    []string     `json:"improvements,omitempty"`
	Message         string       `json:"message,omitempty"`
	Subject         string       `json:"subject"`
	Body            string       `json:"body"`
	CreatedAt       time.Time    `json:"created_at"`
}
