// Package decision maps accumulated review signals to a publication status.
//
// Two rule sets live here: the fast-gate rule (score + flags + auto-approve
// eligibility) and the deep-analysis rule (overall score + red flag count).
// Their thresholds differ and must not be merged.
package decision

import (
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
)

const (
	MinScore = 0
	MaxScore = 100

	// fast gate thresholds
	ApproveScore = 70
	RejectScore  = 40

	// deep analysis thresholds
	DeepApproveScore  = 75
	DeepRevisionScore = 50
	DeepRejectScore   = 40
	DeepMaxRedFlags   = 2
)

// Rejection reasons shown to founders.
const (
	ReasonNotLive       = "Your product must be live before it can be published. Please launch it and resubmit."
	ReasonURL           = "Your product URL is not accessible. Please provide a working link to your product."
	ReasonGuidelines    = "Your submission violates our community guidelines."
	ReasonNotStartup    = "Only startup products can be listed. Service offerings such as agencies or consulting are not eligible."
	ReasonUnclear       = "Your problem description is unclear. Please explain the problem you solve in more detail."
	ReasonQualityNotMet = "Your submission does not meet our quality standards. Please improve your pitch and resubmit."
)

// reasonPriority is checked top to bottom; the first rule with a matching flag wins.
var reasonPriority = []struct {
	flags  []string
	reason string
}{
	{[]string{model.FlagProductNotLive}, ReasonNotLive},
	{[]string{model.FlagInvalidProductURL, model.FlagURLNotAccessible}, ReasonURL},
	{[]string{model.FlagScamIndicators}, ReasonGuidelines},
	{[]string{model.FlagNotAStartupProduct}, ReasonNotStartup},
	{[]string{model.FlagDescriptionTooShort}, ReasonUnclear},
}

// Verdict is the outcome of a rule evaluation.
type Verdict struct {
	Score           int
	Status          model.ReviewStatus
	IsPublished     bool
	RejectionReason string
}

// Clamp bounds a score into [0,100].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Gate applies the fast-gate rule. The rejection branch is taken whenever
// eligibility was cleared, even when the score alone would approve.
func Gate(score int, flags []string, autoApprove bool) Verdict {
	score = Clamp(score)

	switch {
	case score >= ApproveScore && autoApprove && len(flags) == 0:
		return Verdict{Score: score, Status: model.StatusApproved, IsPublished: true}
	case score < RejectScore || !autoApprove:
		return Verdict{Score: score, Status: model.StatusRejected, RejectionReason: RejectionReason(flags)}
	default:
		return Verdict{Score: score, Status: model.StatusNeedsRevision}
	}
}

// RejectionReason picks the founder-facing reason for a rejected pitch.
// Insertion order of flags does not matter.
func RejectionReason(flags []string) string {
	set := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		set[f] = struct{}{}
	}
	for _, rule := range reasonPriority {
		for _, f := range rule.flags {
			if _, ok := set[f]; ok {
				return rule.reason
			}
		}
	}
	return ReasonQualityNotMet
}

// Deep applies the deep-analysis rule. Scores between 40 and 49 with at
// most two red flags keep the pitch pending.
func Deep(overall int, redFlags []string) Verdict {
	score := Clamp(overall)
	n := len(redFlags)

	switch {
	case score >= DeepApproveScore && n == 0:
		return Verdict{Score: score, Status: model.StatusApproved, IsPublished: true}
	case score >= DeepRevisionScore:
		return Verdict{Score: score, Status: model.StatusNeedsRevision}
	case n > DeepMaxRedFlags || score < DeepRejectScore:
		reason := ReasonQualityNotMet
		for _, f := range redFlags {
			if f != "" {
				reason = f
				break
			}
		}
		return Verdict{Score: score, Status: model.StatusRejected, RejectionReason: reason}
	default:
		return Verdict{Score: score, Status: model.StatusPending}
	}
}
