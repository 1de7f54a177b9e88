package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
)

// Notifier 把审核结果发送给创始人
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
}

// NotifierFunc 函数适配器
type NotifierFunc func(ctx context.Context, n *model.Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n *model.Notification) error {
	return f(ctx, n)
}

var bodyTpl = template.Must(template.New("notification").Parse(`Hi,

Your pitch "{{.StartupName}}" has been reviewed.

Status: {{.StatusLabel}}
{{- if .QualityScore}}
Score: {{.QualityScore}}/100
{{- end}}
{{- if .RejectionReason}}

Reason: {{.RejectionReason}}
{{- end}}
{{- if .Strengths}}

What works well:
{{- range .Strengths}}
- {{.}}
{{- end}}
{{- end}}
{{- if .Improvements}}

Suggested improvements:
{{- range .Improvements}}
- {{.}}
{{- end}}
{{- end}}
{{- if .Message}}

{{.Message}}
{{- end}}
`))

var statusLabels = map[model.ReviewStatus]string{
	model.StatusApproved:      "Approved and published",
	model.StatusNeedsRevision: "Needs revision",
	model.StatusRejected:      "Not approved",
	model.StatusPending:       "Under review",
}

// Compose 根据审核结果组装通知
func Compose(kind string, pitch *model.Pitch, res *model.EvaluationResult, now time.Time) (*model.Notification, error) {
	n := &model.Notification{
		ID:              uuid.NewString(),
		Kind:            kind,
		PitchID:         pitch.ID,
		FounderID:       pitch.FounderID,
		StartupName:     pitch.StartupName,
		Status:          res.Status,
		IsPublished:     res.IsPublished,
		QualityScore:    res.Score,
		RejectionReason: res.RejectionReason,
		CreatedAt:       now,
	}
	if res.Analysis != nil {
		n.Strengths = res.Analysis.Strengths
		n.Improvements = res.Analysis.Improvements
		n.Message = strings.TrimSpace(res.Analysis.Message)
	}

	label, ok := statusLabels[res.Status]
	if !ok {
		label = string(res.Status)
	}
	n.Subject = fmt.Sprintf("%s: %s", pitch.StartupName, label)

	var buf bytes.Buffer
	data := struct {
		*model.Notification
		StatusLabel string
	}{n, label}
	if err := bodyTpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render notification: %w", err)
	}
	n.Body = buf.String()
	return n, nil
}
