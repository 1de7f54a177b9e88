package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/config"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func testPitch() *model.Pitch {
	return &model.Pitch{ID: "p-1", StartupName: "ClaimPilot", FounderID: "f-1"}
}

func TestCompose_Rejected(t *testing.T) {
	n, err := Compose("fast_gate", testPitch(), &model.EvaluationResult{
		Score:           30,
		Status:          model.StatusRejected,
		RejectionReason: "Your product must be live before it can be published.",
	}, now)
	require.NoError(t, err)

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "p-1", n.PitchID)
	assert.Equal(t, "f-1", n.FounderID)
	assert.Equal(t, "ClaimPilot: Not approved", n.Subject)
	assert.Contains(t, n.Body, `Your pitch "ClaimPilot" has been reviewed.`)
	assert.Contains(t, n.Body, "Status: Not approved")
	assert.Contains(t, n.Body, "Score: 30/100")
	assert.Contains(t, n.Body, "Reason: Your product must be live")
	assert.NotContains(t, n.Body, "What works well")
	assert.Equal(t, now, n.CreatedAt)
}

func TestCompose_DeepFeedback(t *testing.T) {
	n, err := Compose("deep_analysis", testPitch(), &model.EvaluationResult{
		Score:  62,
		Status: model.StatusNeedsRevision,
		Analysis: &model.DeepAnalysis{
			Strengths:    []string{"Clear customer"},
			Improvements: []string{"Add pricing", "Show traction"},
			Message:      "  Nice work so far.  ",
		},
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "ClaimPilot: Needs revision", n.Subject)
	assert.Equal(t, []string{"Clear customer"}, n.Strengths)
	assert.Equal(t, "Nice work so far.", n.Message)
	assert.Contains(t, n.Body, "What works well:\n- Clear customer")
	assert.Contains(t, n.Body, "Suggested improvements:\n- Add pricing\n- Show traction")
	assert.Contains(t, n.Body, "Nice work so far.")
	assert.NotContains(t, n.Body, "Reason:")
}

func TestCompose_UniqueIDs(t *testing.T) {
	res := &model.EvaluationResult{Status: model.StatusApproved, IsPublished: true}
	a, err := Compose("fast_gate", testPitch(), res, now)
	require.NoError(t, err)
	b, err := Compose("fast_gate", testPitch(), res, now)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestWebhookNotifier(t *testing.T) {
	var (
		gotAuth string
		got     model.Notification
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n, err := Compose("fast_gate", testPitch(), &model.EvaluationResult{Status: model.StatusApproved, IsPublished: true}, now)
	require.NoError(t, err)

	w := NewWebhookNotifier(srv.URL, "secret", time.Second)
	require.NoError(t, w.Notify(context.Background(), n))
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, model.StatusApproved, got.Status)
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, "", time.Second).Notify(context.Background(), &model.Notification{ID: "n-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type fakePublisher struct {
	exchange, routingKey, messageID string
	payload                         any
}

func (p *fakePublisher) PublishJSON(_ context.Context, exchange, routingKey, messageID string, v any) error {
	p.exchange, p.routingKey, p.messageID, p.payload = exchange, routingKey, messageID, v
	return nil
}

func TestAMQPNotifier(t *testing.T) {
	pub := &fakePublisher{}
	n := &model.Notification{ID: "n-1", PitchID: "p-1"}

	require.NoError(t, NewAMQPNotifier(pub, "", "").Notify(context.Background(), n))
	assert.Equal(t, "", pub.exchange)
	assert.Equal(t, "pitch_notifications", pub.routingKey)
	assert.Equal(t, "n-1", pub.messageID)
	assert.Same(t, n, pub.payload)
}

func TestNewNotifier(t *testing.T) {
	cfg := &config.Config{}
	n, cleanup, err := NewNotifier(cfg)
	require.NoError(t, err)
	assert.IsType(t, LogNotifier{}, n)
	cleanup()

	cfg.Notify.Provider = "webhook"
	_, _, err = NewNotifier(cfg)
	assert.Error(t, err)

	cfg.Notify.Webhook.URL = "http://localhost:9/hook"
	n, _, err = NewNotifier(cfg)
	require.NoError(t, err)
	assert.IsType(t, &WebhookNotifier{}, n)

	cfg.Notify.Provider = "pigeon"
	_, _, err = NewNotifier(cfg)
	assert.Error(t, err)
}
