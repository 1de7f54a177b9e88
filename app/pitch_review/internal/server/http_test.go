package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/biz"
	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/conf"
	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/service"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/config"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/engine"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
)

// stubEngine 根据 pitch id 返回预设结果
type stubEngine struct {
	caller string
}

func (s *stubEngine) result(id string) (*model.EvaluationResult, error) {
	switch strings.TrimSpace(id) {
	case "":
		return nil, fmt.Errorf("%w: pitch id is required", engine.ErrInvalidArgument)
	case "missing":
		return nil, fmt.Errorf("%w: missing", engine.ErrPitchNotFound)
	case "broken":
		return nil, fmt.Errorf("%w: upstream said 401 for key sk-secret", engine.ErrEvaluationFailed)
	case "rejected":
		return &model.EvaluationResult{
			Score:           25,
			Flags:           []string{model.FlagProductNotLive},
			Status:          model.StatusRejected,
			RejectionReason: "live first",
		}, nil
	}
	return &model.EvaluationResult{
		Score:       82,
		Status:      model.StatusApproved,
		IsPublished: true,
		Analysis: &model.DeepAnalysis{
			OverallScore: 82,
			Strengths:    []string{"Clear customer"},
			Message:      "Great pitch",
		},
	}, nil
}

func (s *stubEngine) FastGate(_ context.Context, id string) (*model.EvaluationResult, error) {
	return s.result(id)
}

func (s *stubEngine) DeepAnalysis(ctx context.Context, id string) (*model.EvaluationResult, error) {
	s.caller, _ = biz.CallerFromContext(ctx)
	return s.result(id)
}

func newTestServer(t *testing.T) (http.Handler, *stubEngine, *biz.AuthUseCase) {
	t.Helper()
	return newTestServerWithAuth(t, &conf.Auth{JwtKey: "test-key"})
}

func newTestServerWithAuth(t *testing.T, c *conf.Auth) (http.Handler, *stubEngine, *biz.AuthUseCase) {
	t.Helper()
	eng := &stubEngine{}
	auth, err := biz.NewAuthUseCase(c)
	require.NoError(t, err)
	svc := service.NewReviewService(biz.NewReviewUseCase(eng, log.DefaultLogger), log.DefaultLogger)
	srv := NewHTTPServer(&conf.Server{Http: &conf.HTTP{Addr: "127.0.0.1:0"}}, svc, auth, log.DefaultLogger)
	return srv, eng, auth
}

func do(t *testing.T, h http.Handler, path, body, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestFastGateEndpoint(t *testing.T) {
	h, _, _ := newTestServer(t)

	code, out := do(t, h, "/v1/pitches/fast-gate", `{"pitchId":"p-1"}`, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "approved", out["review_status"])
	assert.Equal(t, float64(82), out["quality_score"])
	assert.Equal(t, []any{}, out["flags"])
	assert.Equal(t, true, out["is_published"])
	assert.Contains(t, out, "rejection_reason")
	assert.Nil(t, out["rejection_reason"])

	code, out = do(t, h, "/v1/pitches/fast-gate", `{"pitchId":"rejected"}`, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "rejected", out["review_status"])
	assert.Equal(t, "live first", out["rejection_reason"])
	assert.Equal(t, []any{model.FlagProductNotLive}, out["flags"])
}

func TestFastGateEndpoint_Errors(t *testing.T) {
	h, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing id", `{}`, http.StatusBadRequest},
		{"blank id", `{"pitchId":"  "}`, http.StatusBadRequest},
		{"bad json", `{"pitchId":`, http.StatusBadRequest},
		{"unknown pitch", `{"pitchId":"missing"}`, http.StatusNotFound},
		{"failure", `{"pitchId":"broken"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := do(t, h, "/v1/pitches/fast-gate", tt.body, "")
			assert.Equal(t, tt.code, code)
			assert.Equal(t, false, out["success"])
			assert.NotEmpty(t, out["error"])
			assert.NotContains(t, out["error"], "sk-secret")
		})
	}
}

func TestDeepAnalysisEndpoint_Auth(t *testing.T) {
	h, eng, auth := newTestServer(t)

	code, out := do(t, h, "/v1/pitches/deep-analysis", `{"pitchId":"p-1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", out["error"])

	code, _ = do(t, h, "/v1/pitches/deep-analysis", `{"pitchId":"p-1"}`, "garbage")
	assert.Equal(t, http.StatusUnauthorized, code)

	// 缺少 id 时先校验身份
	code, _ = do(t, h, "/v1/pitches/deep-analysis", `{}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	token, err := auth.IssueToken("ops", time.Hour)
	require.NoError(t, err)

	code, out = do(t, h, "/v1/pitches/deep-analysis", `{"pitchId":"p-1"}`, token)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ops", eng.caller)
	assert.Equal(t, true, out["success"])

	analysis, ok := out["analysis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(82), analysis["overall_score"])
	assert.Equal(t, "approved", analysis["review_status"])
	assert.Equal(t, true, analysis["is_published"])
	assert.Equal(t, []any{"Clear customer"}, analysis["strengths"])
	assert.Equal(t, []any{}, analysis["red_flags"])
	assert.Equal(t, []any{}, analysis["demo_feedback"])
	assert.Nil(t, analysis["demo_effectiveness_score"])
	assert.Equal(t, "Great pitch", analysis["message"])

	code, _ = do(t, h, "/v1/pitches/deep-analysis", `{}`, token)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, "/v1/pitches/deep-analysis", `{"pitchId":"missing"}`, token)
	assert.Equal(t, http.StatusNotFound, code)

	code, out = do(t, h, "/v1/pitches/deep-analysis", `{"pitchId":"broken"}`, token)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "analysis failed", out["error"])
}

func TestDeepAnalysisEndpoint_JwtKeyFromEnv(t *testing.T) {
	t.Setenv("PITCH_JWT_KEY", "rotated-secret")

	bc := &conf.Bootstrap{Auth: &conf.Auth{JwtKey: "change-me"}}
	require.NoError(t, bc.ApplyEnv())
	assert.Equal(t, "rotated-secret", bc.Auth.JwtKey)
	h, _, _ := newTestServerWithAuth(t, bc.Auth)

	// pitchctl token 的签发路径
	cfg := &config.Config{Auth: config.AuthConfig{JWTKey: "change-me"}}
	require.NoError(t, config.ApplyEnv(cfg))
	issuer, err := biz.NewAuthUseCase(&conf.Auth{JwtKey: cfg.Auth.JWTKey})
	require.NoError(t, err)
	token, err := issuer.IssueToken("ops", time.Hour)
	require.NoError(t, err)

	code, out := do(t, h, "/v1/pitches/deep-analysis", `{"pitchId":"p-1"}`, token)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["success"])

	stale, err := biz.NewAuthUseCase(&conf.Auth{JwtKey: "change-me"})
	require.NoError(t, err)
	staleToken, err := stale.IssueToken("ops", time.Hour)
	require.NoError(t, err)
	code, _ = do(t, h, "/v1/pitches/deep-analysis", `{"pitchId":"p-1"}`, staleToken)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestBootstrapApplyEnv_EmptyKey(t *testing.T) {
	t.Setenv("PITCH_JWT_KEY", "")
	bc := &conf.Bootstrap{}
	require.NoError(t, bc.ApplyEnv())
	_, err := biz.NewAuthUseCase(bc.Auth)
	assert.ErrorIs(t, err, biz.ErrMissingJwtKey)
}

func TestToConfig(t *testing.T) {
	cfg, err := ToConfig(&conf.Review{
		Llm:    &conf.LLM{BaseUrl: "https://llm.internal/v1", Model: "m", Timeout: 12},
		Probe:  &conf.Probe{Timeout: 3, FetchProductPage: true},
		Notify: &conf.Notify{Provider: "amqp", Amqp: &conf.AMQP{Url: "amqp://mq", RoutingKey: "notes"}},
		Db:     &conf.DB{Driver: "sqlite", Path: "/tmp/p.db"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://llm.internal/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 12, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.Review.ProbeTimeout)
	assert.True(t, cfg.Review.FetchProductPage)
	assert.Equal(t, "amqp", cfg.Notify.Provider)
	assert.Equal(t, "amqp://mq", cfg.Queue.URL)
	assert.Equal(t, "notes", cfg.Notify.AMQP.RoutingKey)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.NotEmpty(t, cfg.Review.SocialDomains)

	cfg, err = ToConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "log", cfg.Notify.Provider)
	assert.Equal(t, "postgres", cfg.DB.Driver)
}
