package server

import (
	"encoding/json"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/biz"
	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/conf"
	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/service"
)

func NewHTTPServer(c *conf.Server, s *service.ReviewService, auth *biz.AuthUseCase, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c != nil && c.Http != nil {
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout != "" {
			if d, err := time.ParseDuration(c.Http.Timeout); err == nil {
				opts = append(opts, http.Timeout(d))
			}
		}
	}

	srv := http.NewServer(opts...)
	RegisterReviewHTTPServer(srv, s, auth, logger)
	return srv
}

// RegisterReviewHTTPServer 注册审核接口
// 快速审核由内部触发，不校验调用方；深度分析需要 Bearer 令牌
func RegisterReviewHTTPServer(srv *http.Server, s *service.ReviewService, auth *biz.AuthUseCase, logger log.Logger) {
	r := srv.Route("/")
	r.POST("/v1/pitches/fast-gate", s.FastGate)
	r.POST("/v1/pitches/deep-analysis", s.DeepAnalysis, bearerAuth(auth, logger))
}

// bearerAuth 校验 Authorization 头，失败返回 401
func bearerAuth(auth *biz.AuthUseCase, logger log.Logger) http.FilterFunc {
	helper := log.NewHelper(logger)
	return func(next nethttp.Handler) nethttp.Handler {
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				unauthorized(w)
				return
			}
			username, err := auth.ParseToken(strings.TrimSpace(token))
			if err != nil {
				helper.Warnf("reject caller from %s: %v", r.RemoteAddr, err)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(biz.NewCallerContext(r.Context(), username)))
		})
	}
}

func unauthorized(w nethttp.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(nethttp.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(service.ErrorReply{Error: "unauthorized"})
}
