package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/biz"
	"github.com/iWorld-y/pitch_review/app/pitch_review/internal/service"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/engine"
)

// ProviderSet 是审核服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,
	NewGRPCServer,
	NewHealthServer,

	// Engine providers
	NewReviewEngine,
	wire.Bind(new(biz.ReviewEngine), new(*engine.Engine)),

	// UseCase providers
	biz.NewReviewUseCase,
	biz.NewAuthUseCase,

	// Service providers
	service.NewReviewService,
)
