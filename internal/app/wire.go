//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/middleware"
	"tooldeck/internal/infra/tools"
)

func InitializeGateway(
	cfg domain.Config,
	deps tools.Deps,
	state *domain.State,
	recorder *middleware.Recorder,
	version string,
	logger *zap.Logger,
) (*Gateway, error) {
	wire.Build(AppSet)
	return nil, nil
}
