//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
)

var CoreInfraSet = wire.NewSet(
	NewMetricsRegistry,
	NewMetrics,
	NewHealthTracker,
)

var DispatchSet = wire.NewSet(
	NewToolRegistry,
	NewGateway,
)

var AppSet = wire.NewSet(
	CoreInfraSet,
	DispatchSet,
)
