package app

import (
	"go.uber.org/fx"

	"pidwatch/internal/app/metrics"
	"pidwatch/internal/app/monitor"
	"pidwatch/internal/app/reporting"
	"pidwatch/internal/app/sampler"
	"pidwatch/internal/app/server"
	"pidwatch/internal/config/logger"
)

var Module = fx.Options(
	logger.Module,
	monitor.Module,
	metrics.Module,
	sampler.Module,
	server.Module,
	reporting.Module,
	fx.Provide(NewApp),
	fx.Invoke(Register),
)
