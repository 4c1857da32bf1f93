package monitor

import "go.uber.org/fx"

// Module provides the process inspector used by the sampler
var Module = fx.Options(
	fx.Provide(NewMonitor),
)
