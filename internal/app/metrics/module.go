package metrics

import "go.uber.org/fx"

// Module provides the registry and the CPU gauge registered into it
var Module = fx.Options(
	fx.Provide(
		NewRegistry,
		NewCPUGauge,
	),
)
