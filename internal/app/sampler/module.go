package sampler

import "go.uber.org/fx"

// Module provides the sampler loop
var Module = fx.Options(
	fx.Provide(NewSampler),
)
