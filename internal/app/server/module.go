package server

import "go.uber.org/fx"

// Module provides the metrics HTTP server
var Module = fx.Options(
	fx.Provide(NewServer),
)
