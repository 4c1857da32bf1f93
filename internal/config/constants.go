package config

import "time"

// app constants
const (
	AppName    = "pidwatch"
	Version    = "0.1.0"
	ConfigFile = "pidwatch.yaml"
	EnvFile    = ".env"
	EnvPrefix  = "PIDWATCH"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// server constants
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 5054
	MetricsPath = "/metrics"

	ReadHeaderTimeout = 10 * time.Second
	ShutdownTimeout   = 5 * time.Second
)

// sampler constants
const (
	SampleInterval = time.Second

	PolicyExit  = "exit"
	PolicyStale = "stale"
)

// metric constants
const (
	CPUMetricName = "GRANDINE_TOTAL_CPU_PERCENTAGE"
	CPUMetricHelp = "Grandine CPU load usage measured in percentage"
)

// reporting constants
const (
	DefaultEnvironment = "production"
	ReportFlushTimeout = 2 * time.Second
)
