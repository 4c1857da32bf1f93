package errors

import (
	"errors"
)

var (
	ErrFailedToReadConfig  = errors.New("failed to read config file")
	ErrFailedToParseConfig = errors.New("failed to parse config file")
	ErrFailedToLoadEnvFile = errors.New("failed to load env file")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrUnknownConfigKey    = errors.New("unknown config section")

	ErrPIDRequired       = errors.New("target pid is required")
	ErrInvalidPID        = errors.New("invalid pid")
	ErrInvalidPort       = errors.New("invalid port")
	ErrInvalidPolicy     = errors.New("invalid sampler policy")
	ErrConfigFileExists  = errors.New("config file already exists")
	ErrFailedToWriteFile = errors.New("failed to write file")

	ErrProcessNotFound  = errors.New("process not found")
	ErrFailedToInspect  = errors.New("failed to inspect process")
	ErrFailedToRegister = errors.New("failed to register metric")
	ErrFailedToRender   = errors.New("failed to render metrics")
	ErrFailedToBind     = errors.New("failed to bind metrics listener")

	ErrFailedToInitReporter = errors.New("failed to initialize error reporting")
)

var (
	As  = errors.As
	Is  = errors.Is
	New = errors.New
)
