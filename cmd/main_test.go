package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxevent"

	"pidwatch/internal/app/cli"
	"pidwatch/internal/config"
	"pidwatch/internal/config/logger"
)

func Test_runApp_OneShotCommands(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{name: "version", args: []string{"version"}, expected: "pidwatch v" + config.Version},
		{name: "version flag", args: []string{"-v"}, expected: "pidwatch v" + config.Version},
		{name: "help", args: []string{"--help"}, expected: "--pid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer

			code := runApp(tt.args, &stdout, &stderr)

			assert.Equal(t, 0, code)
			assert.Contains(t, stdout.String(), tt.expected)
			assert.Empty(t, stderr.String())
		})
	}
}

func Test_runApp_Failures(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{name: "missing pid", args: []string{}, expected: "target pid is required"},
		{name: "negative pid", args: []string{"--pid", "-5"}, expected: "invalid pid"},
		{name: "invalid port", args: []string{"--pid", "1", "--port", "70000"}, expected: "invalid port"},
		{name: "invalid policy", args: []string{"--pid", "1", "--policy", "retry"}, expected: "invalid sampler policy"},
		{name: "unknown flag", args: []string{"--interval", "5s"}, expected: "--help"},
		{name: "missing config file", args: []string{"--pid", "1", "--config", "absent.yaml"}, expected: "failed to read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())

			var stdout, stderr bytes.Buffer

			code := runApp(tt.args, &stdout, &stderr)

			assert.Equal(t, 1, code)
			assert.Contains(t, stderr.String(), tt.expected)
		})
	}
}

func Test_runApp_Init(t *testing.T) {
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer

	code := runApp([]string{"init", "--pid", "321"}, &stdout, &stderr)
	require.Equal(t, 0, code)

	content, err := os.ReadFile(config.ConfigFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "pid: 321")

	code = runApp([]string{"init"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "already exists")
}

func Test_loadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PIDWATCH_SERVER_PORT", "9100")

	opts, err := cli.Parse([]string{"--pid", "42", "--host", "127.0.0.1"})
	require.NoError(t, err)

	cfg, err := loadConfig(opts)
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Target.PID)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func Test_CreateApp(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Target.PID = os.Getpid()

	app := createApp(cfg)
	assert.NotNil(t, app)
	assert.NoError(t, app.Err())
}

func Test_CreateFxLogger(t *testing.T) {
	tests := []struct {
		name           string
		level          string
		expectedType   interface{}
		expectedLogger interface{}
	}{
		{name: "Debug level returns console logger", level: logger.DebugLevel, expectedType: &fxevent.ConsoleLogger{}},
		{name: "Info level returns nop logger", level: logger.InfoLevel, expectedLogger: fxevent.NopLogger},
		{name: "Warn level returns nop logger", level: logger.WarnLevel, expectedLogger: fxevent.NopLogger},
		{name: "Error level returns nop logger", level: logger.ErrorLevel, expectedLogger: fxevent.NopLogger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Logging.Level = tt.level

			loggerFunc := createFxLogger(cfg)
			assert.NotNil(t, loggerFunc)

			result := loggerFunc()
			assert.NotNil(t, result)

			if tt.expectedType != nil {
				assert.IsType(t, tt.expectedType, result)
			}

			if tt.expectedLogger != nil {
				assert.Equal(t, tt.expectedLogger, result)
			}
		})
	}
}
