package config

import (
	"bytes"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"pidwatch/internal/app/errors"
)

// Config represents the application configuration
type Config struct {
	Target    TargetConfig    `mapstructure:"target" yaml:"target"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Sampler   SamplerConfig   `mapstructure:"sampler" yaml:"sampler"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Reporting ReportingConfig `mapstructure:"reporting" yaml:"reporting"`
}

// TargetConfig identifies the observed process
type TargetConfig struct {
	PID int `mapstructure:"pid" yaml:"pid"`
}

// ServerConfig represents the metrics listener configuration
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// SamplerConfig represents the sampler behaviour once the target is gone
type SamplerConfig struct {
	Policy string `mapstructure:"policy" yaml:"policy"`
}

// LoggingConfig represents the logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ReportingConfig represents the error reporting configuration
type ReportingConfig struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// Overrides holds values set explicitly on the command line, nil means unset
type Overrides struct {
	PID       *int
	Host      *string
	Port      *int
	Policy    *string
	LogLevel  *string
	LogFormat *string
}

var sections = map[string]bool{
	"target":    true,
	"server":    true,
	"sampler":   true,
	"logging":   true,
	"reporting": true,
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Host = DefaultHost
	cfg.Server.Port = DefaultPort

	cfg.Sampler.Policy = PolicyExit

	cfg.Logging.Level = DefaultLogLevel
	cfg.Logging.Format = DefaultLogFormat

	cfg.Reporting.Environment = DefaultEnvironment

	return cfg
}

// Load builds the configuration from defaults, the optional .env and config files, and the environment.
// An empty path means the default config file, which may be absent.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(EnvFile); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	explicit := path != ""
	if !explicit {
		path = ConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := checkSections(data); err != nil {
			return nil, err
		}

		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, errors.ErrFailedToReadConfig
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.ErrFailedToReadConfig
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.ErrFailedToParseConfig
	}

	return cfg, nil
}

// ApplyOverrides copies explicitly set command line values over the loaded configuration
func (c *Config) ApplyOverrides(o Overrides) {
	if o.PID != nil {
		c.Target.PID = *o.PID
	}

	if o.Host != nil {
		c.Server.Host = *o.Host
	}

	if o.Port != nil {
		c.Server.Port = *o.Port
	}

	if o.Policy != nil {
		c.Sampler.Policy = *o.Policy
	}

	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}

	if o.LogFormat != nil {
		c.Logging.Format = *o.LogFormat
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateTarget(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}

	if err := c.validateServer(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}

	if err := c.validateSampler(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}

	return nil
}

// Address returns the host:port the metrics listener binds to
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func (c *Config) validateTarget() error {
	pid := c.Target.PID

	if pid == 0 {
		return errors.ErrPIDRequired
	}

	if pid < 0 || pid > math.MaxInt32 {
		return fmt.Errorf("%w: %d", errors.ErrInvalidPID, pid)
	}

	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > math.MaxUint16 {
		return fmt.Errorf("%w: %d", errors.ErrInvalidPort, c.Server.Port)
	}

	return nil
}

func (c *Config) validateSampler() error {
	switch c.Sampler.Policy {
	case PolicyExit, PolicyStale:
		return nil
	default:
		return fmt.Errorf("%w: '%s' (must be '%s' or '%s')", errors.ErrInvalidPolicy, c.Sampler.Policy, PolicyExit, PolicyStale)
	}
}

// setDefaults registers every key so environment variables are picked up by Unmarshal
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("target.pid", cfg.Target.PID)
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("sampler.policy", cfg.Sampler.Policy)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("reporting.dsn", cfg.Reporting.DSN)
	v.SetDefault("reporting.environment", cfg.Reporting.Environment)
}

// checkSections rejects top-level keys the config does not define
func checkSections(data []byte) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return errors.ErrFailedToParseConfig
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return errors.ErrFailedToParseConfig
	}

	for i := 0; i < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if !sections[key.Value] {
			return fmt.Errorf("%w: '%s' at line %d", errors.ErrUnknownConfigKey, key.Value, key.Line)
		}
	}

	return nil
}

// loadEnvFile loads variables from the env file without overriding the ones already set
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrFailedToLoadEnvFile, err)
	}

	return nil
}
