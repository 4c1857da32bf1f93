package generator

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"text/template"

	"pidwatch/internal/app/errors"
	"pidwatch/internal/config"
	"pidwatch/internal/config/logger"
)

const (
	templatePath = "templates/pidwatch.yaml.tmpl"
	fileName     = config.ConfigFile
)

//go:embed templates/pidwatch.yaml.tmpl
var templateFS embed.FS

// Options contains the values written into pidwatch.yaml
type Options struct {
	PID         int
	Host        string
	Port        int
	Policy      string
	LogLevel    string
	LogFormat   string
	Environment string
}

// DefaultOptions returns sensible defaults for generation
func DefaultOptions() Options {
	return Options{
		PID:         0,
		Host:        config.DefaultHost,
		Port:        config.DefaultPort,
		Policy:      config.PolicyExit,
		LogLevel:    config.DefaultLogLevel,
		LogFormat:   config.DefaultLogFormat,
		Environment: config.DefaultEnvironment,
	}
}

// OptionsFrom fills the template values from an existing configuration
func OptionsFrom(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.PID = cfg.Target.PID
	opts.Host = cfg.Server.Host
	opts.Port = cfg.Server.Port
	opts.Policy = cfg.Sampler.Policy

	if cfg.Logging.Level != "" {
		opts.LogLevel = cfg.Logging.Level
	}

	if cfg.Logging.Format != "" {
		opts.LogFormat = cfg.Logging.Format
	}

	if cfg.Reporting.Environment != "" {
		opts.Environment = cfg.Reporting.Environment
	}

	return opts
}

// Generator defines the interface for generating pidwatch.yaml
type Generator interface {
	Generate(opts Options, force bool, dryRun bool) error
}

type generator struct {
	out io.Writer
	log logger.Logger
}

// NewGenerator creates a new generator instance
func NewGenerator(log logger.Logger) Generator {
	return &generator{
		out: os.Stdout,
		log: log,
	}
}

// Generate creates a pidwatch.yaml file from the template, or prints it on dryRun
func (g *generator) Generate(opts Options, force bool, dryRun bool) error {
	if !dryRun && !force {
		if _, err := os.Stat(fileName); err == nil {
			return fmt.Errorf("%w: %s, use --force to overwrite", errors.ErrConfigFileExists, fileName)
		}
	}

	tmplContent, err := templateFS.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	tmpl, err := template.New(fileName).Parse(string(tmplContent))
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, opts); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	if dryRun {
		_, err := g.out.Write(buf.Bytes())
		return err
	}

	if err := os.WriteFile(fileName, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("%w %s: %w", errors.ErrFailedToWriteFile, fileName, err)
	}

	g.log.Info().Msgf("Generated %s", fileName)

	return nil
}
