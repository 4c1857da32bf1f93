package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"pidwatch/internal/app"
	"pidwatch/internal/app/cli"
	"pidwatch/internal/app/generator"
	"pidwatch/internal/config"
	"pidwatch/internal/config/logger"
)

// main is the entry point for the application
func main() {
	os.Exit(runApp(os.Args[1:], os.Stdout, os.Stderr))
}

// runApp handles the one-shot commands itself and hands the run command to fx
func runApp(args []string, stdout, stderr io.Writer) int {
	opts, err := cli.Parse(args)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\nRun '%s --help' for usage.\n", err, config.AppName)
		return 1
	}

	switch opts.Type {
	case cli.CommandHelp:
		cli.PrintHelp(stdout)
		return 0
	case cli.CommandVersion:
		cli.PrintVersion(stdout)
		return 0
	case cli.CommandInit:
		return runInit(opts, stderr)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	createApp(cfg).Run()

	return 0
}

// runInit writes the config template, seeded with any flags given alongside init
func runInit(opts *cli.Options, stderr io.Writer) int {
	cfg := config.DefaultConfig()
	cfg.ApplyOverrides(opts.Overrides)

	gen := generator.NewGenerator(logger.NewLoggerWithOutput(cfg, stderr))
	if err := gen.Generate(generator.OptionsFrom(cfg), opts.Force, opts.DryRun); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

// loadConfig reads the config file and environment, then applies the command line flags
func loadConfig(opts *cli.Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	cfg.ApplyOverrides(opts.Overrides)

	return cfg, nil
}

// createApp creates the FX application with the given config
func createApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.WithLogger(createFxLogger(cfg)),
		fx.Supply(cfg),
		app.Module,
	)
}

// createFxLogger returns an FX logger based on the config
func createFxLogger(cfg *config.Config) func() fxevent.Logger {
	return func() fxevent.Logger {
		if cfg.Logging.Level == logger.DebugLevel {
			return &fxevent.ConsoleLogger{W: os.Stdout}
		}

		return fxevent.NopLogger
	}
}
