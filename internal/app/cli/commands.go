package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pidwatch/internal/config"
)

// CommandType represents the type of CLI command
type CommandType int

// Command type values
const (
	CommandRun CommandType = iota
	CommandInit
	CommandVersion
	CommandHelp
)

// Options contains the parsed command-line arguments
type Options struct {
	Type       CommandType
	ConfigPath string
	Overrides  config.Overrides
	Force      bool
	DryRun     bool
}

// rootFlags holds flag values for the root command
type rootFlags struct {
	version   bool
	pid       int
	host      string
	port      int
	policy    string
	logLevel  string
	logFormat string
}

// Parse parses command-line args and returns a Options struct
func Parse(args []string) (*Options, error) {
	result := &Options{
		Type: CommandRun,
	}

	var flags rootFlags

	root := buildRootCommand(result, &flags)
	root.AddCommand(
		buildInitCommand(result),
		buildVersionCommand(result),
	)

	root.SetArgs(args)

	executed, err := root.ExecuteC()
	if err != nil {
		return nil, err
	}

	if flags.version {
		result.Type = CommandVersion
	}

	result.Overrides = collectOverrides(executed.Flags(), &flags)

	return result, nil
}

// buildRootCommand creates the root cobra command
func buildRootCommand(result *Options, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   config.AppName + " --pid <PID>",
		Short: "Expose the CPU usage of a process as a Prometheus gauge",
		Long: `pidwatch samples the CPU usage of a single process once per second and
serves it on /metrics in the Prometheus text exposition format.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			result.Type = CommandRun
		},
	}

	persistent := cmd.PersistentFlags()
	persistent.StringVarP(&result.ConfigPath, "config", "c", "", "Path to config file (default "+config.ConfigFile+")")
	persistent.IntVarP(&flags.pid, "pid", "p", 0, "PID of the process to observe")
	persistent.StringVar(&flags.host, "host", config.DefaultHost, "Address the metrics endpoint binds to")
	persistent.IntVar(&flags.port, "port", config.DefaultPort, "Port the metrics endpoint listens on")
	persistent.StringVar(&flags.policy, "policy", config.PolicyExit, "What to do when the process disappears: exit or stale")
	persistent.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel, "Log level (trace, debug, info, warn, error)")
	persistent.StringVar(&flags.logFormat, "log-format", config.DefaultLogFormat, "Log format (console or json)")

	cmd.Flags().BoolVarP(&flags.version, "version", "v", false, "Show version information")

	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		result.Type = CommandHelp
	})

	return cmd
}

// buildInitCommand creates the init subcommand
func buildInitCommand(result *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "init",
		Aliases: []string{"i"},
		Short:   "Generate " + config.ConfigFile + " template",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			result.Type = CommandInit
		},
	}

	cmd.Flags().BoolVarP(&result.Force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&result.DryRun, "dry-run", false, "Print the template instead of writing it")

	return cmd
}

// buildVersionCommand creates the version subcommand
func buildVersionCommand(result *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			result.Type = CommandVersion
		},
	}

	return cmd
}

// collectOverrides keeps only the flags the user actually set
func collectOverrides(set *pflag.FlagSet, flags *rootFlags) config.Overrides {
	var o config.Overrides

	if set.Changed("pid") {
		o.PID = &flags.pid
	}

	if set.Changed("host") {
		o.Host = &flags.host
	}

	if set.Changed("port") {
		o.Port = &flags.port
	}

	if set.Changed("policy") {
		o.Policy = &flags.policy
	}

	if set.Changed("log-level") {
		o.LogLevel = &flags.logLevel
	}

	if set.Changed("log-format") {
		o.LogFormat = &flags.logFormat
	}

	return o
}
