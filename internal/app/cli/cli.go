package cli

import (
	"fmt"
	"io"

	"pidwatch/internal/config"
)

// PrintVersion writes the application name and version
func PrintVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "%s v%s\n", config.AppName, config.Version)
}

// PrintHelp writes the usage of the root command and its subcommands
func PrintHelp(w io.Writer) {
	root := buildRootCommand(&Options{}, &rootFlags{})
	root.AddCommand(
		buildInitCommand(&Options{}),
		buildVersionCommand(&Options{}),
	)

	_, _ = fmt.Fprintf(w, "%s\n\n%s", root.Long, root.UsageString())
}
