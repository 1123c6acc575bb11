package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/buildledger/rpcrewrite/internal/cli"
)

var configShowSource bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long: `Show the configuration generate and inspect will run with, after merging
defaults, rpcrewrite.yaml and RPCREWRITE_* environment variables. Command-line
flags are not included.`,
	Example: `  # Show effective configuration
  rpcrewrite config show

  # Also name the config file it was read from
  rpcrewrite config show --source`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			debugf(1, "No rpcrewrite.yaml found; showing defaults and environment")
		} else {
			debugf(1, "Loaded %s", configPath)
		}
		return printConfig(stdout(), currentConfig(), configPath, configShowSource)
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowSource, "source", false, "also print the config file path")
	configCmd.AddCommand(configShowCmd)
}

// printConfig writes c as YAML, preceded by its source file when withSource is set.
func printConfig(w io.Writer, c *cli.Config, source string, withSource bool) error {
	if withSource {
		fmt.Fprintf(w, "# source: %s\n", resolveString(source, "(defaults)"))
	}

	out, err := yaml.Marshal(c)
	if err != nil {
		return cli.GeneralError("encoding configuration", err)
	}
	_, err = w.Write(out)
	return err
}
