package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/buildledger/rpcrewrite/internal/cli"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "rpcrewrite",
	Short: "Rewrite insert RPC functions to preserve column defaults",
	Long: `rpcrewrite - insert RPC default-preserving migration generator

rpcrewrite reads a pg_dump schema snapshot, finds every
insert_<table>(_input jsonb) RETURNS SETOF <table> function, and rewrites the
ones that still insert a fully populated record so that keys missing from
_input fall back to the column's database default.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupMigration = "migration"
	groupUtility   = "utility"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover rpcrewrite.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupMigration, Title: "Migration:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	generateCmd.GroupID = groupMigration
	inspectCmd.GroupID = groupMigration
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inspectCmd)

	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// currentConfig returns the loaded configuration, or the defaults when
// PersistentPreRunE did not run.
func currentConfig() *cli.Config {
	if cfg == nil {
		return cli.DefaultConfig()
	}
	return cfg
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveBool returns true if any of the provided values is true.
// Used for boolean flags where any true value should win.
func resolveBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}

// stdout is where results go; nothing is printed with --quiet.
func stdout() io.Writer {
	if quiet {
		return io.Discard
	}
	return os.Stdout
}

// debugf prints progress to stderr when -v was given at least level times.
func debugf(level int, format string, args ...any) {
	if quiet || verbose < level {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
