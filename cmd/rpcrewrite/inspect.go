package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/buildledger/rpcrewrite/internal/cli"
	"github.com/buildledger/rpcrewrite/pkg/generator"
	"github.com/buildledger/rpcrewrite/pkg/schema"
)

var (
	inspectSnapshot string
	inspectSchema   string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show how each insert function would be handled",
	Long: `Parse the snapshot and list its tables and insert functions without
rewriting or writing anything. Each function is shown as "rewrite" when it
still contains the naive populate-record insert, or "outlier" otherwise.`,
	Example: `  # Inspect the default snapshot
  rpcrewrite inspect

  # Inspect a snapshot using another schema
  rpcrewrite inspect --snapshot db/dump.sql --schema app`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		snapshot := resolveString(inspectSnapshot, c.Snapshot, generator.DefaultSnapshotPath)
		opts := c.Options()
		opts.Schema = resolveString(inspectSchema, opts.Schema)

		src, err := os.ReadFile(snapshot)
		if err != nil {
			return cli.GeneralError("reading snapshot", err)
		}

		a, err := generator.Analyze(string(src), opts)
		if err != nil {
			return cli.PipelineError(err)
		}

		printAnalysis(stdout(), a, opts.ExtraForbidden)
		return nil
	},
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectSnapshot, "snapshot", "", "schema snapshot to read (default "+generator.DefaultSnapshotPath+")")
	f.StringVar(&inspectSchema, "schema", "", "schema qualifying tables and functions (default public)")
}

func printAnalysis(w io.Writer, a *generator.Analysis, extra []string) {
	names := make([]string, 0, len(a.Tables))
	for name := range a.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "Tables: %d\n", len(names))
	for _, name := range names {
		fmt.Fprintf(w, "  - %s (%d columns)\n", name, len(a.Tables[name].Columns))
		debugf(2, "      %s: %s", name, strings.Join(a.Tables[name].ColumnNames(), ", "))
	}

	fmt.Fprintf(w, "\nInsert functions: %d\n", len(a.Functions))
	for _, c := range a.Functions {
		fn := c.Function
		debugf(2, "      %s body quoted with %s", fn.FunctionName, fn.Tag)
		if !c.Rewritable {
			fmt.Fprintf(w, "  - %s (line %d): outlier\n", fn.FunctionName, fn.Line)
			continue
		}
		if c.Table == nil {
			fmt.Fprintf(w, "  - %s (line %d): rewrite, but table %s is missing\n", fn.FunctionName, fn.Line, fn.TableName)
			continue
		}
		p := schema.NewPolicy(c.Table, extra)
		fmt.Fprintf(w, "  - %s (line %d): rewrite [%s]\n", fn.FunctionName, fn.Line, strings.Join(p.Candidates, ", "))
	}
}
