package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/buildledger/rpcrewrite/internal/cli"
	"github.com/buildledger/rpcrewrite/internal/version"
	"github.com/buildledger/rpcrewrite/pkg/generator"
	"github.com/buildledger/rpcrewrite/pkg/schema"
)

var (
	genSnapshot  string
	genMigration string
	genAudit     string
	genDelta     string
	genSchema    string
	genForbid    []string
	genNoVerify  bool
	genDryRun    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the rewrite migration and reports",
	Long: `Generate a migration that rewrites every naive insert_<table>(_input jsonb)
function in the snapshot, plus an audit report for review and a delta summary.

Functions whose insert was hand-edited are reported as outliers and left out of
the migration. Any parse or rewrite failure aborts the run before a file is
written.`,
	Example: `  # Use the default snapshot and output paths
  rpcrewrite generate

  # Read a different snapshot and strip an extra column from every input
  rpcrewrite generate --snapshot db/dump.sql --forbid tenant_id

  # Print the migration without writing anything
  rpcrewrite generate --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot, paths, opts, dryRun := generateSettings(currentConfig())
		return runGenerate(snapshot, paths, opts, dryRun)
	},
}

// generateSettings starts from the loaded configuration and applies the
// generate flags on top of it.
func generateSettings(c *cli.Config) (string, generator.Paths, generator.Options, bool) {
	snapshot := resolveString(genSnapshot, c.Snapshot, generator.DefaultSnapshotPath)

	paths := c.Paths()
	paths.Migration = resolveString(genMigration, paths.Migration, generator.DefaultMigrationPath)
	paths.Audit = resolveString(genAudit, paths.Audit, generator.DefaultAuditPath)
	paths.Delta = resolveString(genDelta, paths.Delta, generator.DefaultDeltaPath)

	opts := c.Options()
	opts.Schema = resolveString(genSchema, opts.Schema)
	opts.ExtraForbidden = mergeColumns(opts.ExtraForbidden, genForbid)
	opts.Source = filepath.Base(snapshot)
	opts.Verify = opts.Verify && !genNoVerify
	opts.Now = time.Now

	return snapshot, paths, opts, resolveBool(genDryRun, c.Generate.DryRun)
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genSnapshot, "snapshot", "", "schema snapshot to read (default "+generator.DefaultSnapshotPath+")")
	f.StringVar(&genMigration, "migration", "", "migration output path")
	f.StringVar(&genAudit, "audit", "", "audit report output path")
	f.StringVar(&genDelta, "delta", "", "delta report output path")
	f.StringVar(&genSchema, "schema", "", "schema qualifying tables and functions (default public)")
	f.StringSliceVar(&genForbid, "forbid", nil, "extra column to strip from every input (repeatable)")
	f.BoolVar(&genNoVerify, "no-verify", false, "skip parsing the migration before writing it")
	f.BoolVar(&genDryRun, "dry-run", false, "print the migration to stdout and write nothing")
}

func runGenerate(snapshot string, paths generator.Paths, opts generator.Options, dryRun bool) error {
	debugf(1, "rpcrewrite %s", version.Short())
	debugf(1, "Reading snapshot %s (schema %s)", snapshot, resolveString(opts.Schema, schema.DefaultSchema))
	if len(opts.ExtraForbidden) > 0 {
		debugf(1, "Extra forbidden columns: %s", strings.Join(opts.ExtraForbidden, ", "))
	}

	var (
		res *generator.Result
		err error
	)
	if dryRun {
		var src []byte
		src, err = os.ReadFile(snapshot)
		if err != nil {
			return cli.GeneralError("reading snapshot", err)
		}
		res, err = generator.Run(string(src), opts)
	} else {
		res, err = generator.Generate(snapshot, paths, opts)
	}
	if err != nil {
		return cli.PipelineError(err)
	}

	for _, r := range res.Rewrites {
		debugf(2, "  rewrite  %s (line %d, %s): %d candidate columns",
			r.Function.FunctionName, r.SourceLineNumber, r.Function.Tag, len(r.CandidateColumns))
	}
	for _, o := range res.Outliers {
		debugf(2, "  outlier  %s (line %d, %s)", o.FunctionName, o.Line, o.Tag)
	}

	if dryRun {
		fmt.Print(res.Migration)
		debugf(0, "-- Dry run: nothing written. Counts -> total: %d, rewritten: %d, outliers: %d",
			res.Total, len(res.Rewrites), len(res.Outliers))
		return nil
	}

	w := stdout()
	fmt.Fprintf(w, "Generated migration: %s\n", paths.Migration)
	fmt.Fprintf(w, "Generated audit: %s\n", paths.Audit)
	fmt.Fprintf(w, "Generated delta: %s\n", paths.Delta)
	fmt.Fprintf(w, "Counts -> total: %d, rewritten: %d, outliers: %d\n", res.Total, len(res.Rewrites), len(res.Outliers))
	return nil
}

// mergeColumns concatenates column lists, dropping blanks and repeats.
func mergeColumns(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, c := range list {
			c = strings.TrimSpace(c)
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
