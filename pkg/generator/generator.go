// Package generator runs the snapshot-to-migration pipeline end to end.
//
// The whole result set is computed in memory before anything is written. Any
// structural parse failure, missing table, or no-op rewrite aborts the run with no
// output.
package generator

import (
	"time"

	"github.com/buildledger/rpcrewrite/pkg/locator"
	"github.com/buildledger/rpcrewrite/pkg/migration"
	"github.com/buildledger/rpcrewrite/pkg/report"
	"github.com/buildledger/rpcrewrite/pkg/rewriter"
	"github.com/buildledger/rpcrewrite/pkg/schema"
)

// Options configures a run. The zero value rewrites functions in the public
// schema and skips migration verification.
type Options struct {
	// Schema qualifies every table and function the run looks at.
	Schema string

	// ExtraForbidden columns are stripped from every input on top of
	// schema.SystemColumns.
	ExtraForbidden []string

	// Source names the snapshot in the migration header and the delta.
	Source string

	// Description is the migration header's description line.
	Description string

	// Verify parses the assembled migration with libpg_query before returning.
	Verify bool

	// Now stamps the migration header. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) schemaName() string {
	if o.Schema == "" {
		return schema.DefaultSchema
	}
	return o.Schema
}

// Classification is how one located function will be handled.
type Classification struct {
	Function locator.FunctionRecord
	Table    *schema.TableSchema // nil if the snapshot has no such table

	// Rewritable is true when the body contains the naive insert for its table.
	Rewritable bool
}

// Analysis is the read-only view of a snapshot: its tables and every located
// insert function, classified.
type Analysis struct {
	Tables    schema.Tables
	Functions []Classification
}

// Analyze parses tables and locates insert functions in src without rewriting
// anything. Only structural parse failures are errors.
func Analyze(src string, opts Options) (*Analysis, error) {
	name := opts.schemaName()

	records, err := locator.Locate(src, name)
	if err != nil {
		return nil, err
	}

	a := &Analysis{Tables: schema.ParseTables(src, name)}
	rw := rewriter.New(name, opts.ExtraForbidden)
	for _, fn := range records {
		a.Functions = append(a.Functions, Classification{
			Function:   fn,
			Table:      a.Tables[fn.TableName],
			Rewritable: rw.Rewritable(fn),
		})
	}
	return a, nil
}

// Result holds the classified functions and the three rendered documents.
type Result struct {
	Total    int
	Rewrites []*rewriter.RewriteResult
	Outliers []locator.FunctionRecord

	Migration string
	Audit     string
	Delta     string
}

// Run rewrites every rewritable insert function in src and renders the migration,
// audit, and delta documents. Functions keep their snapshot order in every output.
func Run(src string, opts Options) (*Result, error) {
	a, err := Analyze(src, opts)
	if err != nil {
		return nil, err
	}

	rw := rewriter.New(opts.schemaName(), opts.ExtraForbidden)
	res := &Result{Total: len(a.Functions)}
	for _, c := range a.Functions {
		if !c.Rewritable {
			res.Outliers = append(res.Outliers, c.Function)
			continue
		}
		r, err := rw.Rewrite(c.Function, c.Table)
		if err != nil {
			return nil, err
		}
		res.Rewrites = append(res.Rewrites, r)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	res.Migration = migration.Assemble(res.Rewrites, migration.Meta{
		Description: opts.Description,
		Source:      opts.Source,
		Date:        now(),
	})

	summary := report.Summary{
		Source:   opts.Source,
		Schema:   opts.schemaName(),
		Total:    res.Total,
		Rewrites: res.Rewrites,
		Outliers: res.Outliers,
	}
	res.Audit = report.Audit(summary)
	res.Delta = report.Delta(summary)

	if opts.Verify {
		if err := Verify(res.Migration, res.Rewrites); err != nil {
			return nil, err
		}
	}

	return res, nil
}
