// Package rewriter turns a naive insert_<table>(_input jsonb) function into one that
// only inserts the keys present in _input, so omitted columns take their defaults.
package rewriter

import (
	"fmt"
	"strings"

	"github.com/buildledger/rpcrewrite"
	"github.com/buildledger/rpcrewrite/internal/sqlgen/plpgsql"
	"github.com/buildledger/rpcrewrite/internal/sqlgen/sqldsl"
	"github.com/buildledger/rpcrewrite/pkg/locator"
	"github.com/buildledger/rpcrewrite/pkg/schema"
)

const (
	createFunction          = "CREATE FUNCTION"
	createOrReplaceFunction = "CREATE OR REPLACE FUNCTION"
)

// RewriteResult is a rewritten function and the column policy it was built from.
type RewriteResult struct {
	Function    locator.FunctionRecord
	Table       *schema.TableSchema
	UpdatedBody string
	Policy      schema.Policy

	ForbiddenColumns         []string
	CandidateColumns         []string
	DefaultColumns           []string
	GeneratedIdentityColumns []string
	SourceLineNumber         int
}

// Rewriter classifies and rewrites located insert functions.
type Rewriter struct {
	schemaName string
	extra      []string
	matcher    *Matcher
}

// New returns a Rewriter for functions and tables in schemaName. extraForbidden
// columns are stripped from every input in addition to schema.SystemColumns.
func New(schemaName string, extraForbidden []string) *Rewriter {
	if schemaName == "" {
		schemaName = schema.DefaultSchema
	}
	return &Rewriter{
		schemaName: schemaName,
		extra:      extraForbidden,
		matcher:    NewMatcher(schemaName),
	}
}

// Rewritable reports whether fn still contains the naive insert for its table.
// Functions that do not are outliers and must be left untouched.
func (r *Rewriter) Rewritable(fn locator.FunctionRecord) bool {
	return r.matcher.Matches(fn.BodyText, fn.TableName)
}

// Rewrite rewrites a rewritable function against its table definition. table may be
// nil when the snapshot has no CREATE TABLE for fn.TableName, which is an error.
func (r *Rewriter) Rewrite(fn locator.FunctionRecord, table *schema.TableSchema) (*RewriteResult, error) {
	where := fmt.Sprintf("%s (table %s, line %d)", fn.FunctionName, fn.TableName, fn.Line)

	if table == nil {
		return nil, fmt.Errorf("%s: %w", where, rpcrewrite.ErrMissingTable)
	}

	policy := schema.NewPolicy(table, r.extra)
	ident := sqldsl.Ident{Schema: r.schemaName, Name: fn.TableName}

	updated, _ := MergeDeclarations(fn.BodyText, ident)

	sp, ok := r.matcher.find(updated, fn.TableName)
	if !ok {
		return nil, fmt.Errorf("%s: naive insert not found: %w", where, rpcrewrite.ErrNoopRewrite)
	}

	indent := sp.Indent
	if indent == "" || !sp.AtLineStart {
		indent = plpgsql.Indent
	}
	replacement := insertBlock(ident, policy).Render(indent)
	if strings.Contains(fn.BodyText, "\r\n") {
		replacement = strings.ReplaceAll(replacement, "\n", "\r\n")
	}
	updated = updated[:sp.Start] + replacement + updated[sp.End:]

	if rest, ok := strings.CutPrefix(updated, createFunction); ok {
		updated = createOrReplaceFunction + rest
	}

	if updated == fn.BodyText {
		return nil, fmt.Errorf("%s: %w", where, rpcrewrite.ErrNoopRewrite)
	}

	return &RewriteResult{
		Function:                 fn,
		Table:                    table,
		UpdatedBody:              updated,
		Policy:                   policy,
		ForbiddenColumns:         policy.Forbidden,
		CandidateColumns:         policy.Candidates,
		DefaultColumns:           policy.Defaults,
		GeneratedIdentityColumns: policy.GeneratedIdentity,
		SourceLineNumber:         fn.Line,
	}, nil
}

// insertBlock builds the statements replacing the naive insert:
//
//  1. strip forbidden keys from _input into _input_sanitized
//  2. populate the scratch row _r from the sanitized input
//  3. collect each candidate column whose key is present, in table order
//  4. insert DEFAULT VALUES when none are present, else a dynamic insert of just
//     the collected columns with values taken from _r
func insertBlock(table sqldsl.Ident, policy schema.Policy) plpgsql.Block {
	sanitized := sqldsl.Param(varSanitized)
	columns := sqldsl.Param(varColumns)

	b := plpgsql.Block{
		plpgsql.Assign{
			Name: varSanitized,
			Value: sqldsl.WithoutKeys{
				Base: sqldsl.Coalesce(sqldsl.Param(varInput), sqldsl.EmptyJSONB()),
				Keys: policy.Forbidden,
			},
		},
		plpgsql.Blank{},
		plpgsql.Assign{
			Name: varRow,
			Value: sqldsl.Func{Name: "jsonb_populate_record", Args: []sqldsl.Expr{
				sqldsl.Cast{Expr: sqldsl.Null{}, Type: table.SQL()},
				sanitized,
			}},
		},
		plpgsql.Blank{},
	}

	for _, col := range policy.Candidates {
		b = append(b,
			plpgsql.If{
				Cond: sqldsl.HasKey{Expr: sanitized, Key: col},
				Then: []plpgsql.Stmt{
					plpgsql.Assign{
						Name:  varColumns,
						Value: sqldsl.Func{Name: "array_append", Args: []sqldsl.Expr{columns, sqldsl.Lit(col)}},
					},
				},
			},
			plpgsql.Blank{},
		)
	}

	selected := sqldsl.Coalesce(
		sqldsl.Func{Name: "array_length", Args: []sqldsl.Expr{columns, sqldsl.Int(1)}},
		sqldsl.Int(0),
	)

	return append(b, plpgsql.If{
		Cond: sqldsl.Eq{Left: selected, Right: sqldsl.Int(0)},
		Then: []plpgsql.Stmt{
			plpgsql.InsertDefaultValues{Table: table, Into: varNewRow},
		},
		Else: []plpgsql.Stmt{
			plpgsql.SelectInto{Expr: stringAgg("%I"), Variable: varColumnList, From: columnsFromSQL},
			plpgsql.Blank{},
			plpgsql.SelectInto{Expr: stringAgg("($1).%I"), Variable: varValueList, From: columnsFromSQL},
			plpgsql.Blank{},
			plpgsql.ExecuteFormat{
				Template: "INSERT INTO " + table.SQL() + " (%s) VALUES (%s) RETURNING *",
				Args:     []sqldsl.Expr{sqldsl.Param(varColumnList), sqldsl.Param(varValueList)},
				Using:    []sqldsl.Expr{sqldsl.Param(varRow)},
				Into:     varNewRow,
			},
		},
	})
}

// stringAgg renders string_agg(format('<f>', c), ', ') over the chosen columns.
func stringAgg(f string) sqldsl.Expr {
	return sqldsl.Func{Name: "string_agg", Args: []sqldsl.Expr{
		sqldsl.Func{Name: "format", Args: []sqldsl.Expr{sqldsl.Lit(f), sqldsl.Param(columnAlias)}},
		sqldsl.Lit(", "),
	}}
}
