// Package rpcrewrite rewrites naive insert_<table>(_input jsonb) functions found in a
// PostgreSQL schema snapshot so that omitted JSON keys fall back to column defaults.
//
// The pipeline lives in pkg/generator; this package holds the sentinel errors shared by
// every stage so callers can classify a failed run without string matching.
package rpcrewrite

import "errors"

// Sentinel errors for the fatal conditions of a rewrite run. Any of these aborts the
// whole run before an output file is written. A function whose body does not match the
// naive insert template is never an error; it is reported as an outlier instead.
var (
	// ErrMissingDollarTag is returned when a located function header is not followed by
	// an AS $tag$ line opening its body.
	ErrMissingDollarTag = errors.New("rpcrewrite: function body opening dollar-quote tag not found")

	// ErrUnterminatedFunction is returned when the $tag$; terminator of a function body
	// never appears after its opening tag.
	ErrUnterminatedFunction = errors.New("rpcrewrite: function body terminator not found")

	// ErrMissingTable is returned when a rewritable function targets a table that has no
	// CREATE TABLE block in the snapshot.
	ErrMissingTable = errors.New("rpcrewrite: table metadata not found")

	// ErrNoopRewrite is returned when rewriting a matched function leaves its text unchanged.
	ErrNoopRewrite = errors.New("rpcrewrite: rewrite produced no change")

	// ErrInvalidMigration is returned when the assembled migration fails to parse as
	// PostgreSQL or does not have the expected statement shape.
	ErrInvalidMigration = errors.New("rpcrewrite: generated migration is invalid")
)

// IsStructuralErr returns true if err is or wraps ErrMissingDollarTag or ErrUnterminatedFunction.
func IsStructuralErr(err error) bool {
	return errors.Is(err, ErrMissingDollarTag) || errors.Is(err, ErrUnterminatedFunction)
}

// IsMissingTableErr returns true if err is or wraps ErrMissingTable.
func IsMissingTableErr(err error) bool {
	return errors.Is(err, ErrMissingTable)
}

// IsNoopRewriteErr returns true if err is or wraps ErrNoopRewrite.
func IsNoopRewriteErr(err error) bool {
	return errors.Is(err, ErrNoopRewrite)
}

// IsInvalidMigrationErr returns true if err is or wraps ErrInvalidMigration.
func IsInvalidMigrationErr(err error) bool {
	return errors.Is(err, ErrInvalidMigration)
}
