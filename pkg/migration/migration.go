// Package migration assembles rewritten functions into a single transactional
// migration script.
package migration

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/buildledger/rpcrewrite/pkg/rewriter"
)

// Defaults for the migration header.
const (
	DefaultDescription = "rewrite insert RPC functions to preserve DB defaults when keys are omitted"
	DefaultSource      = "backend.snapshot.sql"
)

// TimestampLayout renders the header date as a UTC ISO-8601 instant with
// millisecond precision, e.g. 2024-05-01T12:00:00.000Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Meta describes the migration header.
type Meta struct {
	Description string
	Source      string
	Date        time.Time
}

func (m Meta) withDefaults() Meta {
	if m.Description == "" {
		m.Description = DefaultDescription
	}
	if m.Source == "" {
		m.Source = DefaultSource
	}
	return m
}

// Write writes the migration for results to w. Rewrites appear in the order given,
// each trimmed and newline-terminated, separated by one blank line, and wrapped in
// a single BEGIN/COMMIT transaction.
func Write(w io.Writer, results []*rewriter.RewriteResult, meta Meta) error {
	meta = meta.withDefaults()

	bodies := make([]string, len(results))
	for i, r := range results {
		bodies[i] = strings.TrimSpace(r.UpdatedBody) + "\n"
	}

	_, err := fmt.Fprintf(w,
		"-- Migration: %s\n-- Generated from %s\n-- Date: %s\n\nBEGIN;\n\n%s\nCOMMIT;\n",
		meta.Description,
		meta.Source,
		meta.Date.UTC().Format(TimestampLayout),
		strings.Join(bodies, "\n"),
	)
	return err
}

// Assemble returns the migration document for results.
func Assemble(results []*rewriter.RewriteResult, meta Meta) string {
	var sb strings.Builder
	_ = Write(&sb, results, meta) // strings.Builder never fails
	return sb.String()
}
