// Package report renders the markdown audit and delta documents for a run.
//
// Both documents are pure functions of a Summary; nothing is recomputed from the
// snapshot text.
package report

import (
	"fmt"
	"strings"

	"github.com/buildledger/rpcrewrite/pkg/locator"
	"github.com/buildledger/rpcrewrite/pkg/migration"
	"github.com/buildledger/rpcrewrite/pkg/rewriter"
	"github.com/buildledger/rpcrewrite/pkg/schema"
)

// Summary is the classified outcome of one run.
type Summary struct {
	Source   string // snapshot name shown in the delta
	Schema   string
	Total    int
	Rewrites []*rewriter.RewriteResult
	Outliers []locator.FunctionRecord
}

func (s Summary) source() string {
	if s.Source == "" {
		return migration.DefaultSource
	}
	return s.Source
}

func (s Summary) schema() string {
	if s.Schema == "" {
		return schema.DefaultSchema
	}
	return s.Schema
}

// lines accumulates markdown lines and joins them with a trailing newline.
type lines []string

func (l *lines) add(format string, args ...any) {
	*l = append(*l, fmt.Sprintf(format, args...))
}

func (l *lines) blank() { *l = append(*l, "") }

func (l lines) String() string { return strings.Join(l, "\n") + "\n" }

// list joins items with ", ", or returns "none" when there are none.
func list(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
