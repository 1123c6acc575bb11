package rewriter

import (
	"regexp"
	"strings"

	"github.com/buildledger/rpcrewrite/internal/sqlgen/plpgsql"
	"github.com/buildledger/rpcrewrite/internal/sqlgen/sqldsl"
	"github.com/buildledger/rpcrewrite/pkg/scan"
)

// Local variables used by the rewritten insert.
const (
	varInput       = "_input"
	varSanitized   = "_input_sanitized"
	varColumns     = "_insert_columns"
	varColumnList  = "_insert_column_list"
	varValueList   = "_insert_value_list"
	varRow         = "_r"
	varNewRow      = "_new_row"
	columnAlias    = "c"
	columnsFromSQL = "unnest(" + varColumns + ") AS " + columnAlias
)

var (
	declareLineRe = regexp.MustCompile(`(?m)^([ \t]*)DECLARE[ \t]*\r?\n`)
	beginLineRe   = regexp.MustCompile(`(?m)^([ \t]*)BEGIN[ \t]*\r?$`)
)

// declarations returns the five variables the rewritten insert needs, in the order
// they are declared.
func declarations(table sqldsl.Ident) []plpgsql.Decl {
	return []plpgsql.Decl{
		{Name: varSanitized, Type: "jsonb", Default: sqldsl.EmptyJSONB()},
		{Name: varColumns, Type: "text[]", Default: sqldsl.EmptyTextArray()},
		{Name: varColumnList, Type: "text"},
		{Name: varValueList, Type: "text"},
		{Name: varRow, Type: table.SQL()},
	}
}

// MergeDeclarations appends the rewrite's local variables to the function's
// top-level DECLARE section, indented two spaces past the DECLARE keyword.
//
// If every declaration already appears in the section the body is returned
// unchanged with changed == false, so merging an already-merged body is a no-op.
// A body with a BEGIN line but no DECLARE section gets a new section before BEGIN.
func MergeDeclarations(body string, table sqldsl.Ident) (updated string, changed bool) {
	s := scan.New(body)

	decl, hasDeclare := s.FindNext(declareLineRe)
	begin, hasBegin := s.Peek(beginLineRe)
	if !hasBegin {
		return body, false
	}

	lines := declarations(table)

	// New lines take the BEGIN line's ending so CRLF bodies stay CRLF.
	eol := "\n"
	if strings.HasSuffix(begin.Text(), "\r") {
		eol = "\r\n"
	}

	if !hasDeclare {
		indent := begin.Group(1)
		var sb strings.Builder
		sb.WriteString(body[:begin.Start])
		sb.WriteString(indent)
		sb.WriteString("DECLARE" + eol)
		writeDecls(&sb, lines, indent+plpgsql.Indent, eol)
		sb.WriteString(body[begin.Start:])
		return sb.String(), true
	}

	existing := body[decl.End:begin.Start]
	if hasAll(existing, lines) {
		return body, false
	}

	var sb strings.Builder
	sb.WriteString(body[:begin.Start])
	writeDecls(&sb, lines, decl.Group(1)+plpgsql.Indent, eol)
	sb.WriteString(body[begin.Start:])
	return sb.String(), true
}

func hasAll(section string, decls []plpgsql.Decl) bool {
	for _, d := range decls {
		if !strings.Contains(section, d.SQL()) {
			return false
		}
	}
	return true
}

func writeDecls(sb *strings.Builder, decls []plpgsql.Decl, indent, eol string) {
	for _, d := range decls {
		sb.WriteString(indent)
		sb.WriteString(d.SQL())
		sb.WriteString(eol)
	}
}
