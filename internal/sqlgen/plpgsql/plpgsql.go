// Package plpgsql provides PL/pgSQL statement builder types.
package plpgsql

import (
	"strings"

	"github.com/buildledger/rpcrewrite/internal/sqlgen/sqldsl"
)

// =============================================================================
// PL/pgSQL Statement Builder
// =============================================================================
//
// Statements render without leading indentation. Nested bodies (IF/ELSE, EXECUTE
// arguments) are indented by Indent per level; Block.Render applies the outer
// indentation so generated code lines up with the function it is spliced into.

// Indent is one nesting level.
const Indent = "  "

// Stmt is a PL/pgSQL statement that can be rendered to SQL.
type Stmt interface {
	StmtSQL() string
}

// Decl represents a DECLARE variable declaration.
type Decl struct {
	Name    string
	Type    string
	Default sqldsl.Expr // nil means no initializer
}

// SQL renders name type [:= default];
func (d Decl) SQL() string {
	if d.Default == nil {
		return d.Name + " " + d.Type + ";"
	}
	return d.Name + " " + d.Type + " := " + d.Default.SQL() + ";"
}

// Assign renders name := value;
type Assign struct {
	Name  string
	Value sqldsl.Expr
}

func (a Assign) StmtSQL() string {
	return a.Name + " := " + a.Value.SQL() + ";"
}

// Blank renders an empty separator line.
type Blank struct{}

func (Blank) StmtSQL() string { return "" }

// If renders IF cond THEN ... [ELSE ...] END IF;
type If struct {
	Cond sqldsl.Expr
	Then []Stmt
	Else []Stmt
}

func (i If) StmtSQL() string {
	var sb strings.Builder
	sb.WriteString("IF ")
	sb.WriteString(i.Cond.SQL())
	sb.WriteString(" THEN\n")
	writeIndented(&sb, i.Then, Indent)

	if len(i.Else) > 0 {
		sb.WriteString("ELSE\n")
		writeIndented(&sb, i.Else, Indent)
	}

	sb.WriteString("END IF;")
	return sb.String()
}

// SelectInto renders a single-row SELECT into a variable:
//
//	SELECT <expr>
//	INTO <variable>
//	FROM <from>;
type SelectInto struct {
	Expr     sqldsl.Expr
	Variable string
	From     string
}

func (s SelectInto) StmtSQL() string {
	return "SELECT " + s.Expr.SQL() + "\nINTO " + s.Variable + "\nFROM " + s.From + ";"
}

// InsertDefaultValues renders an insert of an all-default row returning into a variable.
type InsertDefaultValues struct {
	Table sqldsl.Ident
	Into  string
}

func (i InsertDefaultValues) StmtSQL() string {
	return "INSERT INTO " + i.Table.SQL() + " DEFAULT VALUES\nRETURNING * INTO " + i.Into + ";"
}

// ExecuteFormat renders a dynamic statement built with format():
//
//	EXECUTE format(
//	  '<template>',
//	  <arg>,
//	  ...
//	)
//	USING <using>
//	INTO <into>;
type ExecuteFormat struct {
	Template string
	Args     []sqldsl.Expr
	Using    []sqldsl.Expr
	Into     string
}

func (e ExecuteFormat) StmtSQL() string {
	var sb strings.Builder
	sb.WriteString("EXECUTE format(\n")
	sb.WriteString(Indent)
	sb.WriteString(sqldsl.Lit(e.Template).SQL())
	for _, arg := range e.Args {
		sb.WriteString(",\n")
		sb.WriteString(Indent)
		sb.WriteString(arg.SQL())
	}
	sb.WriteString("\n)")

	if len(e.Using) > 0 {
		using := make([]string, len(e.Using))
		for i, u := range e.Using {
			using[i] = u.SQL()
		}
		sb.WriteString("\nUSING ")
		sb.WriteString(strings.Join(using, ", "))
	}
	if e.Into != "" {
		sb.WriteString("\nINTO ")
		sb.WriteString(e.Into)
	}
	sb.WriteString(";")
	return sb.String()
}

// Block is a sequence of statements rendered at a common indentation.
type Block []Stmt

// Render renders each statement on its own lines, prefixing every non-empty line
// with indent. The result has no trailing newline.
func (b Block) Render(indent string) string {
	var sb strings.Builder
	writeIndented(&sb, b, indent)
	return strings.TrimSuffix(sb.String(), "\n")
}

func writeIndented(sb *strings.Builder, stmts []Stmt, indent string) {
	for _, stmt := range stmts {
		for _, line := range strings.Split(stmt.StmtSQL(), "\n") {
			if line != "" {
				sb.WriteString(indent)
				sb.WriteString(line)
			}
			sb.WriteString("\n")
		}
	}
}
