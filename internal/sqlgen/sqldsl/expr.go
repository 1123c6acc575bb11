// Package sqldsl provides typed SQL expressions for the rewritten insert functions.
// Every type renders PostgreSQL text through SQL(); nothing here executes SQL.
package sqldsl

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Expr is the interface that all SQL expression types implement.
type Expr interface {
	SQL() string
}

// Param is a PL/pgSQL parameter or local variable (e.g., _input, _insert_columns).
type Param string

// SQL renders the variable name.
func (p Param) SQL() string {
	return string(p)
}

// Lit is a text literal, quoted with pq.QuoteLiteral.
type Lit string

// SQL renders the quoted literal.
func (l Lit) SQL() string {
	return pq.QuoteLiteral(string(l))
}

var bareIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Ident is a possibly schema-qualified identifier. Parts that are plain identifiers
// render bare so PostgreSQL's case folding is unchanged; anything else is quoted.
type Ident struct {
	Schema string
	Name   string
}

// SQL renders schema.name, or name when Schema is empty.
func (i Ident) SQL() string {
	if i.Schema == "" {
		return identPart(i.Name)
	}
	return identPart(i.Schema) + "." + identPart(i.Name)
}

func identPart(s string) string {
	if bareIdentRe.MatchString(s) {
		return s
	}
	return pq.QuoteIdentifier(s)
}

// Raw is an escape hatch for arbitrary SQL expressions.
type Raw string

// SQL renders the raw SQL as-is.
func (r Raw) SQL() string {
	return string(r)
}

// Int represents an integer literal.
type Int int

// SQL renders the integer.
func (i Int) SQL() string {
	return strconv.Itoa(int(i))
}

// Null represents SQL NULL.
type Null struct{}

// SQL renders NULL.
func (Null) SQL() string {
	return "NULL"
}

// Cast renders expr::type.
type Cast struct {
	Expr Expr
	Type string
}

// SQL renders the cast.
func (c Cast) SQL() string {
	return c.Expr.SQL() + "::" + c.Type
}

// EmptyJSONB is '{}'::jsonb.
func EmptyJSONB() Cast {
	return Cast{Expr: Lit("{}"), Type: "jsonb"}
}

// EmptyTextArray is ARRAY[]::text[].
func EmptyTextArray() Cast {
	return Cast{Expr: Raw("ARRAY[]"), Type: "text[]"}
}

// Func represents a SQL function call.
type Func struct {
	Name string
	Args []Expr
}

// SQL renders the function call.
func (f Func) SQL() string {
	args := make([]string, len(f.Args))
	for i, arg := range f.Args {
		args[i] = arg.SQL()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

// Coalesce renders COALESCE(args...).
func Coalesce(args ...Expr) Func {
	return Func{Name: "COALESCE", Args: args}
}

// WithoutKeys removes top-level keys from a jsonb value: base - 'k1' - 'k2' ...
// Keys render in the order given.
type WithoutKeys struct {
	Base Expr
	Keys []string
}

// SQL renders the subtraction chain.
func (w WithoutKeys) SQL() string {
	var sb strings.Builder
	sb.WriteString(w.Base.SQL())
	for _, k := range w.Keys {
		sb.WriteString(" - ")
		sb.WriteString(Lit(k).SQL())
	}
	return sb.String()
}

// HasKey renders the jsonb key-exists test: expr ? 'key'.
type HasKey struct {
	Expr Expr
	Key  string
}

// SQL renders the ? operator.
func (h HasKey) SQL() string {
	return h.Expr.SQL() + " ? " + Lit(h.Key).SQL()
}

// Eq renders left = right.
type Eq struct {
	Left  Expr
	Right Expr
}

// SQL renders the equality.
func (e Eq) SQL() string { return e.Left.SQL() + " = " + e.Right.SQL() }
