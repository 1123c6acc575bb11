// Package schema reads table definitions out of a pg_dump style schema snapshot and
// derives which columns an insert function may accept from caller input.
package schema

// DefaultSchema is the schema qualifier used when none is configured.
const DefaultSchema = "public"

// SystemColumns are stripped from every insert input regardless of whether the
// target table has them. Order matters: it is the order they are subtracted in the
// generated SQL and listed in the audit.
var SystemColumns = []string{"id", "created_at", "updated_at", "deleted_at"}

// ColumnDef is one column line of a CREATE TABLE block.
//
// Each flag is derived from the raw definition text on its own; Identity does not
// imply Generated or the other way round.
type ColumnDef struct {
	Name           string
	HasDefault     bool
	NotNull        bool
	Generated      bool // GENERATED ALWAYS
	Identity       bool // GENERATED {ALWAYS|BY DEFAULT} AS IDENTITY
	DefinitionText string
}

// TableSchema is a table and its columns in declaration order.
type TableSchema struct {
	Name    string
	Columns []ColumnDef
}

// ColumnNames returns the column names in declaration order.
func (t *TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Tables maps table name to its parsed definition.
type Tables map[string]*TableSchema
