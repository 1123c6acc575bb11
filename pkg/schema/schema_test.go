package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widgetsDDL = `SET statement_timeout = 0;

CREATE TABLE public.widgets (
    id bigint GENERATED ALWAYS AS IDENTITY NOT NULL,
    created_at timestamp with time zone DEFAULT now() NOT NULL,
    name text NOT NULL,
    color text DEFAULT 'red'::text,
    CONSTRAINT widgets_name_check CHECK ((name <> ''::text))
);

CREATE TABLE public.contracts (
    contract_id uuid DEFAULT gen_random_uuid() NOT NULL,
    seq integer GENERATED BY DEFAULT AS IDENTITY,
    total numeric GENERATED ALWAYS AS ((amount * 2)) STORED,
    amount numeric,
        indented_too_far text,
    PRIMARY KEY (contract_id)
);

CREATE TABLE private.hidden (
    secret text
);
`

func TestParseTables(t *testing.T) {
	tables := ParseTables(widgetsDDL, "public")
	require.Len(t, tables, 2)

	widgets := tables["widgets"]
	require.NotNil(t, widgets)
	assert.Equal(t, "widgets", widgets.Name)
	assert.Equal(t, []string{"id", "created_at", "name", "color"}, widgets.ColumnNames())

	id := column(t, widgets, "id")
	assert.True(t, id.Generated)
	assert.True(t, id.Identity)
	assert.True(t, id.NotNull)
	assert.False(t, id.HasDefault)
	assert.Equal(t, "bigint GENERATED ALWAYS AS IDENTITY NOT NULL", id.DefinitionText)

	createdAt := column(t, widgets, "created_at")
	assert.True(t, createdAt.HasDefault)
	assert.True(t, createdAt.NotNull)
	assert.False(t, createdAt.Generated)

	name := column(t, widgets, "name")
	assert.True(t, name.NotNull)
	assert.False(t, name.HasDefault)

	color := column(t, widgets, "color")
	assert.True(t, color.HasDefault)
	assert.False(t, color.NotNull)
	assert.Equal(t, "text DEFAULT 'red'::text", color.DefinitionText)
}

func TestParseTables_FlagsAreIndependent(t *testing.T) {
	tables := ParseTables(widgetsDDL, "")
	contracts := tables["contracts"]
	require.NotNil(t, contracts)

	assert.Equal(t, []string{"contract_id", "seq", "total", "amount"}, contracts.ColumnNames())

	seq := column(t, contracts, "seq")
	assert.True(t, seq.Identity, "BY DEFAULT AS IDENTITY is identity")
	assert.False(t, seq.Generated, "BY DEFAULT is not GENERATED ALWAYS")

	total := column(t, contracts, "total")
	assert.True(t, total.Generated)
	assert.False(t, total.Identity, "stored generated column is not identity")
}

func TestParseTables_OtherSchema(t *testing.T) {
	tables := ParseTables(widgetsDDL, "private")
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"secret"}, tables["hidden"].ColumnNames())
}

func TestParseTables_UnclosedBlockIsDropped(t *testing.T) {
	tables := ParseTables("CREATE TABLE public.open (\n    a text\n", "public")
	assert.Empty(t, tables)
}

func TestParseTables_CRLF(t *testing.T) {
	src := "CREATE TABLE public.t (\r\n    a text,\r\n    b integer DEFAULT 1\r\n);\r\n"
	tables := ParseTables(src, "public")
	require.Contains(t, tables, "t")
	assert.Equal(t, []string{"a", "b"}, tables["t"].ColumnNames())
}

func TestNewPolicy(t *testing.T) {
	widgets := ParseTables(widgetsDDL, "public")["widgets"]
	p := NewPolicy(widgets, nil)

	assert.Equal(t, []string{"id", "created_at", "updated_at", "deleted_at"}, p.Forbidden)
	assert.Equal(t, []string{"name", "color"}, p.Candidates)
	assert.Equal(t, []string{"created_at", "color"}, p.Defaults)
	assert.Equal(t, []string{"id"}, p.GeneratedIdentity)
	assert.Equal(t, []string{"color"}, p.DefaultEligible())
}

func TestNewPolicy_DerivedAndExtra(t *testing.T) {
	contracts := ParseTables(widgetsDDL, "public")["contracts"]
	p := NewPolicy(contracts, []string{"amount", "id"})

	assert.Equal(t,
		[]string{"id", "created_at", "updated_at", "deleted_at", "amount", "seq", "total"},
		p.Forbidden)
	assert.Equal(t, []string{"contract_id"}, p.Candidates)

	assert.Equal(t, ReasonSystem, p.Reason("id"))
	assert.Equal(t, ReasonForbidden, p.Reason("amount"))
	assert.Equal(t, ReasonGenerated, p.Reason("seq"))
	assert.Equal(t, "", p.Reason("contract_id"))
}

func TestPolicyInvariants(t *testing.T) {
	for name, table := range ParseTables(widgetsDDL, "public") {
		p := NewPolicy(table, nil)
		for _, sys := range SystemColumns {
			assert.True(t, p.IsForbidden(sys), "%s: %s must be forbidden", name, sys)
		}
		for _, c := range p.Candidates {
			assert.False(t, p.IsForbidden(c), "%s: candidate %s is forbidden", name, c)
		}
	}
}

func column(t *testing.T, table *TableSchema, name string) ColumnDef {
	t.Helper()
	for _, c := range table.Columns {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("table %s has no column %s", table.Name, name)
	return ColumnDef{}
}
