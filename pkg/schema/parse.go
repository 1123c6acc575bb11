package schema

import (
	"regexp"
	"strings"

	"github.com/buildledger/rpcrewrite/pkg/scan"
)

var (
	constraintLineRe = regexp.MustCompile(`(?i)^(CONSTRAINT|PRIMARY KEY|UNIQUE|CHECK|FOREIGN KEY|EXCLUDE)\b`)
	columnLineRe     = regexp.MustCompile(`^\s{4}([a-zA-Z_][a-zA-Z0-9_]*)\s+(.+?)(,)?$`)

	hasDefaultRe = regexp.MustCompile(`(?i)\bDEFAULT\b`)
	notNullRe    = regexp.MustCompile(`(?i)\bNOT NULL\b`)
	generatedRe  = regexp.MustCompile(`(?i)\bGENERATED\b\s+ALWAYS\b`)
	identityRe   = regexp.MustCompile(`(?i)\bGENERATED\b\s+(?:ALWAYS|BY\s+DEFAULT)\s+AS\s+IDENTITY\b`)
)

func tableStartRe(schemaName string) *regexp.Regexp {
	return regexp.MustCompile(`^CREATE TABLE ` + regexp.QuoteMeta(schemaName) + `\.([a-zA-Z0-9_]+) \($`)
}

// ParseTables collects every CREATE TABLE <schemaName>.<name> ( ... ); block in src.
//
// The reader is line oriented: a block opens on a line that is exactly the CREATE
// TABLE header and closes on the first line that trims to ");". Constraint lines are
// skipped. Column lines must be indented by four spaces; anything else inside a block
// is ignored without error. A table defined twice keeps its last definition.
func ParseTables(src, schemaName string) Tables {
	if schemaName == "" {
		schemaName = DefaultSchema
	}
	startRe := tableStartRe(schemaName)

	tables := Tables{}
	s := scan.New(src)

	var (
		inTable bool
		current string
		buffer  []string
	)
	for {
		line, ok := s.NextLine()
		if !ok {
			break
		}

		if m := startRe.FindStringSubmatch(line); m != nil {
			inTable = true
			current = m[1]
			buffer = buffer[:0]
			continue
		}
		if !inTable {
			continue
		}

		if strings.TrimSpace(line) == ");" {
			tables[current] = &TableSchema{Name: current, Columns: parseColumns(buffer)}
			inTable = false
			current = ""
			buffer = buffer[:0]
			continue
		}

		buffer = append(buffer, line)
	}

	return tables
}

func parseColumns(lines []string) []ColumnDef {
	cols := make([]ColumnDef, 0, len(lines))
	for _, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || constraintLineRe.MatchString(trimmed) {
			continue
		}
		m := columnLineRe.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		cols = append(cols, parseColumn(m[1], m[2]))
	}
	return cols
}

func parseColumn(name, def string) ColumnDef {
	return ColumnDef{
		Name:           name,
		HasDefault:     hasDefaultRe.MatchString(def),
		NotNull:        notNullRe.MatchString(def),
		Generated:      generatedRe.MatchString(def),
		Identity:       identityRe.MatchString(def),
		DefinitionText: def,
	}
}
