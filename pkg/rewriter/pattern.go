package rewriter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/buildledger/rpcrewrite/pkg/scan"
)

// naiveTemplate is the insert-everything statement generated for every table before
// this tool existed. %[1]s is the schema-qualified table name.
const naiveTemplate = "INSERT INTO %[1]s SELECT (jsonb_populate_record(NULL::%[1]s, _input)).* RETURNING * INTO _new_row;"

// Matcher finds the naive populate-record insert inside a function body. Patterns
// are compiled once per table.
type Matcher struct {
	schemaName string
	patterns   map[string]*regexp.Regexp
}

// NewMatcher returns a Matcher for functions in schemaName.
func NewMatcher(schemaName string) *Matcher {
	return &Matcher{schemaName: schemaName, patterns: make(map[string]*regexp.Regexp)}
}

// span locates a matched statement. Start includes the statement's leading
// horizontal whitespace, recorded separately in Indent.
type span struct {
	Start       int
	End         int
	Indent      string
	AtLineStart bool
}

// Matches reports whether body contains the naive insert for table.
func (m *Matcher) Matches(body, table string) bool {
	_, ok := m.find(body, table)
	return ok
}

func (m *Matcher) find(body, table string) (span, bool) {
	match, ok := scan.New(body).FindNext(m.pattern(table))
	if !ok {
		return span{}, false
	}
	start := match.Start
	return span{
		Start:       start,
		End:         match.End,
		Indent:      match.Group(1),
		AtLineStart: start == 0 || body[start-1] == '\n',
	}, true
}

// pattern builds the table's template regexp. Every space in the template accepts
// any run of whitespace, so line-wrapped dumps of the same statement still match.
func (m *Matcher) pattern(table string) *regexp.Regexp {
	if re, ok := m.patterns[table]; ok {
		return re
	}
	words := strings.Fields(fmt.Sprintf(naiveTemplate, m.schemaName+"."+table))
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	re := regexp.MustCompile(`([ \t]*)` + strings.Join(words, `\s+`))
	m.patterns[table] = re
	return re
}
