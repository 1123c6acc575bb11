// Package locator finds insert_<table>(_input jsonb) functions in a schema snapshot
// and slices out each function's full source text.
package locator

import (
	"fmt"
	"regexp"

	"github.com/buildledger/rpcrewrite"
	"github.com/buildledger/rpcrewrite/pkg/scan"
	"github.com/buildledger/rpcrewrite/pkg/schema"
)

// asTagRe finds the line opening a function body. An empty tag ($$) is allowed.
var asTagRe = regexp.MustCompile(`\n\s*AS\s+(\$[^$\n]*\$)\s*\n`)

// FunctionRecord is one located insert function. It is never modified after Locate
// returns; rewriting produces a new body string.
type FunctionRecord struct {
	FunctionName string
	TableName    string
	StartOffset  int // position of CREATE FUNCTION
	EndOffset    int // position just past the terminating $tag$;
	BodyText     string
	Line         int // 1-based line of StartOffset
	Tag          string
}

func headerRe(schemaName string) *regexp.Regexp {
	q := regexp.QuoteMeta(schemaName)
	return regexp.MustCompile(`(?m)^CREATE FUNCTION ` + q + `\.(insert_[a-zA-Z0-9_]+)\(_input jsonb\) RETURNS SETOF ` + q + `\.([a-zA-Z0-9_]+)`)
}

// Locate returns every insert function header in src in source order, with body
// boundaries resolved. A header without an opening AS $tag$ line, or whose $tag$;
// terminator never follows the opening tag, fails the whole call.
//
// The terminator search is shallow: the first "$tag$;" after the opening tag ends
// the body, even if that text sits inside a nested string literal.
func Locate(src, schemaName string) ([]FunctionRecord, error) {
	if schemaName == "" {
		schemaName = schema.DefaultSchema
	}
	re := headerRe(schemaName)

	headers := scan.New(src)
	var records []FunctionRecord
	for {
		m, ok := headers.FindNext(re)
		if !ok {
			break
		}

		rec := FunctionRecord{
			FunctionName: m.Group(1),
			TableName:    m.Group(2),
			StartOffset:  m.Start,
			Line:         headers.LineAt(m.Start),
		}

		end, tag, err := bodyEnd(src, m.Start)
		if err != nil {
			return nil, fmt.Errorf("%s (table %s, line %d): %w", rec.FunctionName, rec.TableName, rec.Line, err)
		}
		rec.EndOffset = end
		rec.Tag = tag
		rec.BodyText = src[rec.StartOffset:rec.EndOffset]

		records = append(records, rec)
	}

	return records, nil
}

// bodyEnd returns the offset just past the $tag$; closing the function that starts
// at start, along with the tag itself.
func bodyEnd(src string, start int) (int, string, error) {
	s := scan.New(src)
	s.Seek(start)

	m, ok := s.FindNext(asTagRe)
	if !ok {
		return 0, "", rpcrewrite.ErrMissingDollarTag
	}
	tag := m.Group(1)
	terminator := tag + ";"

	// The AS match ends just past the newline after the tag.
	s.Seek(m.End)
	at := s.Index(terminator)
	if at < 0 {
		return 0, tag, fmt.Errorf("%w: %s", rpcrewrite.ErrUnterminatedFunction, terminator)
	}
	return at + len(terminator), tag, nil
}
