package report

import "github.com/buildledger/rpcrewrite/pkg/rewriter"

const requiredColumnNote = "enforced by DB constraints at runtime"

// Audit renders the per-function review document: counts, the outliers with their
// tables and source lines, then one section per rewritten function.
func Audit(s Summary) string {
	var l lines
	l.add("# Insert RPC Rewrite Audit")
	l.blank()
	l.add("- Total insert_*(_input jsonb) functions: %d", s.Total)
	l.add("- Populate-star rewrites generated: %d", len(s.Rewrites))
	l.add("- Outliers (not rewritten): %d", len(s.Outliers))
	l.blank()

	l.add("## Outliers")
	l.blank()
	for _, o := range s.Outliers {
		l.add("- %s (table: %s, line: %d)", o.FunctionName, o.TableName, o.Line)
	}
	l.blank()

	l.add("## Rewritten Functions")
	l.blank()
	for _, r := range s.Rewrites {
		l.add("### %s -> %s.%s", r.Function.FunctionName, s.schema(), r.Function.TableName)
		l.add("- Line: %d", r.SourceLineNumber)
		l.add("- Forbidden columns stripped/omitted: %s", list(forbiddenWithReasons(r)))
		l.add("- Defaulted columns omitted when key absent: %s", list(r.Policy.DefaultEligible()))
		l.add("- Columns included when key present: %s", list(r.CandidateColumns))
		l.add("- Required-column missing behavior: %s", requiredColumnNote)
		l.blank()
	}

	return l.String()
}

func forbiddenWithReasons(r *rewriter.RewriteResult) []string {
	out := make([]string, 0, len(r.ForbiddenColumns))
	for _, c := range r.ForbiddenColumns {
		out = append(out, c+" ("+r.Policy.Reason(c)+")")
	}
	return out
}
