package report

// Delta renders the condensed run summary used to track changes across runs.
func Delta(s Summary) string {
	var l lines
	l.add("# Insert RPC Rewrite Delta")
	l.blank()
	l.add("- Source: %s", s.source())
	l.add("- Total insert_*(_input jsonb): %d", s.Total)
	l.add("- Rewritten (populate-star targets): %d", len(s.Rewrites))
	l.add("- Outliers unchanged: %d", len(s.Outliers))
	l.blank()
	l.add("## Outliers unchanged")
	for _, o := range s.Outliers {
		l.add("- %s (line %d)", o.FunctionName, o.Line)
	}
	return l.String()
}
