package schema

// Reasons a column is stripped from insert input, as shown in the audit.
const (
	ReasonSystem    = "system field"
	ReasonGenerated = "identity/generated"
	ReasonForbidden = "forbidden"
)

// Policy is the per-table split between columns caller input may set and columns
// that are always stripped.
type Policy struct {
	// Forbidden holds SystemColumns, then any configured extra columns, then the
	// table's generated/identity columns, without duplicates. It always contains
	// every SystemColumns entry even when the table lacks those columns.
	Forbidden []string

	// Candidates are the table's remaining columns in declaration order.
	Candidates []string

	// Defaults are all columns with a DEFAULT clause, forbidden or not.
	Defaults []string

	// GeneratedIdentity are the table's generated or identity columns.
	GeneratedIdentity []string

	forbidden map[string]string // column -> reason
}

// NewPolicy computes the column policy for t. extra names additional columns to strip
// on top of SystemColumns.
func NewPolicy(t *TableSchema, extra []string) Policy {
	p := Policy{forbidden: make(map[string]string)}

	add := func(name, reason string) {
		if _, seen := p.forbidden[name]; seen {
			return
		}
		p.forbidden[name] = reason
		p.Forbidden = append(p.Forbidden, name)
	}

	for _, name := range SystemColumns {
		add(name, ReasonSystem)
	}
	for _, name := range extra {
		add(name, ReasonForbidden)
	}
	for _, c := range t.Columns {
		if c.Generated || c.Identity {
			p.GeneratedIdentity = append(p.GeneratedIdentity, c.Name)
			add(c.Name, ReasonGenerated)
		}
	}

	for _, c := range t.Columns {
		if c.HasDefault {
			p.Defaults = append(p.Defaults, c.Name)
		}
		if _, ok := p.forbidden[c.Name]; !ok {
			p.Candidates = append(p.Candidates, c.Name)
		}
	}

	return p
}

// IsForbidden reports whether name is stripped from insert input.
func (p Policy) IsForbidden(name string) bool {
	_, ok := p.forbidden[name]
	return ok
}

// Reason returns why name is forbidden, or "" if it is not. System columns win over
// generated/identity, which win over configured extras.
func (p Policy) Reason(name string) string {
	if _, ok := p.forbidden[name]; !ok {
		return ""
	}
	for _, s := range SystemColumns {
		if s == name {
			return ReasonSystem
		}
	}
	for _, g := range p.GeneratedIdentity {
		if g == name {
			return ReasonGenerated
		}
	}
	return ReasonForbidden
}

// DefaultEligible returns the default-bearing columns that are not forbidden. These
// take their database default when the key is absent from the input.
func (p Policy) DefaultEligible() []string {
	var out []string
	for _, c := range p.Defaults {
		if !p.IsForbidden(c) {
			out = append(out, c)
		}
	}
	return out
}
