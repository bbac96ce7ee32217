package types

// Extra is one optional-feature group. Values are never mutated in
// place; With returns an evolved copy.
type Extra struct {
	Name         string
	Requirements RequirementSet
}

func (e Extra) With(reqs ...Requirement) Extra {
	return Extra{Name: e.Name, Requirements: e.Requirements.Union(reqs...)}
}

// ExtrasTable is an ordered mapping of extra name to its requirements.
// Names are case-sensitive. Declaring the same extra twice accumulates.
type ExtrasTable struct {
	extras []Extra
}

// Add returns a new table with reqs merged into the named extra, creating
// the extra (possibly empty) when it does not exist yet.
func (t ExtrasTable) Add(name string, reqs ...Requirement) ExtrasTable {
	out := ExtrasTable{extras: append([]Extra(nil), t.extras...)}
	for i, extra := range out.extras {
		if extra.Name == name {
			out.extras[i] = extra.With(reqs...)
			return out
		}
	}
	out.extras = append(out.extras, Extra{Name: name}.With(reqs...))
	return out
}

// Merge folds every extra of other into the table, in other's order.
func (t ExtrasTable) Merge(other ExtrasTable) ExtrasTable {
	out := t
	for _, extra := range other.extras {
		out = out.Add(extra.Name, extra.Requirements.Items()...)
	}
	return out
}

func (t ExtrasTable) Get(name string) (Extra, bool) {
	for _, extra := range t.extras {
		if extra.Name == name {
			return extra, true
		}
	}
	return Extra{}, false
}

func (t ExtrasTable) Names() []string {
	names := make([]string, 0, len(t.extras))
	for _, extra := range t.extras {
		names = append(names, extra.Name)
	}
	return names
}

func (t ExtrasTable) Extras() []Extra {
	return append([]Extra(nil), t.extras...)
}

func (t ExtrasTable) Len() int {
	return len(t.extras)
}
