package types

import (
	"sort"
	"strings"
)

// Requirement is the canonical form of a single dependency declaration.
// Name is the normalized project key; Specifier carries everything else
// (extras, version specifier, URL and marker) in canonical text form.
type Requirement struct {
	Name      string `json:"name" yaml:"name"`
	Specifier string `json:"specifier,omitempty" yaml:"specifier,omitempty"`
}

// String renders the requirement as a PEP 508 line.
func (r Requirement) String() string {
	if r.Specifier == "" {
		return r.Name
	}
	if strings.HasPrefix(r.Specifier, "@") || strings.HasPrefix(r.Specifier, ";") {
		return r.Name + " " + r.Specifier
	}
	return r.Name + r.Specifier
}

func (r Requirement) IsZero() bool {
	return r.Name == "" && r.Specifier == ""
}

// RequirementSet is an insertion-ordered set of requirements deduplicated
// by full (name, specifier) equality. The zero value is an empty set.
type RequirementSet struct {
	items []Requirement
	index map[Requirement]struct{}
}

func NewRequirementSet(reqs ...Requirement) RequirementSet {
	var set RequirementSet
	return set.Union(reqs...)
}

// Union returns a new set holding the receiver's members followed by any
// of reqs not already present. The receiver is left untouched.
func (s RequirementSet) Union(reqs ...Requirement) RequirementSet {
	out := RequirementSet{
		items: append([]Requirement(nil), s.items...),
		index: make(map[Requirement]struct{}, len(s.items)+len(reqs)),
	}
	for _, req := range s.items {
		out.index[req] = struct{}{}
	}
	for _, req := range reqs {
		if req.IsZero() {
			continue
		}
		if _, ok := out.index[req]; ok {
			continue
		}
		out.index[req] = struct{}{}
		out.items = append(out.items, req)
	}
	return out
}

func (s RequirementSet) Contains(req Requirement) bool {
	_, ok := s.index[req]
	return ok
}

func (s RequirementSet) Len() int {
	return len(s.items)
}

// Items returns a copy of the members in insertion order.
func (s RequirementSet) Items() []Requirement {
	return append([]Requirement(nil), s.items...)
}

// Names returns the distinct requirement names, sorted.
func (s RequirementSet) Names() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, req := range s.items {
		if _, ok := seen[req.Name]; ok {
			continue
		}
		seen[req.Name] = struct{}{}
		names = append(names, req.Name)
	}
	sort.Strings(names)
	return names
}
