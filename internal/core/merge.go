package core

import (
	"sort"

	"pysetupinfo/internal/types"
)

// metadataState is the accumulated view of a package. merge never mutates
// the receiver.
type metadataState struct {
	name           *string
	version        *string
	pythonRequires *string
	buildBackend   *string
	requirements   types.RequirementSet
	buildRequires  []string
	setupRequires  []string
	extras         types.ExtrasTable
	raw            *types.PartialMetadata
}

func (s metadataState) merge(p types.PartialMetadata) metadataState {
	out := s
	out.name = firstSet(s.name, p.Name)
	out.version = firstSet(s.version, p.Version)
	out.pythonRequires = firstSet(s.pythonRequires, p.PythonRequires)
	out.buildBackend = firstSet(s.buildBackend, p.BuildBackend)
	out.requirements = s.requirements.Union(p.Requires...)
	out.buildRequires = unionStrings(s.buildRequires, p.BuildRequires)
	out.setupRequires = unionStrings(s.setupRequires, p.SetupRequires)
	if p.Extras != nil {
		out.extras = s.extras.Merge(*p.Extras)
	}
	if !p.IsEmpty() {
		raw := p
		out.raw = &raw
	}
	return out
}

func (s metadataState) hasName() bool {
	return s.name != nil
}

func (s metadataState) hasRequirements() bool {
	return s.requirements.Len() > 0
}

// withOriginExtras folds the requirements of the requested extras into the
// unconditional set.
func (s metadataState) withOriginExtras(names []string) metadataState {
	out := s
	for _, name := range names {
		extra, ok := s.extras.Get(name)
		if !ok {
			continue
		}
		out.requirements = out.requirements.Union(extra.Requirements.Items()...)
	}
	return out
}

func (s metadataState) output(baseDir string) types.SetupInfo {
	info := types.SetupInfo{
		Name:           deref(s.name),
		Version:        deref(s.version),
		BaseDir:        baseDir,
		BuildBackend:   deref(s.buildBackend),
		PythonRequires: deref(s.pythonRequires),
	}
	if len(s.buildRequires) > 0 {
		info.BuildRequires = append([]string(nil), s.buildRequires...)
	}
	if len(s.setupRequires) > 0 {
		info.SetupRequires = append([]string(nil), s.setupRequires...)
	}
	if s.requirements.Len() > 0 {
		info.Requires = map[string]string{}
		for _, req := range s.requirements.Items() {
			if _, ok := info.Requires[req.Name]; ok {
				continue
			}
			info.Requires[req.Name] = req.Specifier
		}
	}
	if s.extras.Len() > 0 {
		info.Extras = map[string][]string{}
		for _, extra := range s.extras.Extras() {
			lines := []string{}
			for _, req := range extra.Requirements.Items() {
				lines = append(lines, req.String())
			}
			sort.Strings(lines)
			info.Extras[extra.Name] = lines
		}
	}
	return info
}

func firstSet(current *string, next *string) *string {
	if current != nil {
		return current
	}
	if next == nil || *next == "" {
		return nil
	}
	value := *next
	return &value
}

func unionStrings(current []string, next []string) []string {
	if len(next) == 0 {
		return current
	}
	out := append([]string(nil), current...)
	seen := make(map[string]struct{}, len(current))
	for _, item := range current {
		seen[item] = struct{}{}
	}
	for _, item := range next {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
