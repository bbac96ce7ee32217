package core

import (
	"strings"

	"pysetupinfo/internal/types"
)

// SplitExtras files requirements gated on "extra == '<name>'" under that
// extra, with the extra clause stripped. Everything else, including
// requirements gated only on python_version, stays unconditional with its
// marker intact.
func SplitExtras(reqs []ParsedRequirement) ([]types.Requirement, types.ExtrasTable) {
	var (
		unconditional []types.Requirement
		extras        types.ExtrasTable
	)
	for _, req := range reqs {
		names, rest, ok := req.Marker.Extras()
		if !ok {
			unconditional = append(unconditional, RequirementFromParsed(req))
			continue
		}
		stripped := req
		stripped.Marker = rest
		record := RequirementFromParsed(stripped)
		for _, name := range names {
			extras = extras.Add(name, record)
		}
	}
	return unconditional, extras
}

// ParseRequirementLines parses dependency lines, skipping blanks and
// comments. Lines that fail to parse are returned as errors alongside the
// successfully parsed ones.
func ParseRequirementLines(lines []string) ([]ParsedRequirement, []error) {
	var (
		parsed []ParsedRequirement
		errs   []error
	)
	for _, line := range lines {
		text := stripComment(line)
		if text == "" {
			continue
		}
		req, err := ParseRequirement(text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parsed = append(parsed, req)
	}
	return parsed, errs
}

func stripComment(line string) string {
	text := line
	for i := 0; i < len(text); i++ {
		if text[i] != '#' {
			continue
		}
		if i == 0 || text[i-1] == ' ' || text[i-1] == '\t' {
			text = text[:i]
			break
		}
	}
	return strings.TrimSpace(text)
}
