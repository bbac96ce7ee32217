package core

import (
	"regexp"
	"sort"
	"strings"

	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

var (
	requirementNamePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)
	extraNamePattern       = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	specifierClausePattern = regexp.MustCompile(`^(===|==|!=|<=|>=|~=|<|>)\s*(\S+)$`)
)

// ParsedRequirement is a PEP 508 dependency line broken into its parts.
type ParsedRequirement struct {
	Name      string
	Extras    []string
	Specifier string
	URL       string
	Marker    *Marker
}

// Key is the normalized project name.
func (r ParsedRequirement) Key() string {
	return shared.NormalizePipName(r.Name)
}

// SpecifierText renders everything after the name in canonical form.
func (r ParsedRequirement) SpecifierText() string {
	var b strings.Builder
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	if r.URL != "" {
		b.WriteString("@ " + r.URL)
		if r.Marker != nil {
			b.WriteString(" ")
		}
	} else {
		b.WriteString(r.Specifier)
	}
	if r.Marker != nil {
		b.WriteString("; " + r.Marker.String())
	}
	return b.String()
}

func (r ParsedRequirement) String() string {
	return RequirementFromParsed(r).String()
}

// WithMarker returns a copy whose marker is the conjunction of the
// existing marker and extra.
func (r ParsedRequirement) WithMarker(extra *Marker) ParsedRequirement {
	out := r
	out.Marker = r.Marker.And(extra)
	return out
}

// ParseRequirement parses a single PEP 508 dependency line.
func ParseRequirement(line string) (ParsedRequirement, error) {
	text := strings.TrimSpace(line)
	if text == "" {
		return ParsedRequirement{}, shared.ParseError("empty requirement", nil)
	}
	name := requirementNamePattern.FindString(text)
	if name == "" {
		return ParsedRequirement{}, shared.ParseError("invalid requirement name in "+quote(text), nil)
	}
	req := ParsedRequirement{Name: name}
	rest := strings.TrimSpace(text[len(name):])

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return ParsedRequirement{}, shared.ParseError("unterminated extras in "+quote(text), nil)
		}
		extras, err := parseExtrasList(rest[1:end])
		if err != nil {
			return ParsedRequirement{}, shared.ParseError("invalid extras in "+quote(text), err)
		}
		req.Extras = extras
		rest = strings.TrimSpace(rest[end+1:])
	}

	var markerText string
	if strings.HasPrefix(rest, "@") {
		rest = strings.TrimSpace(rest[1:])
		url := rest
		if idx := strings.IndexAny(rest, " \t"); idx >= 0 {
			url = rest[:idx]
			rest = strings.TrimSpace(rest[idx:])
			if !strings.HasPrefix(rest, ";") {
				return ParsedRequirement{}, shared.ParseError("unexpected text after URL in "+quote(text), nil)
			}
			markerText = rest[1:]
		}
		if url == "" {
			return ParsedRequirement{}, shared.ParseError("missing URL in "+quote(text), nil)
		}
		req.URL = url
	} else {
		specText := rest
		if idx := strings.IndexByte(rest, ';'); idx >= 0 {
			specText = rest[:idx]
			markerText = rest[idx+1:]
			if strings.TrimSpace(markerText) == "" {
				return ParsedRequirement{}, shared.ParseError("empty marker in "+quote(text), nil)
			}
		}
		spec, err := normalizeSpecifier(specText)
		if err != nil {
			return ParsedRequirement{}, shared.ParseError("invalid version specifier in "+quote(text), err)
		}
		req.Specifier = spec
	}

	if strings.TrimSpace(markerText) != "" {
		marker, err := ParseMarker(markerText)
		if err != nil {
			return ParsedRequirement{}, shared.ParseError("invalid marker in "+quote(text), err)
		}
		req.Marker = marker
	}
	return req, nil
}

// RequirementFromString parses a dependency line into its canonical record.
func RequirementFromString(line string) (types.Requirement, error) {
	parsed, err := ParseRequirement(line)
	if err != nil {
		return types.Requirement{}, err
	}
	return RequirementFromParsed(parsed), nil
}

// RequirementFromParsed adapts a parsed requirement into the canonical
// record, keyed by the normalized project name.
func RequirementFromParsed(req ParsedRequirement) types.Requirement {
	return types.Requirement{
		Name:      req.Key(),
		Specifier: req.SpecifierText(),
	}
}

// ValidateSpecifier checks a comma-separated PEP 440 specifier set.
func ValidateSpecifier(text string) error {
	_, err := normalizeSpecifier(text)
	return err
}

func normalizeSpecifier(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	if text == "" {
		return "", nil
	}
	var clauses []string
	for _, raw := range strings.Split(text, ",") {
		clause := strings.TrimSpace(raw)
		match := specifierClausePattern.FindStringSubmatch(clause)
		if match == nil {
			return "", shared.ParseError("invalid specifier clause "+quote(clause), nil)
		}
		normalized := match[1] + match[2]
		if match[1] != "===" {
			if _, err := versions.pepSpec(normalized); err != nil {
				return "", shared.ParseError("invalid specifier clause "+quote(clause), err)
			}
		}
		clauses = append(clauses, normalized)
	}
	return strings.Join(clauses, ","), nil
}

func parseExtrasList(text string) ([]string, error) {
	var extras []string
	for _, raw := range strings.Split(text, ",") {
		extra := strings.TrimSpace(raw)
		if extra == "" {
			continue
		}
		if !extraNamePattern.MatchString(extra) {
			return nil, shared.ParseError("invalid extra name "+quote(extra), nil)
		}
		extras = append(extras, extra)
	}
	sort.Strings(extras)
	return extras, nil
}

func quote(text string) string {
	return `"` + text + `"`
}
