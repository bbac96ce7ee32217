package adapters

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/rs/zerolog/log"

	"pysetupinfo/internal/core"
	"pysetupinfo/internal/types"
)

// coreMetadata holds the headers of a METADATA / PKG-INFO file that
// matter for resolution.
type coreMetadata struct {
	Name           string
	Version        string
	RequiresPython string
	RequiresDist   []string
	ProvidesExtra  []string
}

// parseCoreMetadata reads the header block of an email-style core
// metadata file. Parsing stops at the first blank line (the description
// body). Folded continuation lines are appended to the previous header.
func parseCoreMetadata(content []byte) coreMetadata {
	var (
		meta    coreMetadata
		key     string
		value   string
		hasPrev bool
	)
	flush := func() {
		if !hasPrev {
			return
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(key) {
		case "name":
			meta.Name = value
		case "version":
			meta.Version = value
		case "requires-python":
			meta.RequiresPython = value
		case "requires-dist":
			meta.RequiresDist = append(meta.RequiresDist, value)
		case "provides-extra":
			meta.ProvidesExtra = append(meta.ProvidesExtra, value)
		}
		hasPrev = false
	}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			if hasPrev {
				value += " " + strings.TrimSpace(line)
			}
			continue
		}
		flush()
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key = strings.TrimSpace(line[:idx])
		value = line[idx+1:]
		hasPrev = true
	}
	flush()
	return meta
}

// partial converts core metadata into a partial record, filing
// extra-gated requirements under their extras.
func (m coreMetadata) partial(source types.MetadataSource) types.PartialMetadata {
	parsed, errs := core.ParseRequirementLines(m.RequiresDist)
	for _, err := range errs {
		log.Debug().Err(err).Str("name", m.Name).Msg("skipping unparsable Requires-Dist")
	}
	requires, extras := core.SplitExtras(parsed)
	for _, name := range m.ProvidesExtra {
		extras = extras.Add(name)
	}
	out := types.PartialMetadata{
		Source:   source,
		Requires: requires,
	}
	if out.Requires == nil {
		out.Requires = []types.Requirement{}
	}
	if m.Name != "" {
		out.Name = types.StringPtr(m.Name)
	}
	if m.Version != "" {
		out.Version = types.StringPtr(m.Version)
	}
	if m.RequiresPython != "" {
		out.PythonRequires = types.StringPtr(m.RequiresPython)
	}
	if extras.Len() > 0 {
		out.Extras = &extras
	}
	return out
}

// parseRequiresTxt reads an egg-info requires.txt. Section headers are
// "[extra]", "[:marker]" or "[extra:marker]"; a marker-only section is
// folded into the unconditional list with its marker attached.
func parseRequiresTxt(content []byte) ([]types.Requirement, types.ExtrasTable) {
	var (
		requires []types.Requirement
		extras   types.ExtrasTable
		extra    string
		marker   *core.Marker
	)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			extra, marker = parseRequiresSection(line[1 : len(line)-1])
			if extra != "" {
				extras = extras.Add(extra)
			}
			continue
		}
		parsed, err := core.ParseRequirement(line)
		if err != nil {
			log.Debug().Err(err).Str("line", line).Msg("skipping unparsable requires.txt line")
			continue
		}
		record := core.RequirementFromParsed(parsed.WithMarker(marker))
		if extra == "" {
			requires = append(requires, record)
			continue
		}
		extras = extras.Add(extra, record)
	}
	return requires, extras
}

func parseRequiresSection(header string) (string, *core.Marker) {
	name, markerText, found := strings.Cut(header, ":")
	name = strings.TrimSpace(name)
	if !found || strings.TrimSpace(markerText) == "" {
		return name, nil
	}
	marker, err := core.ParseMarker(markerText)
	if err != nil {
		log.Debug().Err(err).Str("section", header).Msg("ignoring unparsable requires.txt section marker")
		return name, nil
	}
	return name, marker
}
