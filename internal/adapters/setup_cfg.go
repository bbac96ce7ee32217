package adapters

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
	"github.com/rs/zerolog/log"

	"pysetupinfo/internal/core"
	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

const (
	sectionMetadata      = "metadata"
	sectionOptions       = "options"
	sectionExtrasRequire = "options.extras_require"
)

// SetupCfgAdapter extracts metadata from a declarative setup.cfg.
type SetupCfgAdapter struct {
	Runner ports.CommandRunnerPort
	Python string
}

func NewSetupCfgAdapter(runner ports.CommandRunnerPort, python string) SetupCfgAdapter {
	if strings.TrimSpace(python) == "" {
		python = "python3"
	}
	return SetupCfgAdapter{Runner: runner, Python: python}
}

// Extract parses path. Sections that are absent stay unset in the result.
// A broken file: or attr: directive aborts extraction with an
// IndirectionError; an unparsable requirement list only drops that field.
func (a SetupCfgAdapter) Extract(ctx context.Context, path string) (types.PartialMetadata, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		IgnoreInlineComment:        true,
		SkipUnrecognizableLines:    true,
		KeyValueDelimiters:         "=",
	}, path)
	if err != nil {
		return types.PartialMetadata{}, shared.ParseError("failed to parse "+path, err)
	}

	resolver := directiveResolver{
		baseDir: filepath.Dir(path),
		runner:  a.Runner,
		python:  a.Python,
	}
	if value, ok := sectionValue(cfg, sectionOptions, "package_dir"); ok {
		resolver.packageDir = parsePackageDir(value)
	}

	partial := types.PartialMetadata{Source: types.MetadataSourceConfig}
	scalars := []struct {
		section string
		key     string
		target  **string
	}{
		{section: sectionMetadata, key: "name", target: &partial.Name},
		{section: sectionMetadata, key: "version", target: &partial.Version},
		{section: sectionOptions, key: "python_requires", target: &partial.PythonRequires},
	}
	for _, field := range scalars {
		raw, ok := sectionValue(cfg, field.section, field.key)
		if !ok {
			continue
		}
		value, err := resolver.resolve(ctx, field.section+"."+field.key, raw)
		if err != nil {
			return types.PartialMetadata{}, err
		}
		value = strings.TrimSpace(value)
		*field.target = &value
	}
	if partial.PythonRequires != nil {
		if err := core.ValidateSpecifier(*partial.PythonRequires); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("ignoring invalid python_requires")
			partial.PythonRequires = nil
		}
	}

	if raw, ok := sectionValue(cfg, sectionOptions, "install_requires"); ok {
		lines, err := a.listValue(ctx, resolver, "options.install_requires", raw)
		if err != nil {
			return types.PartialMetadata{}, err
		}
		if parsed, ok := parseRequirementField(ctx, path, "options.install_requires", lines); ok {
			requires, extras := core.SplitExtras(parsed)
			partial.Requires = append([]types.Requirement{}, requires...)
			if extras.Len() > 0 {
				partial.Extras = &extras
			}
		}
	}
	for _, key := range []string{"setup_requires", "build_requires"} {
		raw, ok := sectionValue(cfg, sectionOptions, key)
		if !ok {
			continue
		}
		lines, err := a.listValue(ctx, resolver, "options."+key, raw)
		if err != nil {
			return types.PartialMetadata{}, err
		}
		if _, ok := parseRequirementField(ctx, path, "options."+key, lines); !ok {
			continue
		}
		if key == "setup_requires" {
			partial.SetupRequires = append([]string{}, lines...)
		} else {
			partial.BuildRequires = append([]string{}, lines...)
		}
	}

	if cfg.HasSection(sectionExtrasRequire) {
		var extras types.ExtrasTable
		if partial.Extras != nil {
			extras = *partial.Extras
		}
		for _, key := range cfg.Section(sectionExtrasRequire).Keys() {
			field := sectionExtrasRequire + "." + key.Name()
			lines, err := a.listValue(ctx, resolver, field, key.Value())
			if err != nil {
				return types.PartialMetadata{}, err
			}
			parsed, ok := parseRequirementField(ctx, path, field, lines)
			if !ok {
				continue
			}
			name, marker := parseRequiresSection(key.Name())
			extras = extras.Add(name)
			for _, req := range parsed {
				extras = extras.Add(name, core.RequirementFromParsed(req.WithMarker(marker)))
			}
		}
		partial.Extras = &extras
	}
	return partial, nil
}

// listValue splits a multi-line value, expanding a leading file: directive
// into the referenced file's lines.
func (a SetupCfgAdapter) listValue(ctx context.Context, resolver directiveResolver, field string, raw string) ([]string, error) {
	if strings.HasPrefix(strings.TrimSpace(raw), fileDirective) {
		content, err := resolver.resolve(ctx, field, raw)
		if err != nil {
			return nil, err
		}
		raw = content
	}
	return splitListValue(raw), nil
}

// parseRequirementField parses every line of one field. Any bad line
// drops the whole field.
func parseRequirementField(ctx context.Context, path string, field string, lines []string) ([]core.ParsedRequirement, bool) {
	parsed, errs := core.ParseRequirementLines(lines)
	if len(errs) > 0 {
		log.Ctx(ctx).Warn().Err(errs[0]).Str("path", path).Str("field", field).Msg("skipping field with unparsable requirement")
		return nil, false
	}
	return parsed, true
}

func sectionValue(cfg *ini.File, section string, key string) (string, bool) {
	if !cfg.HasSection(section) {
		return "", false
	}
	sec := cfg.Section(section)
	if !sec.HasKey(key) {
		return "", false
	}
	return sec.Key(key).Value(), true
}

// splitListValue returns the non-empty, non-comment lines of a
// multi-line value.
func splitListValue(value string) []string {
	var lines []string
	for _, raw := range strings.Split(value, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

var _ ports.ConfigExtractorPort = SetupCfgAdapter{}
