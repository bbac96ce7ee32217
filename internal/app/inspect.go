package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pysetupinfo/internal/core"
	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

// Inspect lists the packaging declarations of a package directory without
// running any of them.
func (s Service) Inspect(ctx context.Context, req InspectRequest) (InspectResult, error) {
	loc, err := s.Source.Locate(ctx, req.Location, req.Origin)
	if err != nil {
		return InspectResult{}, err
	}
	dir := loc.Dir
	decl, err := s.Source.Declarations(dir)
	if err != nil {
		return InspectResult{}, err
	}
	result := InspectResult{Declarations: decl}
	if !decl.Installable() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s has no setup.py, setup.cfg or pyproject.toml", dir))
	}
	for _, meta := range decl.MetadataDirs {
		if meta.Name == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s has no readable metadata", meta.Path))
			continue
		}
		if meta.Version == "" {
			continue
		}
		if !core.ValidVersion(meta.Version) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s declares non-PEP 440 version %q", meta.Path, meta.Version))
			continue
		}
		if warning := originMismatch(req.Origin, meta); warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
	}
	if warning := s.requiresPythonWarning(decl); warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}
	for _, warning := range result.Warnings {
		log.Ctx(ctx).Debug().Msg(warning)
	}
	return result, nil
}

// originMismatch reports a metadata directory of the requested project
// whose version falls outside the requested specifier.
func originMismatch(origin types.OriginRequirement, meta types.MetadataDirInfo) string {
	if origin.Specifier == "" {
		return ""
	}
	if origin.Name != "" && shared.NormalizePipName(origin.Name) != shared.NormalizePipName(meta.Name) {
		return ""
	}
	ok, err := core.SpecifierAllows(origin.Specifier, meta.Version)
	if err != nil {
		return fmt.Sprintf("%s: cannot check version %q against %q: %v", meta.Path, meta.Version, origin.Specifier, err)
	}
	if !ok {
		return fmt.Sprintf("%s version %s does not satisfy %s", meta.Path, meta.Version, origin.Specifier)
	}
	return ""
}

func (s Service) requiresPythonWarning(decl types.Declarations) string {
	if decl.Pyproject == "" || s.Extractors.BuildSystem == nil {
		return ""
	}
	project, found, err := s.Extractors.BuildSystem.ReadProject(decl.Pyproject)
	if err != nil || !found || project.PythonRequires == nil {
		return ""
	}
	if err := core.ValidateSpecifier(*project.PythonRequires); err != nil {
		return fmt.Sprintf("%s declares unparseable requires-python %q", decl.Pyproject, *project.PythonRequires)
	}
	return ""
}
