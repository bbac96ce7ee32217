package adapters

import (
	"errors"
	"io/fs"
	"os"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"pysetupinfo/internal/core"
	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

// PyprojectAdapter reads the build-system and project tables of a
// pyproject.toml.
type PyprojectAdapter struct{}

func NewPyprojectAdapter() PyprojectAdapter {
	return PyprojectAdapter{}
}

type pyprojectFile struct {
	BuildSystem *types.BuildSystem `toml:"build-system"`
	Project     *projectTable      `toml:"project"`
}

type projectTable struct {
	Name                 string              `toml:"name"`
	Version              string              `toml:"version"`
	RequiresPython       string              `toml:"requires-python"`
	Dependencies         []string            `toml:"dependencies"`
	OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	Dynamic              []string            `toml:"dynamic"`
}

// ReadBuildSystem returns the declared build system, filling in the
// default setuptools backend and requirements where nothing is declared.
func (a PyprojectAdapter) ReadBuildSystem(path string) (types.BuildSystem, error) {
	file, found, err := decodePyproject(path)
	if err != nil {
		return types.BuildSystem{}, err
	}
	if !found || file.BuildSystem == nil {
		return types.BuildSystem{
			Requires:     types.DefaultBuildRequires(),
			BuildBackend: types.DefaultBuildBackend,
		}, nil
	}
	buildSystem := *file.BuildSystem
	if buildSystem.BuildBackend == "" {
		buildSystem.BuildBackend = types.DefaultBuildBackend
		if buildSystem.Requires == nil {
			buildSystem.Requires = types.DefaultBuildRequires()
		}
	}
	if buildSystem.Requires == nil {
		buildSystem.Requires = []string{}
	}
	return buildSystem, nil
}

// ReadProject returns the static fields of a [project] table. Fields named
// in "dynamic" are left unset.
func (a PyprojectAdapter) ReadProject(path string) (types.PartialMetadata, bool, error) {
	file, found, err := decodePyproject(path)
	if err != nil || !found || file.Project == nil {
		return types.PartialMetadata{}, false, err
	}
	project := file.Project
	partial := types.PartialMetadata{Source: types.MetadataSourcePyproject}
	if project.Name != "" {
		partial.Name = types.StringPtr(project.Name)
	}
	if project.Version != "" && !project.isDynamic("version") {
		partial.Version = types.StringPtr(project.Version)
	}
	if project.RequiresPython != "" && !project.isDynamic("requires-python") {
		partial.PythonRequires = types.StringPtr(project.RequiresPython)
	}
	if project.Dependencies != nil && !project.isDynamic("dependencies") {
		parsed, errs := core.ParseRequirementLines(project.Dependencies)
		for _, perr := range errs {
			log.Warn().Err(perr).Str("path", path).Msg("skipping unparsable project dependency")
		}
		requires, extras := core.SplitExtras(parsed)
		partial.Requires = append([]types.Requirement{}, requires...)
		if extras.Len() > 0 {
			partial.Extras = &extras
		}
	}
	if project.OptionalDependencies != nil && !project.isDynamic("optional-dependencies") {
		var extras types.ExtrasTable
		if partial.Extras != nil {
			extras = *partial.Extras
		}
		for _, name := range sortedKeys(project.OptionalDependencies) {
			parsed, errs := core.ParseRequirementLines(project.OptionalDependencies[name])
			for _, perr := range errs {
				log.Warn().Err(perr).Str("extra", name).Msg("skipping unparsable optional dependency")
			}
			extras = extras.Add(name)
			for _, req := range parsed {
				extras = extras.Add(name, core.RequirementFromParsed(req))
			}
		}
		partial.Extras = &extras
	}
	return partial, true, nil
}

func (p projectTable) isDynamic(field string) bool {
	return slices.Contains(p.Dynamic, field)
}

func decodePyproject(path string) (pyprojectFile, bool, error) {
	var file pyprojectFile
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return file, false, nil
		}
		return file, false, shared.ParseError("failed to read "+path, err)
	}
	if _, err := toml.Decode(string(content), &file); err != nil {
		return file, false, shared.ParseError("failed to parse "+path, err)
	}
	return file, true, nil
}

var _ ports.BuildSystemPort = PyprojectAdapter{}
