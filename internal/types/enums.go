package types

type ArtifactKind string

const (
	ArtifactKindWheel ArtifactKind = "wheel"
	ArtifactKindSdist ArtifactKind = "sdist"
)

// MetadataLayout is the on-disk convention of an installed-metadata
// directory.
type MetadataLayout string

const (
	MetadataLayoutEggInfo  MetadataLayout = "egg-info"
	MetadataLayoutDistInfo MetadataLayout = "dist-info"
)

// Suffix is the directory-name suffix of the layout.
func (l MetadataLayout) Suffix() string {
	return "." + string(l)
}

type OutputFormat string

const (
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

const (
	SetupScriptFile     = "setup.py"
	SetupConfigFile     = "setup.cfg"
	PyprojectFile       = "pyproject.toml"
	MetadataOutputDir   = "reqlib-metadata"
	DefaultBuildBackend = "setuptools.build_meta:__legacy__"
)

// DefaultBuildRequires is the dependency set assumed when no backend
// descriptor declares one.
func DefaultBuildRequires() []string {
	return []string{"setuptools>=40.8.0", "wheel"}
}
