package types

// MetadataSource names the extractor that produced a partial record.
type MetadataSource string

const (
	MetadataSourceConfig    MetadataSource = "setup.cfg"
	MetadataSourcePyproject MetadataSource = "pyproject.toml"
	MetadataSourceWheel     MetadataSource = "wheel"
	MetadataSourceInstalled MetadataSource = "installed"
	MetadataSourceLegacy    MetadataSource = "setup.py"
	MetadataSourceOrigin    MetadataSource = "origin"
)

// PartialMetadata is what one extractor learned about a package. Nil
// pointers and nil slices mean "not declared"; a non-nil empty slice means
// "declared empty".
type PartialMetadata struct {
	Source         MetadataSource
	Name           *string
	Version        *string
	PythonRequires *string
	BuildBackend   *string
	Requires       []Requirement
	BuildRequires  []string
	SetupRequires  []string
	Extras         *ExtrasTable
}

func (p PartialMetadata) IsEmpty() bool {
	return p.Name == nil &&
		p.Version == nil &&
		p.PythonRequires == nil &&
		p.BuildBackend == nil &&
		p.Requires == nil &&
		p.BuildRequires == nil &&
		p.SetupRequires == nil &&
		p.Extras == nil
}

// HasIdentity reports whether the record names the project.
func (p PartialMetadata) HasIdentity() bool {
	return p.Name != nil && *p.Name != ""
}

func StringPtr(value string) *string {
	return &value
}

// BuildSystem is the [build-system] table of a backend descriptor.
type BuildSystem struct {
	Requires     []string `toml:"requires"`
	BuildBackend string   `toml:"build-backend"`
	BackendPath  []string `toml:"backend-path"`
}
