package types

// Declarations lists the packaging files found in a package directory.
type Declarations struct {
	BaseDir       string            `json:"base_dir" yaml:"base_dir"`
	SetupScript   string            `json:"setup_py,omitempty" yaml:"setup_py,omitempty"`
	SetupConfig   string            `json:"setup_cfg,omitempty" yaml:"setup_cfg,omitempty"`
	Pyproject     string            `json:"pyproject_toml,omitempty" yaml:"pyproject_toml,omitempty"`
	MetadataDirs  []MetadataDirInfo `json:"metadata_dirs,omitempty" yaml:"metadata_dirs,omitempty"`
	BuildBackend  string            `json:"build_backend,omitempty" yaml:"build_backend,omitempty"`
	BuildRequires []string          `json:"build_requires,omitempty" yaml:"build_requires,omitempty"`
}

func (d Declarations) Installable() bool {
	return d.SetupScript != "" || d.SetupConfig != "" || d.Pyproject != ""
}

type MetadataDirInfo struct {
	Path    string         `json:"path" yaml:"path"`
	Layout  MetadataLayout `json:"layout" yaml:"layout"`
	Name    string         `json:"name,omitempty" yaml:"name,omitempty"`
	Version string         `json:"version,omitempty" yaml:"version,omitempty"`
}
