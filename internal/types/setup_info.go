package types

// SetupInfo is the normalized output mapping of a resolution. Unset
// fields are omitted on encode.
type SetupInfo struct {
	Name           string              `json:"name,omitempty" yaml:"name,omitempty"`
	Version        string              `json:"version,omitempty" yaml:"version,omitempty"`
	BaseDir        string              `json:"base_dir,omitempty" yaml:"base_dir,omitempty"`
	BuildBackend   string              `json:"build_backend,omitempty" yaml:"build_backend,omitempty"`
	BuildRequires  []string            `json:"build_requires,omitempty" yaml:"build_requires,omitempty"`
	Requires       map[string]string   `json:"requires,omitempty" yaml:"requires,omitempty"`
	SetupRequires  []string            `json:"setup_requires,omitempty" yaml:"setup_requires,omitempty"`
	PythonRequires string              `json:"python_requires,omitempty" yaml:"python_requires,omitempty"`
	Extras         map[string][]string `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// Fields lists the keys that would be present on encode, in output order.
func (s SetupInfo) Fields() []string {
	var fields []string
	add := func(name string, set bool) {
		if set {
			fields = append(fields, name)
		}
	}
	add("name", s.Name != "")
	add("version", s.Version != "")
	add("base_dir", s.BaseDir != "")
	add("build_backend", s.BuildBackend != "")
	add("build_requires", len(s.BuildRequires) > 0)
	add("requires", len(s.Requires) > 0)
	add("setup_requires", len(s.SetupRequires) > 0)
	add("python_requires", s.PythonRequires != "")
	add("extras", len(s.Extras) > 0)
	return fields
}
