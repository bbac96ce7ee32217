package types

// BackendBuildRequest asks a build backend for one artifact.
type BackendBuildRequest struct {
	SourceDir   string
	OutputDir   string
	Kind        ArtifactKind
	BuildSystem BuildSystem
}

// LegacyScriptRequest runs a setup.py to generate metadata into EggBase.
type LegacyScriptRequest struct {
	ScriptPath string
	EggBase    string
}

// LegacyScriptResult carries the metadata captured from the setup() call,
// if the script reached it.
type LegacyScriptResult struct {
	Captured bool
	Partial  PartialMetadata
}
