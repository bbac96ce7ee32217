package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

// Extractors bundles the collaborators a resolution draws on. Builder,
// Sdist and Legacy may be nil, in which case their stages always miss.
type Extractors struct {
	Config      ports.ConfigExtractorPort
	BuildSystem ports.BuildSystemPort
	Builder     ports.BackendBuilderPort
	Wheel       ports.WheelExtractorPort
	Sdist       ports.SdistExtractorPort
	Installed   ports.InstalledMetadataPort
	Legacy      ports.LegacyScriptPort
	WorkDir     ports.WorkDirPort
}

// StageRecord is one step of a resolution pass, kept for introspection.
type StageRecord struct {
	Stage   types.Stage
	Outcome types.Outcome
	Err     error
}

// SetupInfo is the metadata aggregate of a single package directory. It
// resolves at most once per lifetime unless Reload is called.
type SetupInfo struct {
	baseDir string
	origin  types.OriginRequirement
	ex      Extractors

	setupPy   string
	setupCfg  string
	pyproject string

	state     metadataState
	stage     types.Stage
	resolved  bool
	legacyRan bool
	// fromArtifact is set once a built or installed metadata record has
	// been merged. Declarative files alone never set it.
	fromArtifact bool
	history      []StageRecord
}

func NewSetupInfo(baseDir string, origin types.OriginRequirement, ex Extractors) *SetupInfo {
	return &SetupInfo{
		baseDir: baseDir,
		origin:  origin,
		ex:      ex,
		stage:   types.StageInit,
	}
}

func (s *SetupInfo) BaseDir() string {
	return s.baseDir
}

func (s *SetupInfo) Stage() types.Stage {
	return s.stage
}

func (s *SetupInfo) History() []StageRecord {
	return append([]StageRecord(nil), s.history...)
}

// Requirements returns every accumulated requirement, including distinct
// specifiers declared for the same name.
func (s *SetupInfo) Requirements() []types.Requirement {
	return s.state.requirements.Items()
}

func (s *SetupInfo) Extras() types.ExtrasTable {
	return s.state.extras
}

// RawMetadata is the partial record of the last stage that succeeded.
func (s *SetupInfo) RawMetadata() (types.PartialMetadata, bool) {
	if s.state.raw == nil {
		return types.PartialMetadata{}, false
	}
	return *s.state.raw, true
}

// AsDict renders the current state without triggering resolution.
func (s *SetupInfo) AsDict() types.SetupInfo {
	return s.state.output(s.baseDir)
}

// GetInfo runs the resolution chain on first use and returns the result.
func (s *SetupInfo) GetInfo(ctx context.Context) (types.SetupInfo, error) {
	if s.resolved {
		return s.AsDict(), nil
	}
	if err := s.validate(); err != nil {
		return types.SetupInfo{}, err
	}
	if err := s.resolve(ctx); err != nil {
		return types.SetupInfo{}, err
	}
	s.resolved = true
	return s.AsDict(), nil
}

// Reload discards everything learned so far, including generated
// metadata directories, and resolves again.
func (s *SetupInfo) Reload(ctx context.Context) (types.SetupInfo, error) {
	if err := os.RemoveAll(s.eggBase()); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("dir", s.eggBase()).Msg("failed to remove metadata output directory")
	}
	s.state = metadataState{}
	s.legacyRan = false
	s.fromArtifact = false
	s.history = nil
	s.stage = types.StageInit
	s.resolved = false
	return s.GetInfo(ctx)
}

func (s *SetupInfo) validate() error {
	if s.ex.Installed == nil || s.ex.BuildSystem == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("setup info requires installed-metadata and build-system ports")
	}
	if s.baseDir == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("base directory is required")
	}
	return nil
}

type stageFunc func(ctx context.Context) (types.Stage, types.StageResult)

func (s *SetupInfo) resolve(ctx context.Context) error {
	assert.NotEmpty(ctx, s.baseDir, "base directory must be set")
	s.locateDeclarations()
	if s.origin.Editable && !s.installable() {
		return shared.UnsupportedSourceError("The file URL points to a directory not installable: " + s.baseDir)
	}
	logger := log.Ctx(ctx).With().Str("base_dir", s.baseDir).Logger()
	stages := []stageFunc{
		s.parseConfig,
		s.readBackendDescriptor,
		s.buildArtifact,
		s.probeMetadata,
		s.runLegacyScript,
		s.reprobeMetadata,
	}
	for _, run := range stages {
		stage, result := run(ctx)
		s.stage = stage
		s.history = append(s.history, StageRecord{Stage: stage, Outcome: result.Outcome, Err: result.Err})
		event := logger.Debug().Str("stage", string(stage)).Str("outcome", string(result.Outcome))
		if result.Err != nil {
			event = event.Err(result.Err)
		}
		event.Msg("resolution stage finished")

		switch result.Outcome {
		case types.OutcomeSuccess:
			s.state = s.state.merge(result.Partial)
			if artifactStage(stage) {
				s.fromArtifact = true
			}
		case types.OutcomeFatal:
			return result.Err
		}
	}
	s.state = s.state.withOriginExtras(s.origin.Extras)
	s.stage = types.StageDone
	s.history = append(s.history, StageRecord{Stage: types.StageDone, Outcome: types.OutcomeSuccess})
	return nil
}

func (s *SetupInfo) locateDeclarations() {
	s.setupPy = existingFile(filepath.Join(s.baseDir, types.SetupScriptFile))
	s.setupCfg = existingFile(filepath.Join(s.baseDir, types.SetupConfigFile))
	s.pyproject = existingFile(filepath.Join(s.baseDir, types.PyprojectFile))
}

func (s *SetupInfo) installable() bool {
	return s.setupPy != "" || s.setupCfg != "" || s.pyproject != ""
}

func (s *SetupInfo) parseConfig(ctx context.Context) (types.Stage, types.StageResult) {
	if s.setupCfg == "" || s.ex.Config == nil {
		return types.StageConfigParsed, types.Miss(nil)
	}
	partial, err := s.ex.Config.Extract(ctx, s.setupCfg)
	if err != nil {
		if shared.IsKind(err, shared.KindIndirection) {
			return types.StageConfigParsed, types.Fatal(err)
		}
		return types.StageConfigParsed, types.Miss(err)
	}
	return types.StageConfigParsed, types.Success(partial)
}

func (s *SetupInfo) readBackendDescriptor(ctx context.Context) (types.Stage, types.StageResult) {
	if !s.installable() {
		return types.StageBackendDescriptorRead, types.Miss(nil)
	}
	buildSystem, err := s.ex.BuildSystem.ReadBuildSystem(s.pyprojectPath())
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("path", s.pyprojectPath()).Msg("unreadable build-system table, using defaults")
		buildSystem = types.BuildSystem{
			Requires:     types.DefaultBuildRequires(),
			BuildBackend: types.DefaultBuildBackend,
		}
	}
	partial := types.PartialMetadata{Source: types.MetadataSourcePyproject}
	if s.pyproject != "" {
		project, found, err := s.ex.BuildSystem.ReadProject(s.pyproject)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("path", s.pyproject).Msg("unreadable project table")
		}
		if found {
			partial = project
		}
	}
	partial.BuildBackend = types.StringPtr(buildSystem.BuildBackend)
	partial.BuildRequires = append([]string{}, buildSystem.Requires...)
	return types.StageBackendDescriptorRead, types.Success(partial)
}

func (s *SetupInfo) buildArtifact(ctx context.Context) (types.Stage, types.StageResult) {
	if !s.installable() || s.ex.Builder == nil || s.ex.WorkDir == nil {
		return types.StageBuildFailed, types.Miss(nil)
	}
	buildSystem := types.BuildSystem{
		Requires:     s.state.buildRequires,
		BuildBackend: deref(s.state.buildBackend),
	}
	partial, err := s.buildWheel(ctx, buildSystem)
	if err == nil {
		return types.StageWheelBuilt, types.Success(partial)
	}
	log.Ctx(ctx).Debug().Err(err).Msg("wheel build failed, trying sdist")
	partial, err = s.buildSdist(ctx, buildSystem)
	if err == nil {
		return types.StageSdistBuilt, types.Success(partial)
	}
	return types.StageBuildFailed, types.Miss(err)
}

func (s *SetupInfo) buildWheel(ctx context.Context, buildSystem types.BuildSystem) (types.PartialMetadata, error) {
	if s.ex.Wheel == nil {
		return types.PartialMetadata{}, errors.New("no wheel extractor configured")
	}
	outDir, release, err := s.ex.WorkDir.Scoped("wheel")
	if err != nil {
		return types.PartialMetadata{}, err
	}
	defer release()
	rel, err := s.ex.Builder.Build(ctx, types.BackendBuildRequest{
		SourceDir:   s.baseDir,
		OutputDir:   outDir,
		Kind:        types.ArtifactKindWheel,
		BuildSystem: buildSystem,
	})
	if err != nil {
		return types.PartialMetadata{}, err
	}
	return s.ex.Wheel.Extract(filepath.Join(outDir, rel))
}

func (s *SetupInfo) buildSdist(ctx context.Context, buildSystem types.BuildSystem) (types.PartialMetadata, error) {
	if s.ex.Sdist == nil {
		return types.PartialMetadata{}, errors.New("no sdist extractor configured")
	}
	outDir, release, err := s.ex.WorkDir.Scoped("sdist")
	if err != nil {
		return types.PartialMetadata{}, err
	}
	defer release()
	rel, err := s.ex.Builder.Build(ctx, types.BackendBuildRequest{
		SourceDir:   s.baseDir,
		OutputDir:   outDir,
		Kind:        types.ArtifactKindSdist,
		BuildSystem: buildSystem,
	})
	if err != nil {
		return types.PartialMetadata{}, err
	}
	unpacked, err := s.ex.Sdist.Unpack(ctx, filepath.Join(outDir, rel), filepath.Join(outDir, "unpacked"))
	if err != nil {
		return types.PartialMetadata{}, err
	}
	partial, ok := s.ex.Installed.Probe(ctx, unpacked, s.targetName())
	if !ok {
		return types.PartialMetadata{}, errors.New("sdist carries no readable metadata")
	}
	return partial, nil
}

func (s *SetupInfo) probeMetadata(ctx context.Context) (types.Stage, types.StageResult) {
	if s.fromArtifact && s.state.hasName() {
		return types.StageMetadataProbed, types.Miss(nil)
	}
	partial, ok := s.ex.Installed.Probe(ctx, s.baseDir, s.targetName())
	if !ok {
		return types.StageMetadataProbed, types.Miss(nil)
	}
	return types.StageMetadataProbed, types.Success(partial)
}

func (s *SetupInfo) runLegacyScript(ctx context.Context) (types.Stage, types.StageResult) {
	if s.fromArtifact || s.setupPy == "" || s.ex.Legacy == nil {
		return types.StageLegacyScriptRun, types.Miss(nil)
	}
	if s.state.hasName() && s.state.hasRequirements() {
		return types.StageLegacyScriptRun, types.Miss(nil)
	}
	s.legacyRan = true
	result, err := s.ex.Legacy.Run(ctx, types.LegacyScriptRequest{
		ScriptPath: s.setupPy,
		EggBase:    s.eggBase(),
	})
	if err != nil {
		return types.StageLegacyScriptRun, types.Miss(err)
	}
	if !result.Captured {
		return types.StageLegacyScriptRun, types.Miss(nil)
	}
	return types.StageLegacyScriptRun, types.Success(result.Partial)
}

func (s *SetupInfo) reprobeMetadata(ctx context.Context) (types.Stage, types.StageResult) {
	if !s.legacyRan || !dirExists(s.eggBase()) {
		return types.StageMetadataReprobed, types.Miss(nil)
	}
	partial, ok := s.ex.Installed.Probe(ctx, s.eggBase(), s.targetName())
	if !ok {
		return types.StageMetadataReprobed, types.Miss(nil)
	}
	return types.StageMetadataReprobed, types.Success(partial)
}

func (s *SetupInfo) targetName() string {
	if s.origin.Name != "" {
		return s.origin.Name
	}
	return deref(s.state.name)
}

func (s *SetupInfo) eggBase() string {
	return filepath.Join(s.baseDir, types.MetadataOutputDir)
}

func (s *SetupInfo) pyprojectPath() string {
	return filepath.Join(s.baseDir, types.PyprojectFile)
}

func artifactStage(stage types.Stage) bool {
	switch stage {
	case types.StageWheelBuilt, types.StageSdistBuilt, types.StageMetadataProbed, types.StageMetadataReprobed:
		return true
	}
	return false
}

func existingFile(path string) string {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
