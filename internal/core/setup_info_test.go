package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

type fakeConfig struct {
	partial types.PartialMetadata
	err     error
	calls   int
}

func (f *fakeConfig) Extract(_ context.Context, _ string) (types.PartialMetadata, error) {
	f.calls++
	return f.partial, f.err
}

type fakeBuildSystem struct{}

func (fakeBuildSystem) ReadBuildSystem(path string) (types.BuildSystem, error) {
	return types.BuildSystem{
		Requires:     types.DefaultBuildRequires(),
		BuildBackend: types.DefaultBuildBackend,
	}, nil
}

func (fakeBuildSystem) ReadProject(string) (types.PartialMetadata, bool, error) {
	return types.PartialMetadata{}, false, nil
}

type fakeBuilder struct {
	failWheel bool
	failSdist bool
	kinds     []types.ArtifactKind
}

func (f *fakeBuilder) Build(_ context.Context, req types.BackendBuildRequest) (string, error) {
	f.kinds = append(f.kinds, req.Kind)
	if req.Kind == types.ArtifactKindWheel && f.failWheel {
		return "", shared.BuildBackendError("wheel hook failed", nil)
	}
	if req.Kind == types.ArtifactKindSdist && f.failSdist {
		return "", shared.BuildBackendError("sdist hook failed", nil)
	}
	return "artifact", nil
}

type fakeWheel struct {
	partial types.PartialMetadata
}

func (f fakeWheel) Extract(string) (types.PartialMetadata, error) {
	return f.partial, nil
}

type fakeSdist struct{}

func (fakeSdist) Unpack(_ context.Context, _ string, dest string) (string, error) {
	return dest, nil
}

// fakeInstalled answers probes from a map of root directory to metadata.
type fakeInstalled struct {
	byRoot map[string]types.PartialMetadata
	probes []string
}

func (f *fakeInstalled) Probe(_ context.Context, root string, _ string) (types.PartialMetadata, bool) {
	f.probes = append(f.probes, root)
	partial, ok := f.byRoot[root]
	return partial, ok
}

func (f *fakeInstalled) Discover(string) ([]types.MetadataDirInfo, error) {
	return nil, nil
}

type fakeLegacy struct {
	result types.LegacyScriptResult
	err    error
	calls  int
}

func (f *fakeLegacy) Run(_ context.Context, req types.LegacyScriptRequest) (types.LegacyScriptResult, error) {
	f.calls++
	if err := os.MkdirAll(req.EggBase, 0o755); err != nil {
		return types.LegacyScriptResult{}, err
	}
	return f.result, f.err
}

type fakeWorkDir struct {
	root string
}

func (f fakeWorkDir) Scoped(prefix string) (string, func(), error) {
	dir, err := os.MkdirTemp(f.root, prefix)
	return dir, func() { _ = os.RemoveAll(dir) }, err
}

func (f fakeWorkDir) Tracked(prefix string) (string, error) {
	return os.MkdirTemp(f.root, prefix)
}

func (fakeWorkDir) Cleanup() error {
	return nil
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestGetInfoEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	installed := &fakeInstalled{}
	info := NewSetupInfo(dir, types.OriginRequirement{}, Extractors{
		BuildSystem: fakeBuildSystem{},
		Installed:   installed,
		Legacy:      &fakeLegacy{},
	})

	got, err := info.GetInfo(t.Context())
	require.NoError(t, err)
	if diff := cmp.Diff(types.SetupInfo{BaseDir: dir}, got); diff != "" {
		t.Fatalf("unexpected info (-want +got):\n%s", diff)
	}
	assert.Equal(t, types.StageDone, info.Stage())
	assert.Equal(t, []string{"base_dir"}, got.Fields())
}

func TestGetInfoConfigThenWheel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "setup.cfg"), "[metadata]\nname = demo\n")

	configExtras := types.ExtrasTable{}.Add("test", types.Requirement{Name: "pytest"})
	config := &fakeConfig{partial: types.PartialMetadata{
		Name:     types.StringPtr("demo"),
		Requires: []types.Requirement{{Name: "foo"}, {Name: "bar", Specifier: ">=1.0"}},
		Extras:   &configExtras,
	}}
	wheelExtras := types.ExtrasTable{}.Add("test", types.Requirement{Name: "coverage"})
	wheel := fakeWheel{partial: types.PartialMetadata{
		Name:     types.StringPtr("other-name"),
		Version:  types.StringPtr("1.2.3"),
		Requires: []types.Requirement{{Name: "foo"}},
		Extras:   &wheelExtras,
	}}
	builder := &fakeBuilder{}
	legacy := &fakeLegacy{}
	info := NewSetupInfo(dir, types.OriginRequirement{}, Extractors{
		Config:      config,
		BuildSystem: fakeBuildSystem{},
		Builder:     builder,
		Wheel:       wheel,
		Sdist:       fakeSdist{},
		Installed:   &fakeInstalled{},
		Legacy:      legacy,
		WorkDir:     fakeWorkDir{root: t.TempDir()},
	})

	got, err := info.GetInfo(t.Context())
	require.NoError(t, err)

	want := types.SetupInfo{
		Name:          "demo",
		Version:       "1.2.3",
		BaseDir:       dir,
		BuildBackend:  types.DefaultBuildBackend,
		BuildRequires: types.DefaultBuildRequires(),
		Requires:      map[string]string{"foo": "", "bar": ">=1.0"},
		Extras:        map[string][]string{"test": {"coverage", "pytest"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected info (-want +got):\n%s", diff)
	}
	assert.Equal(t, []types.ArtifactKind{types.ArtifactKindWheel}, builder.kinds)
	assert.Equal(t, 0, legacy.calls)

	stages := []types.Stage{}
	for _, record := range info.History() {
		stages = append(stages, record.Stage)
	}
	assert.Equal(t, []types.Stage{
		types.StageConfigParsed,
		types.StageBackendDescriptorRead,
		types.StageWheelBuilt,
		types.StageMetadataProbed,
		types.StageLegacyScriptRun,
		types.StageMetadataReprobed,
		types.StageDone,
	}, stages)
}

func TestGetInfoRunsOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "setup.cfg"), "[metadata]\nname = demo\n")
	config := &fakeConfig{partial: types.PartialMetadata{Name: types.StringPtr("demo")}}
	info := NewSetupInfo(dir, types.OriginRequirement{}, Extractors{
		Config:      config,
		BuildSystem: fakeBuildSystem{},
		Installed:   &fakeInstalled{},
	})

	_, err := info.GetInfo(t.Context())
	require.NoError(t, err)
	_, err = info.GetInfo(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, config.calls)
}

func TestGetInfoBuildFailureFallsBackToLegacy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "setup.py"), "from setuptools import setup\nsetup()\n")
	eggBase := filepath.Join(dir, types.MetadataOutputDir)

	builder := &fakeBuilder{failWheel: true, failSdist: true}
	legacy := &fakeLegacy{}
	installed := &fakeInstalled{byRoot: map[string]types.PartialMetadata{
		eggBase: {
			Name:     types.StringPtr("legacy-pkg"),
			Version:  types.StringPtr("0.1"),
			Requires: []types.Requirement{{Name: "six"}},
		},
	}}
	info := NewSetupInfo(dir, types.OriginRequirement{}, Extractors{
		BuildSystem: fakeBuildSystem{},
		Builder:     builder,
		Wheel:       fakeWheel{},
		Sdist:       fakeSdist{},
		Installed:   installed,
		Legacy:      legacy,
		WorkDir:     fakeWorkDir{root: t.TempDir()},
	})

	got, err := info.GetInfo(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "legacy-pkg", got.Name)
	assert.Equal(t, map[string]string{"six": ""}, got.Requires)
	assert.Equal(t, []types.ArtifactKind{types.ArtifactKindWheel, types.ArtifactKindSdist}, builder.kinds)
	assert.Equal(t, 1, legacy.calls)
	assert.Equal(t, []string{dir, eggBase}, installed.probes)

	history := info.History()
	assert.Equal(t, types.StageBuildFailed, history[2].Stage)
	assert.Equal(t, types.OutcomeMiss, history[2].Outcome)
	assert.True(t, shared.IsKind(history[2].Err, shared.KindBuildBackend))
}

func TestGetInfoConfigNameStillRunsLegacyForRequirements(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "setup.cfg"), "[metadata]\nname = demo\nversion = 1.0\n")
	writeFile(t, filepath.Join(dir, "setup.py"), "from setuptools import setup\nsetup(install_requires=['requests'])\n")

	config := &fakeConfig{partial: types.PartialMetadata{
		Name:    types.StringPtr("demo"),
		Version: types.StringPtr("1.0"),
	}}
	legacy := &fakeLegacy{result: types.LegacyScriptResult{
		Captured: true,
		Partial: types.PartialMetadata{
			Name:     types.StringPtr("demo"),
			Requires: []types.Requirement{{Name: "requests"}},
		},
	}}
	info := NewSetupInfo(dir, types.OriginRequirement{}, Extractors{
		Config:      config,
		BuildSystem: fakeBuildSystem{},
		Builder:     &fakeBuilder{failWheel: true, failSdist: true},
		Wheel:       fakeWheel{},
		Sdist:       fakeSdist{},
		Installed:   &fakeInstalled{},
		Legacy:      legacy,
		WorkDir:     fakeWorkDir{root: t.TempDir()},
	})

	got, err := info.GetInfo(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, legacy.calls)
	assert.Equal(t, "demo", got.Name)
	assert.Equal(t, "1.0", got.Version)
	assert.Equal(t, map[string]string{"requests": ""}, got.Requires)
}

func TestGetInfoConfigNameAndRequirementsSkipsLegacy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "setup.cfg"), "[metadata]\nname = demo\n")
	writeFile(t, filepath.Join(dir, "setup.py"), "setup()\n")

	legacy := &fakeLegacy{}
	info := NewSetupInfo(dir, types.OriginRequirement{}, Extractors{
		Config: &fakeConfig{partial: types.PartialMetadata{
			Name:     types.StringPtr("demo"),
			Requires: []types.Requirement{{Name: "six"}},
		}},
		BuildSystem: fakeBuildSystem{},
		Installed:   &fakeInstalled{},
		Legacy:      legacy,
	})

	_, err := info.GetInfo(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, legacy.calls)
}

func TestGetInfoConfigNameStillProbesInstalledMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "setup.cfg"), "[metadata]\nname = demo\n")
	writeFile(t, filepath.Join(dir, "setup.py"), "setup()\n")

	installed := &fakeInstalled{byRoot: map[string]types.PartialMetadata{
		dir: {
			Name:     types.StringPtr("demo"),
			Version:  types.StringPtr("3.0"),
			Requires: []types.Requirement{{Name: "attrs", Specifier: ">=20"}},
		},
	}}
	legacy := &fakeLegacy{}
	info := NewSetupInfo(dir, types.OriginRequirement{}, Extractors{
		Config:      &fakeConfig{partial: types.PartialMetadata{Name: types.StringPtr("demo")}},
		BuildSystem: fakeBuildSystem{},
		Installed:   installed,
		Legacy:      legacy,
	})

	got, err := info.GetInfo(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "3.0", got.Version)
	assert.Equal(t, map[string]string{"attrs": ">=20"}, got.Requires)
	assert.Equal(t, []string{dir}, installed.probes)
	assert.Equal(t, 0, legacy.calls)
}

func TestGetInfoLegacyCaptured(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "setup.py"), "setup()\n")
	legacy := &fakeLegacy{result: types.LegacyScriptResult{
		Captured: true,
		Partial: types.PartialMetadata{
			Name:           types.StringPtr("captured"),
			Version:        types.StringPtr("2.0"),
			PythonRequires: types.StringPtr(">=3.8"),
			SetupRequires:  []string{"setuptools_scm"},
		},
	}}
	info := NewSetupInfo(dir, types.OriginRequirement{}, Extractors{
		BuildSystem: fakeBuildSystem{},
		Installed:   &fakeInstalled{},
		Legacy:      legacy,
	})

	got, err := info.GetInfo(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "captured", got.Name)
	assert.Equal(t, ">=3.8", got.PythonRequires)
	assert.Equal(t, []string{"setuptools_scm"}, got.SetupRequires)
	raw, ok := info.RawMetadata()
	require.True(t, ok)
	assert.Equal(t, "captured", *raw.Name)
}

func TestGetInfoLegacyErrorIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "setup.py"), "raise SystemExit(1)\n")
	info := NewSetupInfo(dir, types.OriginRequirement{}, Extractors{
		BuildSystem: fakeBuildSystem{},
		Installed:   &fakeInstalled{},
		Legacy:      &fakeLegacy{err: errors.New("exit status 1")},
	})

	got, err := info.GetInfo(t.Context())
	require.NoError(t, err)
	assert.Equal(t, types.DefaultBuildBackend, got.BuildBackend)
	assert.Empty(t, got.Name)
	assert.Equal(t, types.StageDone, info.Stage())
}

func TestGetInfoIndirectionErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "setup.cfg"), "[metadata]\nversion = file: VERSION\n")
	config := &fakeConfig{err: shared.IndirectionError("missing VERSION", nil)}
	legacy := &fakeLegacy{}
	info := NewSetupInfo(dir, types.OriginRequirement{}, Extractors{
		Config:      config,
		BuildSystem: fakeBuildSystem{},
		Installed:   &fakeInstalled{},
		Legacy:      legacy,
	})

	_, err := info.GetInfo(t.Context())
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindIndirection))
	assert.Equal(t, 0, legacy.calls)
}

func TestGetInfoConfigParseErrorIsMiss(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "setup.cfg"), "garbage")
	info := NewSetupInfo(dir, types.OriginRequirement{}, Extractors{
		Config:      &fakeConfig{err: shared.ParseError("bad ini", nil)},
		BuildSystem: fakeBuildSystem{},
		Installed:   &fakeInstalled{},
	})

	_, err := info.GetInfo(t.Context())
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeMiss, info.History()[0].Outcome)
}

func TestGetInfoEditableNotInstallable(t *testing.T) {
	dir := t.TempDir()
	info := NewSetupInfo(dir, types.OriginRequirement{Name: "demo", Editable: true}, Extractors{
		BuildSystem: fakeBuildSystem{},
		Installed:   &fakeInstalled{},
	})

	_, err := info.GetInfo(t.Context())
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindUnsupportedSource))
	assert.Empty(t, info.History())
}

func TestGetInfoOriginExtrasFolded(t *testing.T) {
	dir := t.TempDir()
	extras := types.ExtrasTable{}.Add("socks", types.Requirement{Name: "pysocks"})
	installed := &fakeInstalled{byRoot: map[string]types.PartialMetadata{
		dir: {
			Name:     types.StringPtr("requests"),
			Requires: []types.Requirement{{Name: "urllib3"}},
			Extras:   &extras,
		},
	}}
	info := NewSetupInfo(dir, types.OriginRequirement{Name: "requests", Extras: []string{"socks"}}, Extractors{
		BuildSystem: fakeBuildSystem{},
		Installed:   installed,
	})

	got, err := info.GetInfo(t.Context())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"urllib3": "", "pysocks": ""}, got.Requires)
}

func TestReloadClearsAndReresolves(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "setup.cfg"), "[metadata]\nname = demo\n")
	writeFile(t, filepath.Join(dir, types.MetadataOutputDir, "stale.egg-info", "PKG-INFO"), "Name: stale\n")

	firstExtras := types.ExtrasTable{}.Add("old", types.Requirement{Name: "legacy-extra"})
	config := &fakeConfig{partial: types.PartialMetadata{
		Name:     types.StringPtr("demo"),
		Requires: []types.Requirement{{Name: "old-dep"}},
		Extras:   &firstExtras,
	}}
	info := NewSetupInfo(dir, types.OriginRequirement{}, Extractors{
		Config:      config,
		BuildSystem: fakeBuildSystem{},
		Installed:   &fakeInstalled{},
	})

	got, err := info.GetInfo(t.Context())
	require.NoError(t, err)
	assert.Contains(t, got.Requires, "old-dep")

	secondExtras := types.ExtrasTable{}.Add("new", types.Requirement{Name: "fresh-extra"})
	config.partial = types.PartialMetadata{
		Name:     types.StringPtr("demo"),
		Requires: []types.Requirement{{Name: "new-dep"}},
		Extras:   &secondExtras,
	}
	got, err = info.Reload(t.Context())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"new-dep": ""}, got.Requires)
	assert.Equal(t, map[string][]string{"new": {"fresh-extra"}}, got.Extras)
	assert.Equal(t, 2, config.calls)
	assert.NoDirExists(t, filepath.Join(dir, types.MetadataOutputDir))
}

func TestGetInfoRequiresPorts(t *testing.T) {
	info := NewSetupInfo(t.TempDir(), types.OriginRequirement{}, Extractors{})
	_, err := info.GetInfo(t.Context())
	require.Error(t, err)
}
