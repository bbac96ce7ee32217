package adapters

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

// hookRunner answers pip installs with success and PEP 517 hook calls with
// the response registered for the hook name.
func hookRunner(t *testing.T, responses map[string]any) *scriptedRunner {
	return &scriptedRunner{handle: func(cmd types.Command) (types.CommandResult, error) {
		if cmd.Args[0] == "-m" {
			return types.CommandResult{}, nil
		}
		hook, outputDir, resultPath := cmd.Args[1], cmd.Args[4], cmd.Args[5]
		response, ok := responses[hook]
		if !ok {
			return types.CommandResult{Output: []byte("unknown hook"), ExitCode: 2}, exitError{code: 2}
		}
		if artifact, ok := response.(map[string]any)["return"].(string); ok {
			require.NoError(t, os.WriteFile(filepath.Join(outputDir, artifact), []byte("artifact"), 0644))
		}
		data, err := json.Marshal(response)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(resultPath, data, 0644))
		if _, failed := response.(map[string]any)["error"]; failed {
			return types.CommandResult{ExitCode: 1}, exitError{code: 1}
		}
		return types.CommandResult{}, nil
	}}
}

func TestBackendBuilderAdapter_BuildWheel(t *testing.T) {
	runner := hookRunner(t, map[string]any{
		"get_requires_for_build_wheel": map[string]any{"return": []string{"cython"}},
		"build_wheel":                  map[string]any{"return": "demo-1.0-py3-none-any.whl"},
	})
	workDir := NewWorkDirAdapter(t.TempDir())
	builder := NewBackendBuilderAdapter(runner, workDir, "python3", "https://pypi.example/simple", "/tmp/pip-cache")
	source := t.TempDir()
	output := filepath.Join(t.TempDir(), "dist")

	artifact, err := builder.Build(t.Context(), types.BackendBuildRequest{
		SourceDir: source,
		OutputDir: output,
		Kind:      types.ArtifactKindWheel,
		BuildSystem: types.BuildSystem{
			Requires:     []string{"setuptools>=61"},
			BuildBackend: "setuptools.build_meta",
			BackendPath:  []string{"_custom"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "demo-1.0-py3-none-any.whl", artifact)
	assert.FileExists(t, filepath.Join(output, artifact))

	commands := runner.Commands()
	require.Len(t, commands, 4)
	assert.Equal(t, []string{"-m", "pip", "install"}, commands[0].Args[:3])
	assert.Contains(t, commands[0].Args, "--index-url")
	assert.Contains(t, commands[0].Args, "--cache-dir")
	assert.Equal(t, "setuptools>=61", commands[0].Args[len(commands[0].Args)-1])
	assert.Equal(t, "get_requires_for_build_wheel", commands[1].Args[1])
	assert.Equal(t, "setuptools.build_meta", commands[1].Args[2])
	assert.Equal(t, filepath.Join(source, "_custom"), commands[1].Args[6])
	assert.Equal(t, source, commands[1].Dir)
	assert.Equal(t, "cython", commands[2].Args[len(commands[2].Args)-1])
	assert.Equal(t, "build_wheel", commands[3].Args[1])

	// The isolated environment is gone once Build returns.
	envDir := filepath.Dir(commands[1].Args[0])
	_, statErr := os.Stat(envDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBackendBuilderAdapter_HookFailureIsBuildBackendError(t *testing.T) {
	runner := hookRunner(t, map[string]any{
		"get_requires_for_build_sdist": map[string]any{"return": []string{}},
		"build_sdist":                  map[string]any{"error": "BackendUnavailable", "traceback": "Traceback..."},
	})
	builder := NewBackendBuilderAdapter(runner, NewWorkDirAdapter(t.TempDir()), "", "", "")
	_, err := builder.Build(t.Context(), types.BackendBuildRequest{
		SourceDir:   t.TempDir(),
		OutputDir:   t.TempDir(),
		Kind:        types.ArtifactKindSdist,
		BuildSystem: types.BuildSystem{BuildBackend: "missing.backend"},
	})
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindBuildBackend), "got %v", err)
	assert.Contains(t, err.Error(), "BackendUnavailable")
}

func TestBackendBuilderAdapter_PipFailure(t *testing.T) {
	runner := &scriptedRunner{handle: func(cmd types.Command) (types.CommandResult, error) {
		return types.CommandResult{Output: []byte("No matching distribution"), ExitCode: 1}, exitError{code: 1}
	}}
	builder := NewBackendBuilderAdapter(runner, NewWorkDirAdapter(t.TempDir()), "", "", "")
	_, err := builder.Build(t.Context(), types.BackendBuildRequest{
		SourceDir:   t.TempDir(),
		OutputDir:   t.TempDir(),
		Kind:        types.ArtifactKindWheel,
		BuildSystem: types.BuildSystem{Requires: []string{"does-not-exist"}},
	})
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindBuildBackend), "got %v", err)
	require.Len(t, runner.Commands(), 1)
}

func TestBackendBuilderAdapter_MissingArtifact(t *testing.T) {
	runner := &scriptedRunner{}
	runner.handle = func(cmd types.Command) (types.CommandResult, error) {
		payload := `{"return": []}`
		if cmd.Args[1] == "build_wheel" {
			payload = `{"return": "ghost-1.0-py3-none-any.whl"}`
		}
		require.NoError(t, os.WriteFile(cmd.Args[5], []byte(payload), 0644))
		return types.CommandResult{}, nil
	}
	builder := NewBackendBuilderAdapter(runner, NewWorkDirAdapter(t.TempDir()), "", "", "")
	_, err := builder.Build(t.Context(), types.BackendBuildRequest{
		SourceDir: t.TempDir(),
		OutputDir: t.TempDir(),
		Kind:      types.ArtifactKindWheel,
	})
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindBuildBackend), "got %v", err)
}

func TestBackendBuilderAdapter_RejectsBadRequest(t *testing.T) {
	builder := NewBackendBuilderAdapter(&scriptedRunner{}, NewWorkDirAdapter(t.TempDir()), "", "", "")
	_, err := builder.Build(t.Context(), types.BackendBuildRequest{Kind: types.ArtifactKindWheel})
	require.Error(t, err)
	_, err = builder.Build(t.Context(), types.BackendBuildRequest{SourceDir: "a", OutputDir: "b", Kind: "egg"})
	require.Error(t, err)
}
