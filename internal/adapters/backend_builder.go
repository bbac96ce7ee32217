package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

// BackendBuilderAdapter builds wheels and sdists through PEP 517 hooks.
// Build requirements are pip-installed into a throwaway target directory
// that exists only for the duration of one Build call.
type BackendBuilderAdapter struct {
	Runner   ports.CommandRunnerPort
	WorkDir  ports.WorkDirPort
	Python   string
	IndexURL string
	CacheDir string
}

func NewBackendBuilderAdapter(runner ports.CommandRunnerPort, workDir ports.WorkDirPort, python string, indexURL string, cacheDir string) BackendBuilderAdapter {
	if strings.TrimSpace(python) == "" {
		python = "python3"
	}
	return BackendBuilderAdapter{
		Runner:   runner,
		WorkDir:  workDir,
		Python:   python,
		IndexURL: indexURL,
		CacheDir: cacheDir,
	}
}

type hookResponse struct {
	Return    json.RawMessage `json:"return"`
	Error     string          `json:"error"`
	Traceback string          `json:"traceback"`
}

// buildEnv is one isolated build environment.
type buildEnv struct {
	libDir     string
	hookScript string
	resultPath string
}

func (a BackendBuilderAdapter) Build(ctx context.Context, req types.BackendBuildRequest) (string, error) {
	if strings.TrimSpace(req.SourceDir) == "" || strings.TrimSpace(req.OutputDir) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("backend build requires source and output directories")
	}
	if req.Kind != types.ArtifactKindWheel && req.Kind != types.ArtifactKindSdist {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported artifact kind: %s", req.Kind))
	}
	assert.NotEmpty(ctx, a.Python, "build interpreter must be set")
	backend := req.BuildSystem.BuildBackend
	if backend == "" {
		backend = types.DefaultBuildBackend
	}

	envDir, release, err := a.WorkDir.Scoped("build-env")
	if err != nil {
		return "", shared.BuildBackendError("failed to create build environment", err)
	}
	defer release()
	env := buildEnv{
		libDir:     filepath.Join(envDir, "lib"),
		hookScript: filepath.Join(envDir, "pep517_hook.py"),
		resultPath: filepath.Join(envDir, "result.json"),
	}
	if err := os.WriteFile(env.hookScript, pep517HookScript, 0o644); err != nil {
		return "", shared.BuildBackendError("failed to write hook script", err)
	}

	logger := log.Ctx(ctx).With().Str("backend", backend).Str("kind", string(req.Kind)).Logger()
	logger.Debug().Strs("requires", req.BuildSystem.Requires).Msg("installing build requirements")
	if err := a.pipInstall(ctx, env.libDir, req.BuildSystem.Requires); err != nil {
		return "", err
	}

	var extra []string
	raw, err := a.callHook(ctx, env, req, backend, "get_requires_for_build_"+string(req.Kind))
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(raw, &extra); err != nil {
		return "", shared.BuildBackendError("malformed get_requires response", err)
	}
	if len(extra) > 0 {
		logger.Debug().Strs("requires", extra).Msg("installing additional build requirements")
		if err := a.pipInstall(ctx, env.libDir, extra); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return "", shared.BuildBackendError("failed to create output directory", err)
	}
	raw, err = a.callHook(ctx, env, req, backend, "build_"+string(req.Kind))
	if err != nil {
		return "", err
	}
	var artifact string
	if err := json.Unmarshal(raw, &artifact); err != nil || strings.TrimSpace(artifact) == "" {
		return "", shared.BuildBackendError("malformed build response", err)
	}
	if _, err := os.Stat(filepath.Join(req.OutputDir, artifact)); err != nil {
		return "", shared.BuildBackendError(fmt.Sprintf("backend reported missing artifact %s", artifact), err)
	}
	logger.Debug().Str("artifact", artifact).Msg("backend build finished")
	return artifact, nil
}

func (a BackendBuilderAdapter) pipInstall(ctx context.Context, targetDir string, requirements []string) error {
	if len(requirements) == 0 {
		return nil
	}
	args := []string{"-m", "pip", "install", "--ignore-installed", "--disable-pip-version-check", "--target", targetDir}
	if strings.TrimSpace(a.IndexURL) != "" {
		args = append(args, "--index-url", a.IndexURL)
	}
	if strings.TrimSpace(a.CacheDir) != "" {
		args = append(args, "--cache-dir", a.CacheDir)
	}
	args = append(args, requirements...)
	result, err := a.Runner.Run(ctx, types.Command{Path: a.Python, Args: args})
	if err != nil {
		return shared.BuildBackendError("pip install failed", shared.CommandError(result.Output, err))
	}
	return nil
}

// callHook runs one hook out of process and returns its JSON return value.
func (a BackendBuilderAdapter) callHook(ctx context.Context, env buildEnv, req types.BackendBuildRequest, backend string, hook string) (json.RawMessage, error) {
	_ = os.Remove(env.resultPath)
	args := []string{env.hookScript, hook, backend, req.SourceDir, req.OutputDir, env.resultPath}
	for _, entry := range req.BuildSystem.BackendPath {
		args = append(args, filepath.Join(req.SourceDir, entry))
	}
	result, runErr := a.Runner.Run(ctx, types.Command{
		Path: a.Python,
		Args: args,
		Dir:  req.SourceDir,
		Env:  []string{"PYTHONPATH=" + env.libDir, "PYTHONNOUSERSITE=1"},
	})
	content, err := os.ReadFile(env.resultPath)
	if err != nil {
		if runErr != nil {
			return nil, shared.BuildBackendError(hook+" failed", shared.CommandError(result.Output, runErr))
		}
		return nil, shared.BuildBackendError(hook+" wrote no response", err)
	}
	var response hookResponse
	if err := json.Unmarshal(content, &response); err != nil {
		return nil, shared.BuildBackendError("malformed "+hook+" response", err)
	}
	if response.Error != "" {
		return nil, shared.BuildBackendError(response.Error, errors.New(strings.TrimSpace(response.Traceback)))
	}
	if runErr != nil {
		return nil, shared.BuildBackendError(hook+" failed", shared.CommandError(result.Output, runErr))
	}
	if len(response.Return) == 0 {
		return nil, shared.BuildBackendError(hook+" returned nothing", nil)
	}
	return response.Return, nil
}

var _ ports.BackendBuilderPort = BackendBuilderAdapter{}
