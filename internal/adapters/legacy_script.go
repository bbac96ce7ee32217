package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pysetupinfo/internal/core"
	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

// LegacyScriptAdapter runs setup.py in a child interpreter through a shim
// that records the arguments given to setup(). The child's working
// directory is the script's directory; nothing in this process changes.
type LegacyScriptAdapter struct {
	Runner  ports.CommandRunnerPort
	WorkDir ports.WorkDirPort
	Python  string
}

func NewLegacyScriptAdapter(runner ports.CommandRunnerPort, workDir ports.WorkDirPort, python string) LegacyScriptAdapter {
	if strings.TrimSpace(python) == "" {
		python = "python3"
	}
	return LegacyScriptAdapter{Runner: runner, WorkDir: workDir, Python: python}
}

type shimResult struct {
	Captured        bool                `json:"captured"`
	Name            *string             `json:"name"`
	Version         *string             `json:"version"`
	PythonRequires  *string             `json:"python_requires"`
	InstallRequires []string            `json:"install_requires"`
	SetupRequires   []string            `json:"setup_requires"`
	ExtrasRequire   map[string][]string `json:"extras_require"`
}

func (a LegacyScriptAdapter) Run(ctx context.Context, req types.LegacyScriptRequest) (types.LegacyScriptResult, error) {
	if strings.TrimSpace(req.ScriptPath) == "" || strings.TrimSpace(req.EggBase) == "" {
		return types.LegacyScriptResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("legacy script run requires script path and egg base")
	}
	assert.NotEmpty(ctx, a.Python, "legacy script interpreter must be set")
	if err := os.MkdirAll(req.EggBase, 0o755); err != nil {
		return types.LegacyScriptResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create egg base").
			WithCause(err)
	}
	shimDir, release, err := a.WorkDir.Scoped("setup-shim")
	if err != nil {
		return types.LegacyScriptResult{}, err
	}
	defer release()
	shimPath := filepath.Join(shimDir, "setup_shim.py")
	resultPath := filepath.Join(shimDir, "result.json")
	if err := os.WriteFile(shimPath, setupShimScript, 0o644); err != nil {
		return types.LegacyScriptResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write setup shim").
			WithCause(err)
	}

	scriptDir := filepath.Dir(req.ScriptPath)
	result, runErr := a.Runner.Run(ctx, types.Command{
		Path: a.Python,
		Args: []string{shimPath, req.ScriptPath, req.EggBase, resultPath},
		Dir:  scriptDir,
		Env:  []string{"PYTHONDONTWRITEBYTECODE=1"},
	})
	if runErr != nil && result.ExitCode == setupShimNameErrorExit {
		log.Ctx(ctx).Debug().Str("script", req.ScriptPath).Msg("setup.py raised NameError, rerunning as a plain subprocess")
		_, err := a.Runner.Run(ctx, types.Command{
			Path: a.Python,
			Args: []string{req.ScriptPath, "egg_info", "--egg-base", req.EggBase},
			Dir:  scriptDir,
		})
		return types.LegacyScriptResult{}, err
	}

	captured, err := readShimResult(resultPath)
	if err != nil {
		if runErr != nil {
			return types.LegacyScriptResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("setup.py failed").
				WithCause(shared.CommandError(result.Output, runErr))
		}
		return types.LegacyScriptResult{}, err
	}
	if runErr != nil {
		log.Ctx(ctx).Debug().Err(runErr).Str("script", req.ScriptPath).Msg("setup.py exited with an error after calling setup()")
	}
	if !captured.Captured {
		return types.LegacyScriptResult{}, nil
	}
	return types.LegacyScriptResult{Captured: true, Partial: captured.partial(ctx)}, nil
}

func readShimResult(path string) (shimResult, error) {
	var result shimResult
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("setup shim wrote no result").
				WithCause(err)
		}
		return result, err
	}
	if err := json.Unmarshal(content, &result); err != nil {
		return result, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("malformed setup shim result").
			WithCause(err)
	}
	return result, nil
}

func (r shimResult) partial(ctx context.Context) types.PartialMetadata {
	partial := types.PartialMetadata{
		Source:         types.MetadataSourceLegacy,
		Name:           nonEmpty(r.Name),
		Version:        nonEmpty(r.Version),
		PythonRequires: nonEmpty(r.PythonRequires),
	}
	parsed, errs := core.ParseRequirementLines(r.InstallRequires)
	for _, err := range errs {
		log.Ctx(ctx).Warn().Err(err).Msg("skipping unparsable install_requires entry")
	}
	requires, extras := core.SplitExtras(parsed)
	partial.Requires = append([]types.Requirement{}, requires...)
	if r.SetupRequires != nil {
		partial.SetupRequires = append([]string{}, r.SetupRequires...)
	}
	for _, key := range sortedKeys(r.ExtrasRequire) {
		name, marker := parseRequiresSection(key)
		reqs, errs := core.ParseRequirementLines(r.ExtrasRequire[key])
		for _, err := range errs {
			log.Ctx(ctx).Warn().Err(err).Str("extra", key).Msg("skipping unparsable extras_require entry")
		}
		if name == "" {
			for _, req := range reqs {
				partial.Requires = append(partial.Requires, core.RequirementFromParsed(req.WithMarker(marker)))
			}
			continue
		}
		extras = extras.Add(name)
		for _, req := range reqs {
			extras = extras.Add(name, core.RequirementFromParsed(req.WithMarker(marker)))
		}
	}
	if extras.Len() > 0 {
		partial.Extras = &extras
	}
	return partial
}

func nonEmpty(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return types.StringPtr(strings.TrimSpace(*value))
}

var _ ports.LegacyScriptPort = LegacyScriptAdapter{}
