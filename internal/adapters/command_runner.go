package adapters

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/types"
)

// ExecCommandRunner runs commands with os/exec. Working directory and
// environment are set on the child only.
type ExecCommandRunner struct{}

func NewExecCommandRunner() ExecCommandRunner {
	return ExecCommandRunner{}
}

func (r ExecCommandRunner) Run(ctx context.Context, command types.Command) (types.CommandResult, error) {
	if strings.TrimSpace(command.Path) == "" {
		return types.CommandResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("command path is empty")
	}
	cmd := exec.CommandContext(ctx, command.Path, command.Args...)
	cmd.Dir = command.Dir
	if len(command.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Env...)
	}
	log.Ctx(ctx).Debug().
		Str("command", command.Path).
		Strs("args", command.Args).
		Str("dir", command.Dir).
		Msg("running command")
	output, err := cmd.CombinedOutput()
	result := types.CommandResult{Output: output}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		return result, err
	}
	return result, nil
}

var _ ports.CommandRunnerPort = ExecCommandRunner{}
