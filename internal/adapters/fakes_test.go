package adapters

import (
	"context"
	"fmt"
	"sync"

	"pysetupinfo/internal/types"
)

// scriptedRunner records every command and answers with handle.
type scriptedRunner struct {
	mu       sync.Mutex
	commands []types.Command
	handle   func(cmd types.Command) (types.CommandResult, error)
}

func (r *scriptedRunner) Run(_ context.Context, cmd types.Command) (types.CommandResult, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
	if r.handle == nil {
		return types.CommandResult{}, nil
	}
	return r.handle(cmd)
}

func (r *scriptedRunner) Commands() []types.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Command(nil), r.commands...)
}

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
