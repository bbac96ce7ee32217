package ports

import (
	"context"

	"pysetupinfo/internal/types"
)

// CommandRunnerPort runs a subprocess and returns its combined output.
// A non-zero exit is reported as an error together with the result.
type CommandRunnerPort interface {
	Run(ctx context.Context, cmd types.Command) (types.CommandResult, error)
}

// WorkDirPort allocates working directories.
type WorkDirPort interface {
	// Scoped creates a directory that the caller removes by calling the
	// returned release func.
	Scoped(prefix string) (string, func(), error)

	// Tracked creates a directory that survives until Cleanup.
	Tracked(prefix string) (string, error)

	Cleanup() error
}
