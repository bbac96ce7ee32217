package ports

import (
	"context"

	"pysetupinfo/internal/types"
)

// BackendBuilderPort runs PEP 517 hooks in an isolated environment and
// returns the artifact path relative to the request's output directory.
type BackendBuilderPort interface {
	Build(ctx context.Context, req types.BackendBuildRequest) (string, error)
}

// LegacyScriptPort executes a setup.py for metadata generation only.
type LegacyScriptPort interface {
	Run(ctx context.Context, req types.LegacyScriptRequest) (types.LegacyScriptResult, error)
}
