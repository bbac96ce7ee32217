package ports

import (
	"context"

	"pysetupinfo/internal/types"
)

// SourcePort turns a requested location into the package directory to
// resolve. Fetching remote sources is out of scope; local paths and file
// URLs are supported.
type SourcePort interface {
	Locate(ctx context.Context, location string, origin types.OriginRequirement) (types.SourceLocation, error)
	Declarations(dir string) (types.Declarations, error)
}

// OutputPort writes a value in the requested format.
type OutputPort interface {
	Write(path string, format types.OutputFormat, value any) error
}
