package ports

import (
	"context"

	"pysetupinfo/internal/types"
)

// ResolutionCachePort stores finished resolutions by key.
type ResolutionCachePort interface {
	Get(ctx context.Context, key string) (types.SetupInfo, bool, error)
	Set(ctx context.Context, key string, info types.SetupInfo) error
	Delete(ctx context.Context, key string) error
}
