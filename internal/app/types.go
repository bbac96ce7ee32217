package app

import (
	"time"

	"pysetupinfo/internal/core"
	"pysetupinfo/internal/types"
)

// Config carries the settings the CLI reads from flags, env and config
// file.
type Config struct {
	CacheDir   string
	PythonPath string
	SrcDir     string
	RedisURL   string
	CacheTTL   time.Duration
	IndexURL   string
}

type ResolveRequest struct {
	Location string
	Origin   types.OriginRequirement
	Reload   bool
}

type ResolveResult struct {
	Info    types.SetupInfo
	Stage   types.Stage
	RunID   string
	Cached  bool
	History []core.StageRecord
}

type InspectRequest struct {
	Location string
	Origin   types.OriginRequirement
}

type InspectResult struct {
	Declarations types.Declarations
	Warnings     []string
}
