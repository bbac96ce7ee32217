package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pysetupinfo/internal/core"
	"pysetupinfo/internal/types"
)

// Resolve locates the package directory and produces its SetupInfo,
// consulting the resolution cache unless a reload is requested.
func (s Service) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	runID := uuid.NewString()
	logger := log.Ctx(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)

	loc, err := s.Source.Locate(ctx, req.Location, req.Origin)
	if err != nil {
		return ResolveResult{}, err
	}
	assert.NotEmpty(ctx, loc.Identity, "located source must carry an identity")
	key := cacheKey(req.Origin, loc.Identity)

	if !req.Reload && s.Cache != nil {
		info, ok, err := s.Cache.Get(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Msg("resolution cache lookup failed")
		} else if ok {
			// An entry written by another run may name an unpack dir that is gone.
			if loc.Unpacked {
				info.BaseDir = loc.Dir
			}
			logger.Debug().Str("base_dir", loc.Dir).Msg("resolution served from cache")
			return ResolveResult{Info: info, Stage: types.StageDone, RunID: runID, Cached: true}, nil
		}
	}

	run := func() (any, error) {
		return s.resolveDir(ctx, loc.Dir, req)
	}
	var value any
	if s.runs != nil && !req.Reload {
		value, err, _ = s.runs.flights.Do(key, run)
	} else {
		value, err = run()
	}
	if err != nil {
		return ResolveResult{}, err
	}
	result := value.(ResolveResult)
	result.RunID = runID

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, key, result.Info); err != nil {
			logger.Warn().Err(err).Msg("failed to store resolution in cache")
		}
	}
	return result, nil
}

func (s Service) resolveDir(ctx context.Context, dir string, req ResolveRequest) (ResolveResult, error) {
	if s.runs != nil {
		s.runs.mu.Lock()
		defer s.runs.mu.Unlock()
	}
	info := core.NewSetupInfo(dir, req.Origin, s.Extractors)
	var (
		out types.SetupInfo
		err error
	)
	if req.Reload {
		out, err = info.Reload(ctx)
	} else {
		out, err = info.GetInfo(ctx)
	}
	if err != nil {
		return ResolveResult{}, err
	}
	log.Ctx(ctx).Info().
		Str("base_dir", dir).
		Str("name", out.Name).
		Str("version", out.Version).
		Msg("package resolved")
	return ResolveResult{Info: out, Stage: info.Stage(), History: info.History()}, nil
}

// cacheKey identifies a resolution by origin and source identity.
func cacheKey(origin types.OriginRequirement, source string) string {
	sum := sha256.Sum256([]byte(origin.Identity() + "|" + source))
	return hex.EncodeToString(sum[:])
}
