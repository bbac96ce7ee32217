package app

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"pysetupinfo/internal/adapters"
	"pysetupinfo/internal/core"
	"pysetupinfo/internal/ports"
)

type Service struct {
	Source     ports.SourcePort
	Cache      ports.ResolutionCachePort
	Output     ports.OutputPort
	WorkDir    ports.WorkDirPort
	Extractors core.Extractors

	runs    *runState
	closers []func() error
}

// runState is shared by copies of a Service. Identical requests in flight
// collapse into one resolution, and resolutions that spawn subprocesses
// run one at a time.
type runState struct {
	flights singleflight.Group
	mu      sync.Mutex
}

func NewService(cfg Config) (Service, error) {
	runner := adapters.NewExecCommandRunner()
	workDir := adapters.NewWorkDirAdapter(cfg.SrcDir)
	pyproject := adapters.NewPyprojectAdapter()
	installed := adapters.NewInstalledMetadataAdapter()
	sdist := adapters.NewSdistArchiveAdapter()

	var (
		cache   ports.ResolutionCachePort
		closers []func() error
	)
	if cfg.RedisURL != "" {
		redisCache, err := adapters.NewRedisCacheAdapter(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return Service{}, err
		}
		cache = redisCache
		closers = append(closers, redisCache.Close)
	} else {
		cache = adapters.NewMemoryCacheAdapter(cfg.CacheTTL)
	}
	closers = append(closers, workDir.Cleanup)

	service := newService(
		adapters.NewLocalSourceAdapter(installed, pyproject, sdist, workDir),
		cache,
		adapters.NewOutputFileAdapter(nil),
		workDir,
		core.Extractors{
			Config:      adapters.NewSetupCfgAdapter(runner, cfg.PythonPath),
			BuildSystem: pyproject,
			Builder:     adapters.NewBackendBuilderAdapter(runner, workDir, cfg.PythonPath, cfg.IndexURL, cfg.CacheDir),
			Wheel:       adapters.NewWheelMetadataAdapter(),
			Sdist:       sdist,
			Installed:   installed,
			Legacy:      adapters.NewLegacyScriptAdapter(runner, workDir, cfg.PythonPath),
			WorkDir:     workDir,
		},
	)
	service.closers = closers
	return service, nil
}

func newService(source ports.SourcePort, cache ports.ResolutionCachePort, output ports.OutputPort, workDir ports.WorkDirPort, ex core.Extractors) Service {
	return Service{
		Source:     source,
		Cache:      cache,
		Output:     output,
		WorkDir:    workDir,
		Extractors: ex,
		runs:       &runState{},
	}
}

// Close removes tracked work directories and releases the cache client.
func (s Service) Close() error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		log.Debug().Err(errors.Join(errs...)).Msg("service shutdown reported errors")
		return errors.Join(errs...)
	}
	return nil
}
