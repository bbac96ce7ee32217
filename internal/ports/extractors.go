package ports

import (
	"context"

	"pysetupinfo/internal/types"
)

// ConfigExtractorPort reads a declarative setup.cfg.
type ConfigExtractorPort interface {
	Extract(ctx context.Context, path string) (types.PartialMetadata, error)
}

// BuildSystemPort reads a pyproject.toml.
type BuildSystemPort interface {
	// ReadBuildSystem returns the [build-system] table. A missing file
	// yields the default backend and requirements.
	ReadBuildSystem(path string) (types.BuildSystem, error)

	// ReadProject returns the static metadata of the [project] table.
	ReadProject(path string) (types.PartialMetadata, bool, error)
}

// WheelExtractorPort reads the metadata embedded in a wheel archive.
type WheelExtractorPort interface {
	Extract(path string) (types.PartialMetadata, error)
}

// InstalledMetadataPort probes a tree for egg-info / dist-info metadata.
type InstalledMetadataPort interface {
	// Probe returns false when nothing usable was found.
	Probe(ctx context.Context, root string, name string) (types.PartialMetadata, bool)

	Discover(root string) ([]types.MetadataDirInfo, error)
}

// SdistExtractorPort unpacks a source distribution so its metadata can be
// probed.
type SdistExtractorPort interface {
	Unpack(ctx context.Context, archive string, dest string) (string, error)
}
