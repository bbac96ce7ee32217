package adapters

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

// InstalledMetadataAdapter finds egg-info and dist-info directories below
// a root and reads them.
type InstalledMetadataAdapter struct{}

func NewInstalledMetadataAdapter() InstalledMetadataAdapter {
	return InstalledMetadataAdapter{}
}

type metadataDir struct {
	path   string
	layout types.MetadataLayout
}

// Probe returns the metadata of the best matching directory. dist-info is
// preferred over egg-info. An sdist-style PKG-INFO at the root is the last
// resort. Nothing found, or nothing readable, is a silent miss.
func (a InstalledMetadataAdapter) Probe(ctx context.Context, root string, name string) (types.PartialMetadata, bool) {
	dirs, err := findMetadataDirs(root, name)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("root", root).Msg("metadata search failed")
		return types.PartialMetadata{}, false
	}
	for _, layout := range []types.MetadataLayout{types.MetadataLayoutDistInfo, types.MetadataLayoutEggInfo} {
		for _, dir := range dirs {
			if dir.layout != layout {
				continue
			}
			partial, err := readMetadataDir(dir)
			if err != nil {
				log.Ctx(ctx).Debug().Err(err).Str("dir", dir.path).Msg("unreadable metadata directory")
				continue
			}
			log.Ctx(ctx).Debug().Str("dir", dir.path).Str("layout", string(dir.layout)).Msg("using metadata directory")
			return partial, true
		}
	}
	content, err := os.ReadFile(filepath.Join(root, "PKG-INFO"))
	if err != nil {
		return types.PartialMetadata{}, false
	}
	meta := parseCoreMetadata(content)
	if meta.Name == "" || !nameMatches(meta.Name, name) {
		return types.PartialMetadata{}, false
	}
	return meta.partial(types.MetadataSourceInstalled), true
}

// Discover lists every metadata directory below root without filtering.
func (a InstalledMetadataAdapter) Discover(root string) ([]types.MetadataDirInfo, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("metadata search root is empty")
	}
	dirs, err := findMetadataDirs(root, "")
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan for metadata directories").
			WithCause(err)
	}
	infos := make([]types.MetadataDirInfo, 0, len(dirs))
	for _, dir := range dirs {
		info := types.MetadataDirInfo{Path: dir.path, Layout: dir.layout}
		if partial, err := readMetadataDir(dir); err == nil {
			if partial.Name != nil {
				info.Name = *partial.Name
			}
			if partial.Version != nil {
				info.Version = *partial.Version
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// findMetadataDirs walks root in lexical order. Matched directories are
// not descended into.
func findMetadataDirs(root string, name string) ([]metadataDir, error) {
	var dirs []metadataDir
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && shouldSkipSearchDir(d.Name()) {
			return filepath.SkipDir
		}
		layout, stem, ok := metadataLayoutOf(d.Name())
		if !ok {
			return nil
		}
		if name == "" || stemMatches(stem, name) {
			dirs = append(dirs, metadataDir{path: path, layout: layout})
		}
		return filepath.SkipDir
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

func metadataLayoutOf(dirName string) (types.MetadataLayout, string, bool) {
	lower := strings.ToLower(dirName)
	for _, layout := range []types.MetadataLayout{types.MetadataLayoutDistInfo, types.MetadataLayoutEggInfo} {
		if strings.HasSuffix(lower, layout.Suffix()) {
			return layout, lower[:len(lower)-len(layout.Suffix())], true
		}
	}
	return "", "", false
}

// stemMatches compares a directory stem ("name" or "name-version...")
// against every spelling variant of the wanted project name. The version
// part must start with a digit so "demo" does not match "demo-pkg".
func stemMatches(stem string, name string) bool {
	for _, variant := range shared.NameVariants(name) {
		if stem == variant {
			return true
		}
		rest, ok := strings.CutPrefix(stem, variant+"-")
		if ok && rest != "" && rest[0] >= '0' && rest[0] <= '9' {
			return true
		}
	}
	return false
}

func nameMatches(found string, wanted string) bool {
	if wanted == "" {
		return true
	}
	return shared.NormalizePipName(found) == shared.NormalizePipName(wanted)
}

func shouldSkipSearchDir(name string) bool {
	switch name {
	case ".git", ".hg", ".svn", ".tox", ".nox", "__pycache__", "node_modules", ".venv":
		return true
	default:
		return false
	}
}

func readMetadataDir(dir metadataDir) (types.PartialMetadata, error) {
	switch dir.layout {
	case types.MetadataLayoutDistInfo:
		content, err := os.ReadFile(filepath.Join(dir.path, "METADATA"))
		if err != nil {
			return types.PartialMetadata{}, err
		}
		meta := parseCoreMetadata(content)
		if meta.Name == "" {
			return types.PartialMetadata{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("METADATA has no Name header")
		}
		return meta.partial(types.MetadataSourceInstalled), nil
	default:
		content, err := os.ReadFile(filepath.Join(dir.path, "PKG-INFO"))
		if err != nil {
			return types.PartialMetadata{}, err
		}
		meta := parseCoreMetadata(content)
		if meta.Name == "" {
			return types.PartialMetadata{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("PKG-INFO has no Name header")
		}
		partial := types.PartialMetadata{
			Source:  types.MetadataSourceInstalled,
			Name:    types.StringPtr(meta.Name),
			Version: optionalString(meta.Version),
		}
		if meta.RequiresPython != "" {
			partial.PythonRequires = types.StringPtr(meta.RequiresPython)
		}
		requiresTxt, err := os.ReadFile(filepath.Join(dir.path, "requires.txt"))
		if err != nil {
			if len(meta.RequiresDist) > 0 {
				return meta.partial(types.MetadataSourceInstalled), nil
			}
			return partial, nil
		}
		requires, extras := parseRequiresTxt(requiresTxt)
		partial.Requires = append([]types.Requirement{}, requires...)
		if extras.Len() > 0 {
			partial.Extras = &extras
		}
		return partial, nil
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return types.StringPtr(value)
}

var _ ports.InstalledMetadataPort = InstalledMetadataAdapter{}
