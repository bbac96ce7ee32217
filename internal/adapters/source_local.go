package adapters

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

// LocalSourceAdapter resolves local directories, file:// URLs and local
// source archives into a package directory. An archive is unpacked once per
// adapter as long as its unpacked directory survives.
type LocalSourceAdapter struct {
	Installed ports.InstalledMetadataPort
	Pyproject ports.BuildSystemPort
	Sdist     ports.SdistExtractorPort
	WorkDir   ports.WorkDirPort

	unpacked *unpackedArchives
}

type unpackedArchives struct {
	mu   sync.Mutex
	dirs map[string]string
}

func NewLocalSourceAdapter(installed ports.InstalledMetadataPort, pyproject ports.BuildSystemPort, sdist ports.SdistExtractorPort, workDir ports.WorkDirPort) LocalSourceAdapter {
	return LocalSourceAdapter{
		Installed: installed,
		Pyproject: pyproject,
		Sdist:     sdist,
		WorkDir:   workDir,
		unpacked:  &unpackedArchives{dirs: map[string]string{}},
	}
}

// Locate maps a location to its package directory. Directories are
// identified by absolute path, archives by path, size and modification
// time, so a re-unpacked archive keeps its identity.
func (a LocalSourceAdapter) Locate(ctx context.Context, location string, origin types.OriginRequirement) (types.SourceLocation, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		location = strings.TrimSpace(origin.URL)
	}
	if location == "" {
		return types.SourceLocation{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("source location is required")
	}
	path, fragmentSubdir, err := localPath(location)
	if err != nil {
		return types.SourceLocation{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return types.SourceLocation{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid source path").
			WithCause(err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return types.SourceLocation{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("source path not found: " + abs).
			WithCause(err)
	}
	loc := types.SourceLocation{Dir: abs, Identity: "dir:" + abs}
	if !info.IsDir() {
		loc.Identity = fmt.Sprintf("archive:%s:%d:%d", abs, info.Size(), info.ModTime().UnixNano())
		loc.Dir, err = a.unpackArchive(ctx, abs, loc.Identity)
		if err != nil {
			return types.SourceLocation{}, err
		}
		loc.Unpacked = true
	}
	subdir := strings.TrimSpace(origin.Subdirectory)
	if subdir == "" {
		subdir = fragmentSubdir
	}
	if subdir == "" {
		return loc, nil
	}
	dir, err := safeJoin(loc.Dir, subdir)
	if err != nil {
		return types.SourceLocation{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid subdirectory").
			WithCause(err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return types.SourceLocation{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("subdirectory not found: " + dir)
	}
	loc.Dir = dir
	loc.Identity += "#" + filepath.ToSlash(filepath.Clean(subdir))
	return loc, nil
}

func (a LocalSourceAdapter) unpackArchive(ctx context.Context, archive string, identity string) (string, error) {
	if a.Sdist == nil || a.WorkDir == nil || !isSourceArchive(archive) {
		return "", shared.UnsupportedSourceError("source is neither a directory nor a source archive: " + archive)
	}
	if a.unpacked != nil {
		a.unpacked.mu.Lock()
		defer a.unpacked.mu.Unlock()
		if dir, ok := a.unpacked.dirs[identity]; ok {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				return dir, nil
			}
			delete(a.unpacked.dirs, identity)
		}
	}
	dest, err := a.WorkDir.Tracked("source")
	if err != nil {
		return "", err
	}
	log.Ctx(ctx).Debug().Str("archive", archive).Str("dest", dest).Msg("unpacking source archive")
	dir, err := a.Sdist.Unpack(ctx, archive, dest)
	if err != nil {
		return "", err
	}
	if a.unpacked != nil {
		a.unpacked.dirs[identity] = dir
	}
	return dir, nil
}

// Declarations lists the packaging files and metadata directories of dir.
func (a LocalSourceAdapter) Declarations(dir string) (types.Declarations, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return types.Declarations{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("package directory not found: " + dir)
	}
	decl := types.Declarations{
		BaseDir:     dir,
		SetupScript: fileIfExists(filepath.Join(dir, types.SetupScriptFile)),
		SetupConfig: fileIfExists(filepath.Join(dir, types.SetupConfigFile)),
		Pyproject:   fileIfExists(filepath.Join(dir, types.PyprojectFile)),
	}
	if a.Installed != nil {
		dirs, err := a.Installed.Discover(dir)
		if err != nil {
			return types.Declarations{}, err
		}
		decl.MetadataDirs = dirs
	}
	if decl.Installable() && a.Pyproject != nil {
		buildSystem, err := a.Pyproject.ReadBuildSystem(filepath.Join(dir, types.PyprojectFile))
		if err != nil {
			return types.Declarations{}, err
		}
		decl.BuildBackend = buildSystem.BuildBackend
		decl.BuildRequires = buildSystem.Requires
	}
	return decl, nil
}

// localPath accepts plain paths and file:// URLs. A "subdirectory="
// fragment on a URL is returned separately.
func localPath(location string) (string, string, error) {
	if !strings.Contains(location, "://") {
		return location, "", nil
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return "", "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid source url").
			WithCause(err)
	}
	if parsed.Scheme != "file" {
		return "", "", shared.UnsupportedSourceError("only local paths and file:// URLs are supported: " + location)
	}
	subdir := ""
	if parsed.Fragment != "" {
		if values, err := url.ParseQuery(parsed.Fragment); err == nil {
			subdir = values.Get("subdirectory")
		}
	}
	path := parsed.Path
	if parsed.Host != "" && parsed.Host != "localhost" {
		path = "//" + parsed.Host + path
	}
	return path, subdir, nil
}

func isSourceArchive(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range []string{".tar.gz", ".tgz", ".zip"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func fileIfExists(path string) string {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}

var _ ports.SourcePort = LocalSourceAdapter{}
