package adapters

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

// WheelMetadataAdapter reads <name>-<version>.dist-info/METADATA out of a
// wheel archive. Failures are returned to the caller as-is.
type WheelMetadataAdapter struct{}

func NewWheelMetadataAdapter() WheelMetadataAdapter {
	return WheelMetadataAdapter{}
}

func (a WheelMetadataAdapter) Extract(path string) (types.PartialMetadata, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return types.PartialMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to open wheel %s", filepath.Base(path))).
			WithCause(err)
	}
	defer reader.Close()

	file := findWheelMetadata(reader.File, filepath.Base(path))
	if file == nil {
		return types.PartialMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("wheel %s has no dist-info METADATA", filepath.Base(path)))
	}
	rc, err := file.Open()
	if err != nil {
		return types.PartialMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open wheel METADATA").
			WithCause(err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return types.PartialMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read wheel METADATA").
			WithCause(err)
	}
	meta := parseCoreMetadata(content)
	if meta.Name == "" || meta.Version == "" {
		return types.PartialMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("wheel %s METADATA lacks Name or Version", filepath.Base(path)))
	}
	return meta.partial(types.MetadataSourceWheel), nil
}

// findWheelMetadata prefers the dist-info directory named after the wheel
// file and falls back to the first top-level dist-info METADATA.
func findWheelMetadata(files []*zip.File, wheelName string) *zip.File {
	var fallback *zip.File
	project := wheelProject(wheelName)
	for _, f := range files {
		dir, base, ok := strings.Cut(f.Name, "/")
		if !ok || base != "METADATA" || !strings.HasSuffix(strings.ToLower(dir), ".dist-info") {
			continue
		}
		if project != "" && stemMatches(strings.ToLower(strings.TrimSuffix(dir, ".dist-info")), project) {
			return f
		}
		if fallback == nil {
			fallback = f
		}
	}
	return fallback
}

// wheelProject returns the distribution part of a wheel filename,
// "{distribution}-{version}(-{build})?-{python}-{abi}-{platform}.whl".
func wheelProject(wheelName string) string {
	stem := strings.TrimSuffix(wheelName, ".whl")
	if stem == wheelName {
		return ""
	}
	project, _, ok := strings.Cut(stem, "-")
	if !ok {
		return ""
	}
	return shared.NormalizePipName(project)
}

var _ ports.WheelExtractorPort = WheelMetadataAdapter{}
