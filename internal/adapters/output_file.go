package adapters

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/types"
)

// OutputFileAdapter renders values as JSON or YAML. An empty path or "-"
// writes to Stdout.
type OutputFileAdapter struct {
	Stdout io.Writer
}

func NewOutputFileAdapter(stdout io.Writer) OutputFileAdapter {
	if stdout == nil {
		stdout = os.Stdout
	}
	return OutputFileAdapter{Stdout: stdout}
}

func (a OutputFileAdapter) Write(path string, format types.OutputFormat, value any) error {
	data, err := encodeOutput(format, value)
	if err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		if _, err := a.Stdout.Write(data); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to write output").
				WithCause(err)
		}
		return nil
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write output file").
			WithCause(err)
	}
	return nil
}

func encodeOutput(format types.OutputFormat, value any) ([]byte, error) {
	switch format {
	case types.OutputFormatJSON, "":
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to encode json output").
				WithCause(err)
		}
		return append(data, '\n'), nil
	case types.OutputFormatYAML:
		data, err := yaml.Marshal(value)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to encode yaml output").
				WithCause(err)
		}
		return data, nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported output format: " + string(format))
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output directory").
			WithCause(err)
	}
	return nil
}

var _ ports.OutputPort = OutputFileAdapter{}
