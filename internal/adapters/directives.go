package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"pysetupinfo/internal/ports"
	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/types"
)

const (
	fileDirective = "file:"
	attrDirective = "attr:"
)

const attrLookupScript = `import importlib, sys
obj = importlib.import_module(sys.argv[1])
for part in sys.argv[2].split("."):
    obj = getattr(obj, part)
if isinstance(obj, (list, tuple)):
    obj = ".".join(str(p) for p in obj)
sys.stdout.write(str(obj))
`

// directiveResolver expands file: and attr: values of a setup.cfg.
type directiveResolver struct {
	baseDir    string
	packageDir map[string]string
	runner     ports.CommandRunnerPort
	python     string
}

// resolve returns value unchanged unless it carries a directive. A
// directive that cannot be resolved is an IndirectionError.
func (r directiveResolver) resolve(ctx context.Context, field string, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(trimmed, fileDirective):
		return r.readFiles(field, strings.TrimSpace(strings.TrimPrefix(trimmed, fileDirective)))
	case strings.HasPrefix(trimmed, attrDirective):
		return r.lookupAttr(ctx, field, strings.TrimSpace(strings.TrimPrefix(trimmed, attrDirective)))
	default:
		return value, nil
	}
}

func (r directiveResolver) readFiles(field string, spec string) (string, error) {
	var parts []string
	for _, raw := range strings.Split(spec, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		path := filepath.Join(r.baseDir, filepath.FromSlash(name))
		content, err := os.ReadFile(path)
		if err != nil {
			return "", shared.IndirectionError(fmt.Sprintf("%s: cannot read %s", field, name), err)
		}
		parts = append(parts, string(content))
	}
	if len(parts) == 0 {
		return "", shared.IndirectionError(fmt.Sprintf("%s: file directive names no files", field), nil)
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

func (r directiveResolver) lookupAttr(ctx context.Context, field string, spec string) (string, error) {
	idx := strings.LastIndex(spec, ".")
	if idx <= 0 || idx == len(spec)-1 {
		return "", shared.IndirectionError(fmt.Sprintf("%s: attr directive %q needs module.attribute", field, spec), nil)
	}
	module, attr := spec[:idx], spec[idx+1:]
	root := r.moduleRoot(module)
	if value, ok := staticAttr(root, module, attr); ok {
		return value, nil
	}
	if r.runner == nil {
		return "", shared.IndirectionError(fmt.Sprintf("%s: cannot import %s without an interpreter", field, module), nil)
	}
	log.Ctx(ctx).Debug().Str("module", module).Str("attr", attr).Msg("importing module to resolve attr directive")
	result, err := r.runner.Run(ctx, types.Command{
		Path: r.python,
		Args: []string{"-c", attrLookupScript, module, attr},
		Dir:  r.baseDir,
		Env:  []string{"PYTHONPATH=" + root, "PYTHONDONTWRITEBYTECODE=1"},
	})
	if err != nil {
		return "", shared.IndirectionError(fmt.Sprintf("%s: cannot resolve %s.%s", field, module, attr), shared.CommandError(result.Output, err))
	}
	return strings.TrimSpace(string(result.Output)), nil
}

// moduleRoot applies options.package_dir to find where module lives.
func (r directiveResolver) moduleRoot(module string) string {
	top, _, _ := strings.Cut(module, ".")
	if dir, ok := r.packageDir[top]; ok {
		return filepath.Join(r.baseDir, filepath.FromSlash(filepath.Dir(dir)))
	}
	if dir, ok := r.packageDir[""]; ok {
		return filepath.Join(r.baseDir, filepath.FromSlash(dir))
	}
	return r.baseDir
}

// staticAttr finds a literal string assignment to attr in the module
// source without executing it.
func staticAttr(root string, module string, attr string) (string, bool) {
	rel := filepath.FromSlash(strings.ReplaceAll(module, ".", "/"))
	candidates := []string{
		filepath.Join(root, rel+".py"),
		filepath.Join(root, rel, "__init__.py"),
	}
	pattern := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(attr) + `\s*(?::[^=\n]+)?=\s*(?:"([^"\n]*)"|'([^'\n]*)')\s*(?:#.*)?$`)
	for _, path := range candidates {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		match := pattern.FindSubmatch(content)
		if match == nil {
			continue
		}
		if len(match[1]) > 0 {
			return string(match[1]), true
		}
		return string(match[2]), true
	}
	return "", false
}

// parsePackageDir reads options.package_dir, either "=src" or lines of
// "pkg = path".
func parsePackageDir(value string) map[string]string {
	dirs := map[string]string{}
	for _, line := range splitListValue(value) {
		name, dir, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		dirs[strings.TrimSpace(name)] = strings.TrimSpace(dir)
	}
	return dirs
}
