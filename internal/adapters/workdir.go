package adapters

import (
	"errors"
	"os"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pysetupinfo/internal/ports"
)

// WorkDirAdapter hands out temporary directories under Root (the system
// temp dir when empty). Tracked directories live until Cleanup.
type WorkDirAdapter struct {
	Root string

	mu      sync.Mutex
	tracked []string
}

func NewWorkDirAdapter(root string) *WorkDirAdapter {
	return &WorkDirAdapter{Root: root}
}

func (a *WorkDirAdapter) Scoped(prefix string) (string, func(), error) {
	dir, err := a.create(prefix)
	if err != nil {
		return "", func() {}, err
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func (a *WorkDirAdapter) Tracked(prefix string) (string, error) {
	dir, err := a.create(prefix)
	if err != nil {
		return "", err
	}
	a.mu.Lock()
	a.tracked = append(a.tracked, dir)
	a.mu.Unlock()
	return dir, nil
}

// Cleanup removes every tracked directory, newest first.
func (a *WorkDirAdapter) Cleanup() error {
	a.mu.Lock()
	tracked := a.tracked
	a.tracked = nil
	a.mu.Unlock()
	var errs []error
	for i := len(tracked) - 1; i >= 0; i-- {
		if err := os.RemoveAll(tracked[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to remove tracked directories").
			WithCause(errors.Join(errs...))
	}
	return nil
}

func (a *WorkDirAdapter) create(prefix string) (string, error) {
	if a.Root != "" {
		if err := os.MkdirAll(a.Root, 0o755); err != nil {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create work root").
				WithCause(err)
		}
	}
	dir, err := os.MkdirTemp(a.Root, "pysetupinfo-"+prefix+"-")
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create work directory").
			WithCause(err)
	}
	return dir, nil
}

var _ ports.WorkDirPort = (*WorkDirAdapter)(nil)
