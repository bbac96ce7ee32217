package core

import (
	"strings"
	"sync"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// versionCache memoizes parsed PEP 440 versions and specifier sets. The
// same clauses show up repeatedly across setup.cfg, METADATA and
// requires.txt of one package.
type versionCache struct {
	mu   sync.Mutex
	pep  map[string]pep440.Version
	spec map[string]pep440.Specifiers
}

func newVersionCache() *versionCache {
	return &versionCache{
		pep:  map[string]pep440.Version{},
		spec: map[string]pep440.Specifiers{},
	}
}

var versions = newVersionCache()

// pepVersion returns a parsed PEP 440 version, caching the result.
func (c *versionCache) pepVersion(value string) (pep440.Version, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if parsed, ok := c.pep[value]; ok {
		return parsed, nil
	}
	parsed, err := pep440.Parse(value)
	if err != nil {
		return pep440.Version{}, err
	}
	c.pep[value] = parsed
	return parsed, nil
}

// pepSpec returns parsed PEP 440 specifiers, caching the result.
func (c *versionCache) pepSpec(value string) (pep440.Specifiers, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if parsed, ok := c.spec[value]; ok {
		return parsed, nil
	}
	parsed, err := pep440.NewSpecifiers(value)
	if err != nil {
		return pep440.Specifiers{}, err
	}
	c.spec[value] = parsed
	return parsed, nil
}

// SpecifierAllows reports whether version satisfies spec. An empty spec
// allows everything.
func SpecifierAllows(spec string, version string) (bool, error) {
	if strings.TrimSpace(spec) == "" {
		return true, nil
	}
	specifiers, err := versions.pepSpec(spec)
	if err != nil {
		return false, err
	}
	parsed, err := versions.pepVersion(version)
	if err != nil {
		return false, err
	}
	return specifiers.Check(parsed), nil
}

// ValidVersion reports whether value is a PEP 440 version.
func ValidVersion(value string) bool {
	_, err := versions.pepVersion(strings.TrimSpace(value))
	return err == nil
}
