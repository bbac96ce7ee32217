package types

import (
	"sort"
	"strings"
)

// OriginRequirement is the requirement that caused a package directory to
// be resolved in the first place.
type OriginRequirement struct {
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Specifier    string   `json:"specifier,omitempty" yaml:"specifier,omitempty"`
	Extras       []string `json:"extras,omitempty" yaml:"extras,omitempty"`
	URL          string   `json:"url,omitempty" yaml:"url,omitempty"`
	Editable     bool     `json:"editable,omitempty" yaml:"editable,omitempty"`
	Subdirectory string   `json:"subdirectory,omitempty" yaml:"subdirectory,omitempty"`
}

func (o OriginRequirement) IsZero() bool {
	return o.Name == "" && o.Specifier == "" && len(o.Extras) == 0 &&
		o.URL == "" && !o.Editable && o.Subdirectory == ""
}

// Identity is a stable textual key for the origin, independent of the
// order extras were listed in.
func (o OriginRequirement) Identity() string {
	extras := append([]string(nil), o.Extras...)
	sort.Strings(extras)
	parts := []string{
		o.Name,
		o.Specifier,
		strings.Join(extras, ","),
		o.URL,
		o.Subdirectory,
	}
	if o.Editable {
		parts = append(parts, "editable")
	}
	return strings.Join(parts, "|")
}
