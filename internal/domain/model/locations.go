//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locations.yaml
var defaultLocationsYAML []byte

// LocationGroup is a named group of storage locations shown together in the form.
type LocationGroup struct {
	Name      string   `yaml:"name"      json:"name"`
	Locations []string `yaml:"locations" json:"locations"`
}

// LocationCatalog is the list of known storage locations.
// Location stays free-form on records; the catalogue only feeds the form and soft warnings.
type LocationCatalog struct {
	Groups []LocationGroup `yaml:"groups" json:"groups"`

	index map[string]struct{}
}

// ParseLocations decodes a YAML catalogue.
func ParseLocations(data []byte) (*LocationCatalog, error) {
	var c LocationCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}
	if len(c.Groups) == 0 {
		return nil, errors.New("locations catalogue has no groups")
	}
	c.index = make(map[string]struct{})
	for gi := range c.Groups {
		g := &c.Groups[gi]
		g.Name = strings.TrimSpace(g.Name)
		if g.Name == "" {
			return nil, fmt.Errorf("locations group %d has no name", gi+1)
		}
		kept := g.Locations[:0]
		for _, loc := range g.Locations {
			loc = strings.TrimSpace(loc)
			if loc == "" {
				continue
			}
			kept = append(kept, loc)
			c.index[strings.ToLower(loc)] = struct{}{}
		}
		g.Locations = kept
	}
	return &c, nil
}

// LoadLocations returns the catalogue from path, or the embedded default when path is empty.
func LoadLocations(path string) (*LocationCatalog, error) {
	if strings.TrimSpace(path) == "" {
		return ParseLocations(defaultLocationsYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}
	return ParseLocations(data)
}

// Known reports whether name is in the catalogue (case-insensitive).
func (c *LocationCatalog) Known(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// All returns every location in catalogue order.
func (c *LocationCatalog) All() []string {
	if c == nil {
		return nil
	}
	var out []string
	for _, g := range c.Groups {
		out = append(out, g.Locations...)
	}
	return out
}
