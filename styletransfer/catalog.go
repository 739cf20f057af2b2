// Package styletransfer serves the fast neural style transfer models.
package styletransfer

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Style is one entry of the style catalog.
type Style struct {
	Name        string `yaml:"name" json:"name"`
	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`
}

var DefaultCatalog = []Style{
	{Name: "candy", DisplayName: "Candy", Description: "Vibrant candy-like colors"},
	{Name: "mosaic", DisplayName: "Mosaic", Description: "Abstract mosaic patterns"},
	{Name: "udnie", DisplayName: "Udnie", Description: "Cubist-inspired style"},
	{Name: "rain_princess", DisplayName: "Rain Princess", Description: "Dreamy impressionist style"},
}

var validName = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidName reports whether name may be used to build a model path.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

type catalogFile struct {
	Styles []Style `yaml:"styles"`
}

// LoadCatalog reads the style catalog from a YAML file. A missing file
// yields the built-in catalog.
func LoadCatalog(path string) ([]Style, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultCatalog, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read style catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse style catalog: %w", err)
	}
	if len(file.Styles) == 0 {
		return DefaultCatalog, nil
	}

	seen := make(map[string]bool, len(file.Styles))
	for i, s := range file.Styles {
		if !ValidName(s.Name) {
			return nil, fmt.Errorf("style catalog entry %d: invalid name %q", i, s.Name)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("style catalog: duplicate style %q", s.Name)
		}
		seen[s.Name] = true
		if file.Styles[i].DisplayName == "" {
			file.Styles[i].DisplayName = s.Name
		}
	}
	return file.Styles, nil
}
